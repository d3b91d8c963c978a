package commands

import (
	"fmt"
	"os"
	"time"

	"offerwatch/lib/offerstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var offersLimit int

func init() {
	offersCmd.Flags().IntVarP(&offersLimit, "limit", "n", 20, "maximum number of offers to print, newest first")
}

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Prints the offers that have been signed up to.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		database, err := offerstore.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close()
		store := offerstore.NewStore(database)
		err = store.Migrate(ctx)
		if err != nil {
			return err
		}

		offers, err := store.List(ctx, offersLimit)
		if err != nil {
			return err
		}
		total, err := store.Count(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Area", "Discount", "Price", "Description", "Signed up"})
		for _, offer := range offers {
			t.AppendRow(table.Row{
				offer.ID,
				offer.Area,
				offer.Discount,
				offer.Price,
				offer.Description,
				offer.CreatedAt.Local().Format(time.DateTime),
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "Total", fmt.Sprint(total)})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
