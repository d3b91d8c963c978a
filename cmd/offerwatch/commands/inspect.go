package commands

import (
	"fmt"
	"os"

	"offerwatch/internal/scrapers/slimmerkopen"
	"offerwatch/lib/browser/htmldriver"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <page.html>",
	Short: "Runs offer discovery and extraction against a saved page without signing up to anything.",
	Long: `inspect loads a page saved from the browser and prints every offer trigger it
would consider open along with what would be stored for it. Use it to check the
selectors after the site markup changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		driver, err := htmldriver.FromReader(slimmerkopen.HomeURL, f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		defer driver.Close()

		client := slimmerkopen.NewClient(driver)
		candidates, err := client.Discover(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Trigger", "Area", "Discount", "Price", "Description"})
		for i, candidate := range candidates {
			offer := client.Extract(ctx, candidate.Element)
			t.AppendRow(table.Row{
				i + 1,
				candidate.Text,
				offer.Area,
				offer.Discount,
				offer.Price,
				offer.Description,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Printf("%d open offers\n", len(candidates))
		return nil
	},
}
