package commands

import (
	"context"
	"fmt"
	"os"

	"offerwatch/lib/osutil"
	"offerwatch/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	cfg        Config
)

var rootCmd = &cobra.Command{
	Use:   "offerwatch",
	Short: "offerwatch signs up to every open offer on slimmerkopen.nl and records the offers it signed up to.",
	Long: `offerwatch logs in to slimmerkopen.nl and polls the offer listing forever,
signing up to every open offer and storing its area, discount, price and
description. It runs until interrupted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		telemetry.InitSlog(verbose || cfg.Verbose)
		return nil
	},
	RunE: runWatch,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", ConfigFile, "path to the configuration file, a <name>.local.json5 next to it overrides it")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(offersCmd)
	rootCmd.AddCommand(inspectCmd)
}

func Execute() {
	ctx, stop := osutil.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
