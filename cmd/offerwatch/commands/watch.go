package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"offerwatch/internal/scrapers/slimmerkopen"
	"offerwatch/internal/session"
	"offerwatch/internal/watcher"
	"offerwatch/lib/offerstore"
	"offerwatch/lib/serviceutil"
	"offerwatch/lib/telemetry"

	"github.com/spf13/cobra"
)

const (
	envUser       = "OFFERWATCH_USER"
	envPassword   = "OFFERWATCH_PASSWORD"
	envDriverPath = "OFFERWATCH_CHROMEDRIVER"
)

var watchFlags struct {
	user       string
	password   string
	driverPath string
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&watchFlags.user, "user", "u", "", "slimmerkopen account username (required, env "+envUser+")")
	flags.StringVarP(&watchFlags.password, "password", "p", "", "slimmerkopen account password (required, env "+envPassword+")")
	flags.StringVarP(&watchFlags.driverPath, "chromedriver", "c", "", "path to the browser binary, or the playwright driver directory (required, env "+envDriverPath+")")
	rootCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return resolveWatchFlags()
	}
}

// resolveWatchFlags fills unset flags from the environment. Env values are
// not used as flag defaults since those are printed by --help.
func resolveWatchFlags() error {
	required := []struct {
		name  string
		env   string
		value *string
	}{
		{name: "user", env: envUser, value: &watchFlags.user},
		{name: "password", env: envPassword, value: &watchFlags.password},
		{name: "chromedriver", env: envDriverPath, value: &watchFlags.driverPath},
	}

	var missing []string
	for _, flag := range required {
		if *flag.value == "" {
			*flag.value = serviceutil.EnvOrDefault(flag.env, "")
		}
		if *flag.value == "" {
			missing = append(missing, fmt.Sprintf("%q", flag.name))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tel, err := telemetry.SetupFromEnv(ctx, "offerwatch")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx, 15*time.Second)

	policy, err := session.ParseHeadlessPolicy(cfg.Headless)
	if err != nil {
		serviceutil.Fatal("invalid headless policy", err)
	}
	launcher, err := newLauncher(cfg.Engine, watchFlags.driverPath)
	if err != nil {
		serviceutil.Fatal("invalid engine", err)
	}

	database, err := offerstore.Open(cfg.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer database.Close()
	store := offerstore.NewStore(database)
	err = store.Migrate(ctx)
	if err != nil {
		return err
	}

	slog.Info(
		"starting offerwatch",
		"user", watchFlags.user,
		"password", serviceutil.RedactSecret(watchFlags.password),
		"engine", cfg.Engine,
		"headless", policy,
	)
	w := watcher.New(
		session.New(launcher, policy),
		store,
		slimmerkopen.Credentials{
			Username: watchFlags.user,
			Password: watchFlags.password,
		},
	)
	return w.Run(ctx)
}
