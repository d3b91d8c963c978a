package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"offerwatch/internal/session"
	"offerwatch/lib/browser"
	"offerwatch/lib/browser/cdpdriver"
	"offerwatch/lib/browser/pwdriver"
	"offerwatch/lib/xdisplay"
)

const (
	engineChromedp   = "chromedp"
	enginePlaywright = "playwright"
)

// newLauncher builds the session launcher for the configured engine.
// driverPath is the chrome binary for chromedp and the driver directory
// for playwright.
func newLauncher(engine, driverPath string) (session.Launcher, error) {
	size := xdisplay.DefaultSize
	launcher := session.Launcher{
		StartDisplay: session.XvfbDisplay(size),
	}

	switch engine {
	case "", engineChromedp:
		launcher.StartDriver = func(ctx context.Context, env []string) (browser.Driver, error) {
			driver, err := cdpdriver.New(ctx, cdpdriver.Options{
				ExecPath:     driverPath,
				Env:          env,
				WindowWidth:  size.Width,
				WindowHeight: size.Height,
			})
			if err != nil {
				return nil, err
			}
			return driver, nil
		}
	case enginePlaywright:
		launcher.StartDriver = func(ctx context.Context, env []string) (browser.Driver, error) {
			driver, err := pwdriver.New(pwdriver.Options{
				DriverDirectory: driverPath,
				Env:             mergeEnv(os.Environ(), env),
				WindowWidth:     size.Width,
				WindowHeight:    size.Height,
			})
			if err != nil {
				return nil, err
			}
			return driver, nil
		}
	default:
		return session.Launcher{}, fmt.Errorf(
			"unknown engine %q, expected one of %s, %s",
			engine, engineChromedp, enginePlaywright,
		)
	}
	return launcher, nil
}

// mergeEnv turns KEY=VALUE entries into a map, later entries win.
// playwright replaces the environment of the browser instead of extending
// it, so the whole process environment is passed along.
func mergeEnv(base []string, overrides []string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for _, entries := range [][]string{base, overrides} {
		for _, entry := range entries {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				continue
			}
			out[key] = value
		}
	}
	return out
}
