package commands

import (
	"errors"
	"fmt"
	"os"

	"offerwatch/lib/configutil"
	"offerwatch/lib/offerstore"
)

// ConfigFile is read from the working directory when --config is not given.
const ConfigFile = "offerwatch.json5"

type Config struct {
	Database offerstore.Config `json:"database"`
	// Engine is the browser automation engine, "chromedp" or "playwright".
	Engine string `json:"engine"`
	// Headless decides when a virtual display is started, "auto", "always"
	// or "never".
	Headless string `json:"headless"`
	Verbose  bool   `json:"verbose"`
}

// loadConfig reads the configuration, a missing file means the defaults.
func loadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return config, nil
}
