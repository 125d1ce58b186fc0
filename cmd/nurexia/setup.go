package main

import (
	"fmt"

	"github.com/newthinker/nurexia/internal/app"
	"github.com/newthinker/nurexia/internal/config"
	"github.com/newthinker/nurexia/internal/logger"
	"go.uber.org/zap"
)

// newApp builds the application; tests replace it to inject providers.
var newApp = func(cfg *config.Config, log *zap.Logger) (*app.App, error) {
	return app.New(cfg, log)
}

// loadConfig reads the --config file (if any), environment and .env.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withApp handles common setup for commands that talk to providers.
// Command-line runs stay quiet below warn unless verbose or debug.
func withApp(verbose bool, fn func(a *app.App, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := "warn"
	if verbose || cfg.Debug {
		level = "debug"
	}
	log := logger.Must(cfg.Debug, level)
	defer log.Sync()

	a, err := newApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	return fn(a, log)
}
