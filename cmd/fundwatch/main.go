package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tair/fundwatch/internal/config"
	"github.com/tair/fundwatch/internal/funds"
	"github.com/tair/fundwatch/pkg/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "fundwatch",
		Short:         "Fund list service with per-browser favorites",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fundsCmd())
	rootCmd.AddCommand(fundCmd())
	rootCmd.AddCommand(favoritesCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and initializes the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// buildApp wires the service for one-shot commands
func buildApp() (*funds.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	app, cleanup, err := funds.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return app, cleanup, nil
}
