// Package cmd defines the CLI commands for the shot feed service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/config"
	"github.com/ThalysDev/finalizabot-sub000/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shotfeed",
		Short: "Ingests football shot events from an upstream score feed",
		Long: `shotfeed acquires match schedules and shot-by-shot event data from an
upstream score site, normalizes the heterogeneous payloads into a stable
schema, and persists them for downstream analysis. Acquisition is
resilient: proxy failover, jittered retries, and a headless-browser
fallback for endpoints that reject plain HTTP clients.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional; env vars use the FEED_ prefix)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// loadEnvironment loads config and builds the logger shared by commands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
