package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newIngestCmd creates the 'ingest' subcommand, which executes one full
// ingestion run: discovery, metadata crawl, shot crawl, and backfill.
func newIngestCmd() *cobra.Command {
	var matchIDs []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Runs one ingestion pass over the discovery window",
		Long: `Discovers matches for the configured tournaments and window, crawls
their metadata and shot events, and backfills recently finished matches.
Use --match-id to bypass discovery and ingest specific matches.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			orchestrator := newOrchestrator(cfg, svc, matchIDs, logger)
			if err := orchestrator.Run(ctx); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&matchIDs, "match-id", nil, "ingest only these match IDs, skipping discovery")
	return cmd
}

// newDiscoverCmd creates the 'discover' subcommand, which prints the
// match IDs the discovery window currently yields without ingesting.
func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Prints the match IDs in the current discovery window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			if cfg.Feed.BaseURL == "" {
				return fmt.Errorf("feed.base_url is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			ids := svc.discovery.CurrentWindowMatchIDs(ctx)
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("discover: %w", context.Cause(ctx))
			}
			logger.Info("discovery window resolved", zap.Int("matches", len(ids)))
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
