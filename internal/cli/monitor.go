package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/metrics"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/pipeline"
)

// NewMonitorCmd creates the monitor command: a long-running loop that watches
// the input root and processes new log files as they appear.
func NewMonitorCmd(cfgFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch the input root and process new log files continuously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile, *logLevel)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			orch, err := pipeline.New(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if cfg.Metrics.Enabled {
				go metrics.Serve(ctx, cfg.Metrics.Address, logger)
			}

			logger.Info().Str("root", cfg.Input.RootDir).Msg("monitor started")
			runErr := orch.RunMonitor(ctx)
			if errors.Is(runErr, context.Canceled) {
				// Signal-driven stop is a clean exit.
				runErr = nil
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
			defer shutdownCancel()
			if err := orch.Close(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown incomplete")
			}
			return runErr
		},
	}
}
