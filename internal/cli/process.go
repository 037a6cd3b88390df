package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/logging"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/metrics"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/pipeline"
)

// NewProcessCmd creates the process command: one pass over a single date or
// over everything unprocessed.
func NewProcessCmd(cfgFile, logLevel *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "process [date]",
		Short: "Process log files for a date, or everything unprocessed with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("either a date argument or --all is required")
			}

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
			defer orch.Close(context.Background())

			if cfg.Metrics.Enabled {
				go metrics.Serve(ctx, cfg.Metrics.Address, logger)
			}

			summary, err := runPass(ctx, orch, all, args)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "process every unprocessed file under the input root")
	return cmd
}

func runPass(ctx context.Context, orch *pipeline.Orchestrator, all bool, args []string) (model.RunSummary, error) {
	if all {
		return orch.ProcessAll(ctx)
	}
	return orch.ProcessDate(ctx, args[0])
}

// setup loads config and initializes logging, shared by all commands.
func setup(cfgFile, logLevel string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("loading config: %w", err)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.Setup(level, cfg.LogFile)
	return cfg, logger, nil
}

// signalContext cancels on SIGINT/SIGTERM so in-flight work stops between
// files and batches.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
