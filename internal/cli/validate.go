package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/sink"
)

// NewValidateCmd creates the validate command: checks the configuration and,
// with --probe, that the configured sink is reachable.
func NewValidateCmd(cfgFile, logLevel *string) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and optionally probe the sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile, *logLevel)
			if err != nil {
				return err
			}

			if info, err := os.Stat(cfg.Input.RootDir); err != nil {
				logger.Warn().Str("root", cfg.Input.RootDir).Msg("input root does not exist yet")
			} else if !info.IsDir() {
				return fmt.Errorf("input root %s is not a directory", cfg.Input.RootDir)
			}

			if probe {
				ctx, cancel := signalContext()
				defer cancel()

				s, err := sink.New(cfg.Sink, logger)
				if err != nil {
					return err
				}
				if err := s.Start(ctx); err != nil {
					return fmt.Errorf("sink %s unreachable: %w", s.Name(), err)
				}
				if err := s.Stop(ctx); err != nil {
					return fmt.Errorf("closing sink %s: %w", s.Name(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sink %s reachable\n", s.Name())
			}

			fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "connect to the configured sink as part of validation")
	return cmd
}
