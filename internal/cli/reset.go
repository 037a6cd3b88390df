package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/state"
)

// NewResetFailedCmd creates the reset-failed command. Failed entries for the
// given date are cleared from the ledger so the next pass retries them.
func NewResetFailedCmd(cfgFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-failed <date>",
		Short: "Clear failed entries for a date so they are retried",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile, *logLevel)
			if err != nil {
				return err
			}

			store := state.Open(cfg.State.Path, cfg.State.CheckpointEvery, logger)
			n := store.ResetFailed(args[0])
			if err := store.Flush(); err != nil {
				return fmt.Errorf("persisting ledger: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d failed entries for %s\n", n, args[0])
			return nil
		},
	}
}
