package cli

import (
	"github.com/spf13/cobra"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/state"
)

// NewStatusCmd creates the status command, printing the processing ledger
// summary as JSON. It reads the ledger directly and never touches the sink.
func NewStatusCmd(cfgFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-date processing counts from the state ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile, *logLevel)
			if err != nil {
				return err
			}

			store := state.Open(cfg.State.Path, cfg.State.CheckpointEvery, logger)
			return printJSON(store.Summarize())
		},
	}
}
