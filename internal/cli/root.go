// Package cli wires the cobra command surface. Every command maps 1:1 to an
// orchestrator method and prints a machine-readable result to stdout.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "nginx-log-analyzer",
		Short: "Batch ETL pipeline for nginx access logs",
		Long: `nginx-log-analyzer ingests date-partitioned nginx access-log files,
enriches every request into an analytical record (timing phases, platform,
business domain, security and geo attributes) and delivers batches to a
columnar warehouse.

Processing is incremental: files already completed for the same content hash
are skipped, and failed files can be reset and retried.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		NewProcessCmd(&cfgFile, &logLevel),
		NewStatusCmd(&cfgFile, &logLevel),
		NewResetFailedCmd(&cfgFile, &logLevel),
		NewMonitorCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile, &logLevel),
		NewVersionCmd(),
	)

	return rootCmd.Execute()
}
