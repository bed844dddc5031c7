// Package orchestratord implements the command-line entrypoint for the
// crawl orchestration core: the thin process boundary of §B.4 that wires
// config, the repositories, the Scheduler and the Executor together, and
// nothing else (no REST routes live here — §6.3 is an external contract).
package orchestratord

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawlorc/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "orchestratord",
	Short: "Crawl task orchestration core",
	Long: `orchestratord schedules and executes crawl tasks: a cron-driven
persistent scheduler, a bounded concurrent executor, and the repositories
and service layer that back them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command with a fresh background context.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileOnceCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig wraps config.Load with the cobra-facing error message.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
