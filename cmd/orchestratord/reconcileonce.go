package orchestratord

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileOnceCmd = &cobra.Command{
	Use:   "reconcile-once",
	Short: "Run a single Reload pass against the current task definitions and exit",
	Long: `reconcile-once runs the §4.1 reconcile algorithm exactly once
without starting cron dispatch: stale persistent jobs for tasks that are
no longer auto+active are removed, and every current auto+active task
gets a current persistent job. Useful after a bulk task import or a
definition change made while the scheduler wasn't running.`,
	RunE: runReconcileOnce,
}

func runReconcileOnce(cmd *cobra.Command, _ []string) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.sched.Reload(cmd.Context()); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	d.log.Info("reconcile-once complete")
	return nil
}
