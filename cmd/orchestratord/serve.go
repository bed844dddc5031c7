package orchestratord

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long Stop waits for the Executor to drain
// in-flight tasks before returning, matching the teacher's httpd command's
// bounded graceful-shutdown window.
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and executor until signaled to stop",
	Long: `serve reconciles persistent jobs against task definitions, starts
dispatching cron triggers, and keeps the executor's worker pools warm
until SIGINT/SIGTERM, at which point it stops the scheduler (preserving
persistent jobs) and drains in-flight executions with a bounded wait.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	d.log.Info("orchestratord serving", "workers", d.cfg.ExecutorWorkers, "process_workers", d.cfg.ExecutorProcessWorkers)

	<-ctx.Done()
	d.log.Info("shutdown signal received")

	if err := d.sched.Stop(); err != nil {
		d.log.Error("scheduler stop failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.exec.Shutdown(shutdownCtx); err != nil {
		d.log.Error("executor drain failed", "error", err)
		return fmt.Errorf("executor drain: %w", err)
	}

	d.log.Info("orchestratord stopped cleanly")
	return nil
}
