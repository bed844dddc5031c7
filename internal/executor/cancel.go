package executor

import (
	"context"

	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/progress"
	"github.com/jonesrussell/crawlorc/internal/registry"
)

// Cancel implements the cancellation algorithm of §4.2. It is cooperative
// and idempotent: calling it on a task that is not running, or twice in
// a row, is safe and reports that nothing was cancelled.
func (e *Executor) Cancel(ctx context.Context, taskID int64, saveArgs map[string]any) (bool, error) {
	e.mu.Lock()
	entry, ok := e.running[taskID]
	var crawlerSet bool
	var crawler registry.Crawler
	var preRunCancelled bool
	if ok {
		// Snapshot entry.crawlerSet/entry.crawler and call the pre-run
		// cancel while still holding the lock: run() (executor.go) writes
		// those same fields under e.mu, so reading them — or deciding
		// whether the cancel is pre-run — after unlocking would race.
		crawlerSet = entry.crawlerSet
		crawler = entry.crawler
		preRunCancelled = tryFutureCancel(entry)
	}
	e.mu.Unlock()
	if !ok {
		return false, nil
	}

	crawlerAcked := false
	if crawlerSet && crawler != nil {
		globals := crawler.GlobalParams()
		if globals != nil {
			if v, ok := saveArgs["save_partial_results_on_cancel"]; ok {
				globals["save_partial_results_on_cancel"] = v
			}
			if v, ok := saveArgs["save_partial_to_database"]; ok {
				globals["save_partial_to_database"] = v
			}
		}
		crawlerAcked = crawler.CancelTask(taskID)
	}

	cancelled := preRunCancelled || crawlerAcked
	if cancelled {
		e.finalizeCancelled(ctx, taskID)
	}

	e.mu.Lock()
	delete(e.running, taskID)
	e.mu.Unlock()

	return cancelled, nil
}

// tryFutureCancel attempts a pre-run cancel: if the goroutine has not
// yet acquired a worker slot, cancelling its context stops it before any
// crawler code runs, mirroring a future.Cancel() that still succeeds.
func tryFutureCancel(entry *runningExecution) bool {
	preRun := !entry.crawlerSet
	entry.cancel()
	return preRun
}

func (e *Executor) finalizeCancelled(ctx context.Context, taskID int64) {
	// FinishRun locates the running history row if present and finalizes
	// it; absent a running row (a race with the normal finalize path) it
	// synthesizes one, matching step 4's locate-or-synthesize rule. Both
	// writes happen in the same transaction per invariant 4.
	err := e.withFinalizeTx(ctx, func(taskRepo *database.TaskRepository, historyRepo *database.HistoryRepository) error {
		if err := historyRepo.FinishRun(ctx, taskID, domain.TaskStatusCancelled, "cancelled", 0, false); err != nil {
			return err
		}
		return taskRepo.UpdateTerminal(ctx, taskID, domain.TaskStatusCancelled, domain.ScrapePhaseCancelled, false, "cancelled")
	})
	if err != nil {
		e.log.Error("executor: finalize transaction (cancel path) failed", "task_id", taskID, "error", err)
	}

	e.publish(taskID, progress.EventTaskProgress, map[string]any{
		"task_id": taskID, "progress": 100, "status": domain.TaskStatusCancelled,
		"scrape_phase": domain.ScrapePhaseCancelled, "message": "cancelled",
	})
	e.publish(taskID, progress.EventTaskFinished, map[string]any{"task_id": taskID, "status": domain.TaskStatusCancelled})
}
