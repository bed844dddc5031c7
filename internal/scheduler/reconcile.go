package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/crawlorc/internal/domain"
)

// Reload runs the full reconcile algorithm of §4.1: it resolves set A
// (auto+active tasks) against set P (persisted jobs) and brings both the
// in-process cron engine and the persistent job store into agreement.
// Per-task failures are logged and do not abort the reconcile; a fatal
// store error (listing tasks or jobs) does.
func (s *Scheduler) Reload(ctx context.Context) error {
	autoTasks, err := s.taskRepo.FindAutoTasks(ctx)
	if err != nil {
		return err
	}
	persisted, err := s.jobStore.List(ctx)
	if err != nil {
		return err
	}

	aSet := make(map[int64]domain.Task, len(autoTasks))
	for _, t := range autoTasks {
		aSet[t.ID] = t
	}
	pSet := make(map[int64]domain.PersistedJob, len(persisted))
	for _, j := range persisted {
		pSet[j.TaskID] = j
	}

	// Step 1: P \ A -> remove. Ordering rule: flip is_scheduled=false
	// first, then remove the persistent job.
	for taskID := range pSet {
		if _, stillAuto := aSet[taskID]; stillAuto {
			continue
		}
		s.reconcileRemoved(ctx, taskID)
	}

	// Step 2: A -> ensure a current persistent job + local cron entry.
	for taskID, task := range aSet {
		s.reconcileTask(ctx, task, pSet[taskID])
	}

	return nil
}

func (s *Scheduler) reconcileRemoved(ctx context.Context, taskID int64) {
	if _, err := s.taskRepo.Get(ctx, taskID); err == nil {
		if toggleErr := s.taskRepo.ToggleScheduledStatus(ctx, taskID, false); toggleErr != nil {
			s.log.Error("reconcile: flip is_scheduled=false failed, leaving persistent job in place",
				"task_id", taskID, "error", toggleErr)
			return
		}
	}
	if err := s.jobStore.Remove(ctx, taskID); err != nil {
		s.log.Error("reconcile: remove stale persistent job failed", "task_id", taskID, "error", err)
		return
	}
	s.removeLocalEntry(taskID)
}

func (s *Scheduler) reconcileTask(ctx context.Context, task domain.Task, existing domain.PersistedJob) {
	_ = existing

	s.mu.Lock()
	local, hasLocal := s.entries[task.ID]
	s.mu.Unlock()

	needsReschedule := !hasLocal || local.cronExpr != task.CronExpression

	newEntryID := local.entryID
	if needsReschedule {
		id, err := s.cron.AddFunc(task.CronExpression, s.dispatchFunc(task.ID))
		if err != nil {
			s.log.Error("reconcile: invalid cron expression", "task_id", task.ID, "cron", task.CronExpression, "error", err)
			return
		}
		newEntryID = id
	}

	s.finishReconcile(ctx, task, needsReschedule, newEntryID, hasLocal, local.entryID)
}

// finishReconcile performs the remaining reconcile steps for one task:
// upsert the persistent job, register the local cron entry, and flip
// is_scheduled=true, compensating per the §4.4 ordering rule if the
// toggle fails after a successful upsert.
func (s *Scheduler) finishReconcile(ctx context.Context, task domain.Task, needsReschedule bool, newEntryID cron.EntryID, hadLocal bool, oldEntryID cron.EntryID) {
	if _, err := s.jobStore.Upsert(ctx, task.ID, task.CronExpression, domain.JSONBMap(task.TaskArgs)); err != nil {
		s.log.Error("reconcile: upsert persistent job failed", "task_id", task.ID, "error", err)
		if needsReschedule {
			s.cron.Remove(newEntryID)
		}
		return
	}

	if needsReschedule {
		if hadLocal {
			s.cron.Remove(oldEntryID)
		}
		s.mu.Lock()
		s.entries[task.ID] = trackedEntry{entryID: newEntryID, cronExpr: task.CronExpression}
		s.mu.Unlock()
	}

	if err := s.taskRepo.ToggleScheduledStatus(ctx, task.ID, true); err != nil {
		s.log.Error("reconcile: flip is_scheduled=true failed, removing persistent job to preserve invariant",
			"task_id", task.ID, "error", err)
		if removeErr := s.jobStore.Remove(ctx, task.ID); removeErr != nil {
			s.log.Error("reconcile: compensation removal also failed", "task_id", task.ID, "error", removeErr)
		}
	}
}

func (s *Scheduler) removeLocalEntry(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[taskID]; ok {
		s.cron.Remove(entry.entryID)
		delete(s.entries, taskID)
	}
}

// AddOrUpdate upserts the persistent job for a single task (§4.1). If the
// task is missing or no longer auto, its persistent job is removed
// instead.
func (s *Scheduler) AddOrUpdate(ctx context.Context, taskID int64) error {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err != nil {
		s.reconcileRemoved(ctx, taskID)
		return nil
	}
	if !task.IsAuto || !task.IsActive {
		s.reconcileRemoved(ctx, taskID)
		return nil
	}
	existing, _ := s.jobStore.Get(ctx, taskID)
	var existingJob domain.PersistedJob
	if existing != nil {
		existingJob = *existing
	}
	s.reconcileTask(ctx, *task, existingJob)
	return nil
}

// Remove removes the persistent job for taskID and sets is_scheduled to
// false. Idempotent: removing an already-absent job succeeds.
func (s *Scheduler) Remove(ctx context.Context, taskID int64) error {
	if _, err := s.taskRepo.Get(ctx, taskID); err == nil {
		if err := s.taskRepo.ToggleScheduledStatus(ctx, taskID, false); err != nil {
			return err
		}
	}
	if err := s.jobStore.Remove(ctx, taskID); err != nil {
		return err
	}
	s.removeLocalEntry(taskID)
	return nil
}

// PersistedJobs returns introspection over every persistent job,
// cross-referenced against current DB task state (§4.1).
func (s *Scheduler) PersistedJobs(ctx context.Context) ([]PersistedJobView, error) {
	jobs, err := s.jobStore.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PersistedJobView, 0, len(jobs))
	for _, j := range jobs {
		view := PersistedJobView{
			JobID:    j.ID,
			TaskID:   j.TaskID,
			CronExpr: j.CronExpr,
			NextRun:  j.NextRun,
		}
		if task, err := s.taskRepo.Get(ctx, j.TaskID); err == nil {
			view.TaskExists = true
			view.TaskActive = task.IsActive
		}
		views = append(views, view)
	}
	return views, nil
}

// fireMisfires implements the 1-hour misfire grace window with coalesce
// (§4.1, SPEC_FULL.md Part D): for each persisted job whose stored
// next_run already elapsed but is within MisfireGrace of now, dispatch
// exactly once; older misses are dropped and logged. robfig/cron/v3 has
// no built-in concept of this, so the orchestrator layers it on at Start.
func (s *Scheduler) fireMisfires(ctx context.Context) {
	jobs, err := s.jobStore.List(ctx)
	if err != nil {
		s.log.Error("misfire check: list persisted jobs failed", "error", err)
		return
	}
	now := time.Now()
	for _, j := range jobs {
		if !j.NextRun.Before(now) {
			continue
		}
		missedBy := now.Sub(j.NextRun)
		if missedBy > MisfireGrace {
			s.log.Warn("misfire outside grace window, dropping", "task_id", j.TaskID, "missed_by", missedBy)
			continue
		}
		s.log.Info("misfire within grace window, firing once", "task_id", j.TaskID, "missed_by", missedBy)
		s.dispatchFunc(j.TaskID)()
	}
}
