package scheduler

import "context"

// dispatchFunc returns the closure registered with the cron engine for
// taskID. On trigger fire (§4.1 "Trigger fire semantics"): re-read the
// task, log a warning and skip if it was deleted or is no longer auto, otherwise
// hand off to the Executor without waiting for it to finish.
func (s *Scheduler) dispatchFunc(taskID int64) func() {
	return func() {
		ctx := context.Background()

		task, err := s.taskRepo.Get(ctx, taskID)
		if err != nil {
			s.log.Warn("trigger fire: task no longer exists, skipping", "task_id", taskID)
			return
		}
		if !task.IsAuto {
			s.log.Warn("trigger fire: task no longer auto, skipping", "task_id", taskID)
			return
		}

		if err := s.dispatcher.Execute(ctx, taskID, map[string]any(task.TaskArgs)); err != nil {
			s.log.Error("trigger fire: dispatch to executor failed", "task_id", taskID, "error", err)
		}
	}
}
