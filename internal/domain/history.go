package domain

import "time"

// TaskHistory is one record per execution attempt of a Task.
type TaskHistory struct {
	ID             int64      `db:"id"`
	TaskID         int64      `db:"task_id"`
	StartTime      time.Time  `db:"start_time"`
	EndTime        *time.Time `db:"end_time"`
	TaskStatus     TaskStatus `db:"task_status"`
	Message        string     `db:"message"`
	ArticlesCount  int        `db:"articles_count"`
	Success        bool       `db:"success"`
}

// IsRunning reports whether this history row represents the single
// currently-in-flight attempt for its task (invariant 3: at most one such
// row per task may exist at a time).
func (h *TaskHistory) IsRunning() bool {
	return h.TaskStatus == TaskStatusRunning && h.EndTime == nil
}

// TaskHistoryStats is an aggregate view over a task's (or all tasks')
// history rows, grounded in the original service's statistics endpoints.
type TaskHistoryStats struct {
	TotalRuns     int64
	SuccessRuns   int64
	FailedRuns    int64
	CancelledRuns int64
	FailureRate   float64
}
