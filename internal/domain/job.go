package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PersistedJob is the scheduler-owned durable trigger row described in
// §6.5: one per auto task, stable id task_{taskID}, stored in the
// scheduler store table separate from the domain store's task/crawler/
// history tables.
type PersistedJob struct {
	ID        string    `db:"id"`
	TaskID    int64     `db:"task_id"`
	CronExpr  string    `db:"cron_expr"`
	NextRun   time.Time `db:"next_run"`
	Args      JSONBMap  `db:"args"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const persistedJobPrefix = "task_"

// PersistedJobID derives the stable job id for a task, per the task_{id}
// naming convention invariant 2 relies on.
func PersistedJobID(taskID int64) string {
	return fmt.Sprintf("%s%d", persistedJobPrefix, taskID)
}

// TaskIDFromJobID parses a job id back into the task id it was derived
// from. ok is false if the id doesn't follow the task_{id} convention.
func TaskIDFromJobID(jobID string) (taskID int64, ok bool) {
	rest, found := strings.CutPrefix(jobID, persistedJobPrefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
