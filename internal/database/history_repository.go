package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

const historyColumns = `id, task_id, start_time, end_time,
	task_status, message, articles_count, success`

// HistoryRepository is the repository contract for TaskHistory rows.
type HistoryRepository struct {
	db dbtx
}

// NewHistoryRepository creates a new history repository bound to the
// connection pool.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a repository bound to tx instead of the pool.
func (r *HistoryRepository) WithTx(tx *sqlx.Tx) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// StartRun inserts the RUNNING history row created during the Execute
// pre-check (§4.2 step 1).
func (r *HistoryRepository) StartRun(ctx context.Context, taskID int64, message string) (*domain.TaskHistory, error) {
	h := domain.TaskHistory{
		TaskID:     taskID,
		TaskStatus: domain.TaskStatusRunning,
		Message:    message,
	}
	query := `INSERT INTO task_history (task_id, start_time, task_status, message, articles_count, success)
		VALUES ($1, NOW(), $2, $3, 0, false)
		RETURNING id, start_time`
	err := r.db.QueryRowContext(ctx, query, taskID, h.TaskStatus, message).Scan(&h.ID, &h.StartTime)
	if err != nil {
		return nil, apperr.NewDatabaseOperationError("start task history", err)
	}
	return &h, nil
}

// FinishRun writes the terminal fields onto the currently-running history
// row for taskID (invariant 3/4/6: the running row is the only one ever
// mutated, and it becomes immutable once terminal).
func (r *HistoryRepository) FinishRun(ctx context.Context, taskID int64, status domain.TaskStatus, message string, articlesCount int, success bool) error {
	query := `UPDATE task_history SET
		end_time = NOW(), task_status = $1, message = $2, articles_count = $3, success = $4
		WHERE task_id = $5 AND task_status = $6 AND end_time IS NULL`
	result, err := r.db.ExecContext(ctx, query, status, message, articlesCount, success, taskID, domain.TaskStatusRunning)
	if err != nil {
		return apperr.NewDatabaseOperationError("finish task history", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.NewDatabaseOperationError("finish task history", err)
	}
	if n == 0 {
		// No running row found (executor state says there should be one);
		// synthesize a terminal row so the attempt is still durable.
		return r.synthesizeTerminal(ctx, taskID, status, message, articlesCount, success)
	}
	return nil
}

func (r *HistoryRepository) synthesizeTerminal(ctx context.Context, taskID int64, status domain.TaskStatus, message string, articlesCount int, success bool) error {
	query := `INSERT INTO task_history (task_id, start_time, end_time, task_status, message, articles_count, success)
		VALUES ($1, NOW(), NOW(), $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, taskID, status, message, articlesCount, success)
	if err != nil {
		return apperr.NewDatabaseOperationError("synthesize task history", err)
	}
	return nil
}

// GetRunning returns the currently-running history row for a task, if
// any. The Executor's finalize and cancel paths do not call it; they rely
// on FinishRun's own locate-or-synthesize behavior.
func (r *HistoryRepository) GetRunning(ctx context.Context, taskID int64) (*domain.TaskHistory, error) {
	var h domain.TaskHistory
	query := `SELECT ` + historyColumns + ` FROM task_history
		WHERE task_id = $1 AND task_status = $2 AND end_time IS NULL`
	if err := r.db.GetContext(ctx, &h, query, taskID, domain.TaskStatusRunning); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("running task_history", taskID)
		}
		return nil, apperr.NewDatabaseOperationError("get running task history", err)
	}
	return &h, nil
}

// GetLatest returns the most recent history row for a task, running or
// terminal, used by the Executor's Status precedence (§4.2).
func (r *HistoryRepository) GetLatest(ctx context.Context, taskID int64) (*domain.TaskHistory, error) {
	var h domain.TaskHistory
	query := `SELECT ` + historyColumns + ` FROM task_history
		WHERE task_id = $1 ORDER BY start_time DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &h, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("task_history", taskID)
		}
		return nil, apperr.NewDatabaseOperationError("get latest task history", err)
	}
	return &h, nil
}

// ListByTask returns every history row for a task, most recent first.
func (r *HistoryRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.TaskHistory, error) {
	var rows []domain.TaskHistory
	query := `SELECT ` + historyColumns + ` FROM task_history WHERE task_id = $1 ORDER BY start_time DESC`
	if err := r.db.SelectContext(ctx, &rows, query, taskID); err != nil {
		return nil, apperr.NewDatabaseOperationError("list task history", err)
	}
	return rows, nil
}

// Stats computes aggregate statistics over a task's history, grounded in
// the original's task-history statistics endpoints and the teacher's
// execution_repository.go analytics queries.
func (r *HistoryRepository) Stats(ctx context.Context, taskID int64) (domain.TaskHistoryStats, error) {
	var stats domain.TaskHistoryStats
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE task_status = $1) AS completed,
		COUNT(*) FILTER (WHERE task_status = $2) AS failed,
		COUNT(*) FILTER (WHERE task_status = $3) AS cancelled
		FROM task_history WHERE task_id = $4`
	row := r.db.QueryRowContext(ctx, query,
		domain.TaskStatusCompleted, domain.TaskStatusFailed, domain.TaskStatusCancelled, taskID)
	var total, completed, failed, cancelled int64
	if err := row.Scan(&total, &completed, &failed, &cancelled); err != nil {
		return stats, apperr.NewDatabaseOperationError("task history stats", err)
	}
	stats = domain.TaskHistoryStats{
		TotalRuns:     total,
		SuccessRuns:   completed,
		FailedRuns:    failed,
		CancelledRuns: cancelled,
	}
	if total > 0 {
		stats.FailureRate = float64(failed) / float64(total)
	}
	return stats, nil
}
