package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

const jobStoreColumns = `id, task_id, cron_expr, next_run, args,
	created_at, updated_at`

// JobStoreRepository is the scheduler-owned persistent job store of
// §6.5: one table for persistent jobs, separate from the domain store's
// tables. Only the Scheduler is permitted to write through this
// repository (§3 ownership).
type JobStoreRepository struct {
	db dbtx
}

// NewJobStoreRepository creates a new job store repository bound to the
// connection pool.
func NewJobStoreRepository(db *sqlx.DB) *JobStoreRepository {
	return &JobStoreRepository{db: db}
}

// WithTx returns a repository bound to tx instead of the pool.
func (r *JobStoreRepository) WithTx(tx *sqlx.Tx) *JobStoreRepository {
	return &JobStoreRepository{db: tx}
}

// Upsert creates or replaces the persistent job for a task id, per
// AddOrUpdate (§4.1): "If a persistent job exists but its cron expression
// differs from the task's: replace it."
func (r *JobStoreRepository) Upsert(ctx context.Context, taskID int64, cronExpr string, args domain.JSONBMap) (*domain.PersistedJob, error) {
	job := &domain.PersistedJob{
		ID:       domain.PersistedJobID(taskID),
		TaskID:   taskID,
		CronExpr: cronExpr,
		Args:     args,
	}
	query := `INSERT INTO scheduler_jobs (id, task_id, cron_expr, next_run, args)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (id) DO UPDATE SET
			cron_expr = EXCLUDED.cron_expr,
			args = EXCLUDED.args,
			updated_at = NOW()
		RETURNING next_run, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, job.ID, taskID, cronExpr, args).
		Scan(&job.NextRun, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, apperr.NewSchedulerError("upsert persistent job", err)
	}
	return job, nil
}

// Remove deletes the persistent job for a task id. Idempotent: removing
// an absent job is not an error (§8 "Remove(t) then Remove(t) succeeds").
func (r *JobStoreRepository) Remove(ctx context.Context, taskID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduler_jobs WHERE id = $1`, domain.PersistedJobID(taskID))
	if err != nil {
		return apperr.NewSchedulerError("remove persistent job", err)
	}
	return nil
}

// Get fetches the persistent job for a task id.
func (r *JobStoreRepository) Get(ctx context.Context, taskID int64) (*domain.PersistedJob, error) {
	var job domain.PersistedJob
	query := `SELECT ` + jobStoreColumns + ` FROM scheduler_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, domain.PersistedJobID(taskID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("persistent job", domain.PersistedJobID(taskID))
		}
		return nil, apperr.NewSchedulerError("get persistent job", err)
	}
	return &job, nil
}

// List returns every persistent job, used by Reconcile to compute set P
// and by PersistedJobs() introspection (§4.1).
func (r *JobStoreRepository) List(ctx context.Context) ([]domain.PersistedJob, error) {
	var jobs []domain.PersistedJob
	query := `SELECT ` + jobStoreColumns + ` FROM scheduler_jobs ORDER BY task_id`
	if err := r.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, apperr.NewSchedulerError("list persistent jobs", err)
	}
	return jobs, nil
}
