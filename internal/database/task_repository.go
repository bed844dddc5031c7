package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

// cronParser parses the same five fields (minute, hour, day-of-month,
// month, day-of-week) the Scheduler's own parser accepts
// (internal/scheduler.New), so a cron_expression validated here is
// guaranteed to also parse when the Scheduler later registers it.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// taskColumns lists columns for task SELECT queries.
const taskColumns = `id, task_name, crawler_id, task_args,
	is_auto, is_scheduled, cron_expression, is_active,
	max_retries, retry_count, scrape_mode,
	last_run_at, last_run_success, last_run_message,
	task_status, scrape_phase, created_at, updated_at`

// taskInsertColumns lists columns for task INSERT operations.
const taskInsertColumns = `task_name, crawler_id, task_args,
	is_auto, is_scheduled, cron_expression, is_active,
	max_retries, retry_count, scrape_mode,
	task_status, scrape_phase`

// ValidationMode discriminates CREATE from UPDATE validation per §4.4.
type ValidationMode int

const (
	ValidationCreate ValidationMode = iota
	ValidationUpdate
)

// TaskRepository is the repository contract for Tasks, exposing typed
// CRUD plus the domain queries §4.4 calls for (FindAutoTasks etc).
type TaskRepository struct {
	db dbtx
}

// NewTaskRepository creates a new task repository bound to the
// connection pool.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Validate enforces the cross-field rule is_auto ⇒ cron_expression and
// basic field shape, returning a ValidationError on violation. Both
// CREATE and UPDATE share this rule; UPDATE additionally requires an id.
func Validate(t *domain.Task, mode ValidationMode) error {
	if t.TaskName == "" {
		return apperr.NewValidationError("task_name", "must not be empty")
	}
	if t.CrawlerID == 0 {
		return apperr.NewValidationError("crawler_id", "must reference a crawler")
	}
	if t.IsAuto {
		if t.CronExpression == "" {
			return apperr.NewValidationError("cron_expression", "required when is_auto is true")
		}
		if _, err := cronParser.Parse(t.CronExpression); err != nil {
			return apperr.NewValidationError("cron_expression", "must be a valid 5-field cron expression")
		}
	}
	if t.MaxRetries < 0 {
		return apperr.NewValidationError("max_retries", "must be >= 0")
	}
	switch t.ScrapeMode {
	case domain.ScrapeModeLinksOnly, domain.ScrapeModeContentOnly, domain.ScrapeModeFullScrape:
	default:
		return apperr.NewValidationError("scrape_mode", "must be one of LINKS_ONLY, CONTENT_ONLY, FULL_SCRAPE")
	}
	if mode == ValidationUpdate && t.ID == 0 {
		return apperr.NewValidationError("id", "required for update")
	}
	return nil
}

// Create inserts a new task after validating it.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if err := Validate(t, ValidationCreate); err != nil {
		return err
	}
	if t.TaskStatus == "" {
		t.TaskStatus = domain.TaskStatusInit
	}
	if t.ScrapePhase == "" {
		t.ScrapePhase = domain.ScrapePhaseInit
	}

	query := `INSERT INTO tasks (` + taskInsertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.TaskName, t.CrawlerID, t.TaskArgs,
		t.IsAuto, t.IsScheduled, t.CronExpression, t.IsActive,
		t.MaxRetries, t.RetryCount, t.ScrapeMode,
		t.TaskStatus, t.ScrapePhase,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return apperr.NewDatabaseOperationError("create task", err)
	}
	return nil
}

// Update persists full-row edits to a task (definition edits from the
// API). Mirror/status fields mutated by the Executor go through
// CompareAndSetRunning/UpdateTerminal instead, which don't re-run full
// validation.
func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	if err := Validate(t, ValidationUpdate); err != nil {
		return err
	}

	query := `UPDATE tasks SET
		task_name = $1, crawler_id = $2, task_args = $3,
		is_auto = $4, cron_expression = $5, is_active = $6,
		max_retries = $7, scrape_mode = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		t.TaskName, t.CrawlerID, t.TaskArgs,
		t.IsAuto, t.CronExpression, t.IsActive,
		t.MaxRetries, t.ScrapeMode, t.ID,
	)
	return execRequireRows(result, wrapDBErr("update task", err), apperr.NewNotFoundError("task", t.ID))
}

// Get fetches a task by id.
func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("task", id)
		}
		return nil, apperr.NewDatabaseOperationError("get task", err)
	}
	return &t, nil
}

// Delete removes a task. History rows are retained per §3's lifecycle
// ("deletion removes its persistent job... history rows are retained");
// the persistent job removal itself is the Scheduler's responsibility,
// triggered by the calling service.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return execRequireRows(result, wrapDBErr("delete task", err), apperr.NewNotFoundError("task", id))
}

// List returns all tasks, most recently created first.
func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, apperr.NewDatabaseOperationError("list tasks", err)
	}
	return tasks, nil
}

// FindAutoTasks returns tasks eligible for scheduler dispatch: is_auto and
// is_active, the set "A" the Reconcile algorithm (§4.1) computes.
func (r *TaskRepository) FindAutoTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE is_auto = true AND is_active = true ORDER BY id`
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, apperr.NewDatabaseOperationError("find auto tasks", err)
	}
	return tasks, nil
}

// ToggleScheduledStatus flips is_scheduled, used by the Scheduler to keep
// invariant 2 (is_scheduled ⇔ persistent job exists) in sync.
func (r *TaskRepository) ToggleScheduledStatus(ctx context.Context, id int64, scheduled bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_scheduled = $1, updated_at = NOW() WHERE id = $2`, scheduled, id)
	return execRequireRows(result, wrapDBErr("toggle scheduled status", err), apperr.NewNotFoundError("task", id))
}

// CompareAndSetRunning implements the Execute pre-check's AlreadyRunning
// guard: it transitions the task to RUNNING/INIT only if its current
// status is terminal, returning apperr.AlreadyRunningError otherwise.
func (r *TaskRepository) CompareAndSetRunning(ctx context.Context, id int64) error {
	query := `UPDATE tasks SET task_status = $1, scrape_phase = $2, updated_at = NOW()
		WHERE id = $3 AND task_status IN ($4, $5, $6, $7)`
	result, err := r.db.ExecContext(ctx, query,
		domain.TaskStatusRunning, domain.ScrapePhaseInit, id,
		domain.TaskStatusInit, domain.TaskStatusCompleted, domain.TaskStatusFailed, domain.TaskStatusCancelled,
	)
	if err != nil {
		return apperr.NewDatabaseOperationError("compare-and-set running", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.NewDatabaseOperationError("compare-and-set running", err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperr.NewAlreadyRunningError(id)
	}
	return nil
}

// UpdateTerminal writes the task's status/phase/mirror fields at the end
// of an execution (invariant 4: same transaction as the History update).
func (r *TaskRepository) UpdateTerminal(ctx context.Context, id int64, status domain.TaskStatus, phase domain.ScrapePhase, success bool, message string) error {
	query := `UPDATE tasks SET
		task_status = $1, scrape_phase = $2,
		last_run_at = NOW(), last_run_success = $3, last_run_message = $4,
		updated_at = NOW()
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, status, phase, success, message, id)
	return execRequireRows(result, wrapDBErr("update task terminal state", err), apperr.NewNotFoundError("task", id))
}

// WithTx returns a repository bound to tx instead of the pool, used by
// services that need this repository's statements inside a caller-owned
// transaction (§4.4: "repositories never open their own transactions").
func (r *TaskRepository) WithTx(tx *sqlx.Tx) *TaskRepository {
	return &TaskRepository{db: tx}
}

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.NewDatabaseOperationError(op, err)
}
