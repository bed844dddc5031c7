package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/logger"
	"github.com/jonesrussell/crawlorc/internal/progress"
	"github.com/jonesrussell/crawlorc/internal/scheduler"
)

type fakeDispatcher struct {
	calls []int64
}

func (f *fakeDispatcher) Execute(_ context.Context, taskID int64, _ map[string]any) error {
	f.calls = append(f.calls, taskID)
	return nil
}

func newScheduler(t *testing.T) (*scheduler.Scheduler, sqlmock.Sqlmock, *fakeDispatcher) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")

	taskRepo := database.NewTaskRepository(db)
	jobStore := database.NewJobStoreRepository(db)
	dispatcher := &fakeDispatcher{}
	rec := progress.NewRecorder()

	s := scheduler.New(logger.NewNoOp(), taskRepo, jobStore, dispatcher, rec, time.Hour)
	return s, mock, dispatcher
}

var taskColumnsForScheduler = []string{
	"id", "task_name", "crawler_id", "task_args",
	"is_auto", "is_scheduled", "cron_expression", "is_active",
	"max_retries", "retry_count", "scrape_mode",
	"last_run_at", "last_run_success", "last_run_message",
	"task_status", "scrape_phase", "created_at", "updated_at",
}

var jobColumns = []string{"id", "task_id", "cron_expr", "next_run", "args", "created_at", "updated_at"}

func TestScheduler_Reload_CreatesJobForNewAutoTask(t *testing.T) {
	s, mock, _ := newScheduler(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE is_auto").
		WillReturnRows(sqlmock.NewRows(taskColumnsForScheduler).
			AddRow(1, "T1", 1, []byte("{}"), true, false, "*/5 * * * *", true,
				3, 0, domain.ScrapeModeFullScrape, nil, nil, "",
				domain.TaskStatusInit, domain.ScrapePhaseInit, now, now))

	mock.ExpectQuery("SELECT (.+) FROM scheduler_jobs").
		WillReturnRows(sqlmock.NewRows(jobColumns))

	mock.ExpectQuery("INSERT INTO scheduler_jobs").
		WithArgs("task_1", int64(1), "*/5 * * * *", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"next_run", "created_at", "updated_at"}).
			AddRow(now, now, now))

	mock.ExpectExec("UPDATE tasks SET is_scheduled").
		WithArgs(true, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Reload(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_Reload_RemovesJobForDeletedTask(t *testing.T) {
	s, mock, _ := newScheduler(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE is_auto").
		WillReturnRows(sqlmock.NewRows(taskColumnsForScheduler))

	mock.ExpectQuery("SELECT (.+) FROM scheduler_jobs").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("task_9", 9, "*/5 * * * *", now, []byte("{}"), now, now))

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(9)).
		WillReturnError(sqlmock.ErrCancelled)

	mock.ExpectExec("DELETE FROM scheduler_jobs").
		WithArgs("task_9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Reload(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_Stop_WithoutStart_ReturnsNotRunning(t *testing.T) {
	s, _, _ := newScheduler(t)

	err := s.Stop()

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotRunning)
}

func TestScheduler_Status_ReportsJobCount(t *testing.T) {
	s, mock, _ := newScheduler(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE is_auto").
		WillReturnRows(sqlmock.NewRows(taskColumnsForScheduler))
	mock.ExpectQuery("SELECT (.+) FROM scheduler_jobs").
		WillReturnRows(sqlmock.NewRows(jobColumns))

	require.NoError(t, s.Reload(context.Background()))

	status := s.Status()
	assert.Equal(t, 0, status.JobCount)
	assert.False(t, status.Running)
}
