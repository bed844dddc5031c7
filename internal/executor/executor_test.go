package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/executor"
	"github.com/jonesrussell/crawlorc/internal/logger"
	"github.com/jonesrussell/crawlorc/internal/progress"
	"github.com/jonesrussell/crawlorc/internal/registry"
)

var taskColumns = []string{
	"id", "task_name", "crawler_id", "task_args",
	"is_auto", "is_scheduled", "cron_expression", "is_active",
	"max_retries", "retry_count", "scrape_mode",
	"last_run_at", "last_run_success", "last_run_message",
	"task_status", "scrape_phase", "created_at", "updated_at",
}

var crawlerColumns = []string{"id", "crawler_name", "crawler_type", "module_name", "base_url", "config_file_name", "is_active", "created_at", "updated_at"}

func newTestSetup(t *testing.T) (*executor.Executor, sqlmock.Sqlmock, *registry.Registry, *progress.Recorder) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")

	taskRepo := database.NewTaskRepository(db)
	crawlerRepo := database.NewCrawlerRepository(db)
	historyRepo := database.NewHistoryRepository(db)
	reg := registry.NewRegistry()
	rec := progress.NewRecorder()

	exec := executor.New(logger.NewNoOp(), db, taskRepo, crawlerRepo, historyRepo, reg, rec,
		executor.Config{Workers: 4, ProcessWorkers: 2})
	return exec, mock, reg, rec
}

func TestExecutor_Execute_RejectsAlreadyRunning(t *testing.T) {
	exec, mock, _, _ := newTestSetup(t)
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(1, "T1", 1, []byte("{}"), false, false, "", true,
				3, 0, domain.ScrapeModeFullScrape, nil, nil, "",
				domain.TaskStatusInit, domain.ScrapePhaseInit, now, now))

	mock.ExpectExec("UPDATE tasks SET task_status").
		WithArgs(domain.TaskStatusRunning, domain.ScrapePhaseInit, int64(1),
			domain.TaskStatusInit, domain.TaskStatusCompleted, domain.TaskStatusFailed, domain.TaskStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(1, "T1", 1, []byte("{}"), false, false, "", true,
				3, 0, domain.ScrapeModeFullScrape, nil, nil, "",
				domain.TaskStatusRunning, domain.ScrapePhaseInit, now, now))

	mock.ExpectRollback()

	err := exec.Execute(context.Background(), 1, map[string]any{})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Execute_RunsCrawlerAndFinalizesSuccess(t *testing.T) {
	exec, mock, reg, rec := newTestSetup(t)
	now := time.Now()
	fake := registry.NewFakeCrawler()
	reg.Register("example", func() registry.Crawler { return fake })

	mock.ExpectBegin()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(1, "T1", 1, []byte("{}"), false, false, "", true,
				3, 0, domain.ScrapeModeFullScrape, nil, nil, "",
				domain.TaskStatusInit, domain.ScrapePhaseInit, now, now))

	mock.ExpectExec("UPDATE tasks SET task_status").
		WithArgs(domain.TaskStatusRunning, domain.ScrapePhaseInit, int64(1),
			domain.TaskStatusInit, domain.TaskStatusCompleted, domain.TaskStatusFailed, domain.TaskStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("INSERT INTO task_history").
		WithArgs(int64(1), domain.TaskStatusRunning, "task starting").
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time"}).AddRow(int64(10), now))

	mock.ExpectCommit()

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(1, "T1", 1, []byte("{}"), false, false, "", true,
				3, 0, domain.ScrapeModeFullScrape, nil, nil, "",
				domain.TaskStatusRunning, domain.ScrapePhaseInit, now, now))

	mock.ExpectQuery("SELECT (.+) FROM crawlers WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(crawlerColumns).
			AddRow(1, "Example", "example", "example_module", "https://example.com", "example.yaml", true, now, now))

	mock.ExpectBegin()

	mock.ExpectExec("UPDATE task_history SET").
		WithArgs(domain.TaskStatusCompleted, "ok", 1, true, int64(1), domain.TaskStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE tasks SET").
		WithArgs(domain.TaskStatusCompleted, domain.ScrapePhaseCompleted, true, "ok", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := exec.Execute(context.Background(), 1, map[string]any{})
	require.NoError(t, err)

	select {
	case <-fake.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("crawler never started")
	}

	require.Eventually(t, func() bool {
		return len(exec.RunningTasks()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	events := rec.EventsForRoom(progress.Room(1))
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.EventTaskFinished, last.Name)
	assert.Equal(t, domain.TaskStatusCompleted, last.Data["status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Cancel_NotRunningIsNoop(t *testing.T) {
	exec, _, _, _ := newTestSetup(t)

	cancelled, err := exec.Cancel(context.Background(), 999, nil)

	require.NoError(t, err)
	assert.False(t, cancelled)
}
