package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

func newMockTaskRepo(t *testing.T) (*database.TaskRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")
	return database.NewTaskRepository(db), mock
}

func TestTaskRepository_Create_RejectsAutoWithoutCron(t *testing.T) {
	repo, _ := newMockTaskRepo(t)
	task := &domain.Task{
		TaskName:   "auto-missing-cron",
		CrawlerID:  1,
		IsAuto:     true,
		ScrapeMode: domain.ScrapeModeFullScrape,
	}

	err := repo.Create(context.Background(), task)

	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestTaskRepository_Create_Success(t *testing.T) {
	repo, mock := newMockTaskRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs("T1", int64(1), sqlmock.AnyArg(), true, false, "*/5 * * * *", true,
			3, 0, domain.ScrapeModeFullScrape, domain.TaskStatusInit, domain.ScrapePhaseInit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	task := &domain.Task{
		TaskName:       "T1",
		CrawlerID:      1,
		IsAuto:         true,
		CronExpression: "*/5 * * * *",
		IsActive:       true,
		MaxRetries:     3,
		ScrapeMode:     domain.ScrapeModeFullScrape,
	}

	err := repo.Create(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, int64(1), task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_CompareAndSetRunning_RejectsWhenAlreadyRunning(t *testing.T) {
	repo, mock := newMockTaskRepo(t)

	mock.ExpectExec("UPDATE tasks SET task_status").
		WithArgs(domain.TaskStatusRunning, domain.ScrapePhaseInit, int64(5),
			domain.TaskStatusInit, domain.TaskStatusCompleted, domain.TaskStatusFailed, domain.TaskStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "task_name", "crawler_id", "task_args",
			"is_auto", "is_scheduled", "cron_expression", "is_active",
			"max_retries", "retry_count", "scrape_mode",
			"last_run_at", "last_run_success", "last_run_message",
			"task_status", "scrape_phase", "created_at", "updated_at",
		}).AddRow(5, "T1", 1, []byte("{}"), false, false, "", true,
			0, 0, domain.ScrapeModeFullScrape, nil, nil, "",
			domain.TaskStatusRunning, domain.ScrapePhaseInit, time.Now(), time.Now()))

	err := repo.CompareAndSetRunning(context.Background(), 5)

	require.Error(t, err)
	assert.True(t, apperr.IsAlreadyRunning(err))
}

func TestTaskRepository_Get_NotFound(t *testing.T) {
	repo, mock := newMockTaskRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 404)

	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}
