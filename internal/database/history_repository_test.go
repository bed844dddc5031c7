package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

func newMockHistoryRepo(t *testing.T) (*database.HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")
	return database.NewHistoryRepository(db), mock
}

func TestHistoryRepository_StartRun(t *testing.T) {
	repo, mock := newMockHistoryRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO task_history").
		WithArgs(int64(1), domain.TaskStatusRunning, "task starting").
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time"}).AddRow(int64(10), now))

	h, err := repo.StartRun(context.Background(), 1, "task starting")

	require.NoError(t, err)
	require.Equal(t, int64(10), h.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_FinishRun_UpdatesRunningRow(t *testing.T) {
	repo, mock := newMockHistoryRepo(t)

	mock.ExpectExec("UPDATE task_history SET").
		WithArgs(domain.TaskStatusCompleted, "done", 5, true, int64(1), domain.TaskStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FinishRun(context.Background(), 1, domain.TaskStatusCompleted, "done", 5, true)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_FinishRun_SynthesizesWhenNoRunningRow(t *testing.T) {
	repo, mock := newMockHistoryRepo(t)

	mock.ExpectExec("UPDATE task_history SET").
		WithArgs(domain.TaskStatusFailed, "crawler missing", 0, false, int64(2), domain.TaskStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("INSERT INTO task_history").
		WithArgs(int64(2), domain.TaskStatusFailed, "crawler missing", 0, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.FinishRun(context.Background(), 2, domain.TaskStatusFailed, "crawler missing", 0, false)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
