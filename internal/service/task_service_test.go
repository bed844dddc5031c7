package service_test

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
	"github.com/jonesrussell/crawlorc/internal/service"
)

type fakeScheduler struct {
	addOrUpdateCalls []int64
	removeCalls      []int64
}

func (f *fakeScheduler) AddOrUpdate(_ context.Context, taskID int64) error {
	f.addOrUpdateCalls = append(f.addOrUpdateCalls, taskID)
	return nil
}

func (f *fakeScheduler) Remove(_ context.Context, taskID int64) error {
	f.removeCalls = append(f.removeCalls, taskID)
	return nil
}

func TestTaskService_Create_SyncsScheduleForAutoTask(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "postgres")
	now := time.Now()

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs("T1", int64(1), sqlmock.AnyArg(), true, false, "*/5 * * * *", true,
			3, 0, domain.ScrapeModeFullScrape, domain.TaskStatusInit, domain.ScrapePhaseInit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	repo := database.NewTaskRepository(db)
	histRepo := database.NewHistoryRepository(db)
	sched := &fakeScheduler{}
	svc := service.NewTaskService(repo, histRepo, sched)

	task := &domain.Task{
		TaskName:       "T1",
		CrawlerID:      1,
		IsAuto:         true,
		CronExpression: "*/5 * * * *",
		IsActive:       true,
		MaxRetries:     3,
		ScrapeMode:     domain.ScrapeModeFullScrape,
	}

	created, err := svc.Create(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, []int64{7}, sched.addOrUpdateCalls)
	assert.Empty(t, sched.removeCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_Delete_RemovesScheduleBeforeRow(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "postgres")

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := database.NewTaskRepository(db)
	histRepo := database.NewHistoryRepository(db)
	sched := &fakeScheduler{}
	svc := service.NewTaskService(repo, histRepo, sched)

	err = svc.Delete(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int64{3}, sched.removeCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
