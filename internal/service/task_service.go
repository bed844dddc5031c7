package service

import (
	"context"

	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
)

// SchedulerSync is the subset of the Scheduler the Task Service depends
// on to keep persistent jobs in sync with task definition edits, rather
// than waiting for the next periodic Reload (§4.1/§4.4).
type SchedulerSync interface {
	AddOrUpdate(ctx context.Context, taskID int64) error
	Remove(ctx context.Context, taskID int64) error
}

// TaskService is the Task Service of §4.4 ("validated CRUD + history
// queries for tasks").
type TaskService struct {
	repo        *database.TaskRepository
	historyRepo *database.HistoryRepository
	scheduler   SchedulerSync
}

// NewTaskService constructs a TaskService. scheduler may be nil in
// contexts that only need CRUD (e.g. a migration tool); task mutations
// then skip the synchronous persistent-job sync and rely on the next
// periodic Reload instead.
func NewTaskService(repo *database.TaskRepository, historyRepo *database.HistoryRepository, scheduler SchedulerSync) *TaskService {
	return &TaskService{repo: repo, historyRepo: historyRepo, scheduler: scheduler}
}

// Create validates and inserts a task, then synchronizes its persistent
// job if it is auto and active.
func (s *TaskService) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.syncSchedule(ctx, t)
	return t, nil
}

// Update validates and replaces a task's definition, then resynchronizes
// its persistent job (creating, replacing, or removing it as needed).
func (s *TaskService) Update(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.syncSchedule(ctx, t)
	return t, nil
}

// Delete removes a task's persistent job (if any) before deleting the
// row; history rows are retained (§3 "Deletion removes its persistent
// job (if any); history rows are retained").
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if s.scheduler != nil {
		_ = s.scheduler.Remove(ctx, id)
	}
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) syncSchedule(ctx context.Context, t *domain.Task) {
	if s.scheduler == nil {
		return
	}
	if t.IsAuto && t.IsActive {
		_ = s.scheduler.AddOrUpdate(ctx, t.ID)
	} else {
		_ = s.scheduler.Remove(ctx, t.ID)
	}
}

// Get fetches a task by id.
func (s *TaskService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.repo.Get(ctx, id)
}

// List returns every task.
func (s *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	return s.repo.List(ctx)
}

// ToggleActive flips a task's is_active flag and resynchronizes its
// persistent job accordingly.
func (s *TaskService) ToggleActive(ctx context.Context, id int64, active bool) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	t.IsActive = active
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.syncSchedule(ctx, t)
	return nil
}

// History returns every execution attempt for a task, most recent first.
func (s *TaskService) History(ctx context.Context, taskID int64) ([]domain.TaskHistory, error) {
	return s.historyRepo.ListByTask(ctx, taskID)
}

// HistoryStats returns aggregate success/failure statistics for a task.
func (s *TaskService) HistoryStats(ctx context.Context, taskID int64) (domain.TaskHistoryStats, error) {
	return s.historyRepo.Stats(ctx, taskID)
}
