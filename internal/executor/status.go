package executor

import (
	"context"
	"math"
	"time"

	"github.com/jonesrussell/crawlorc/internal/domain"
)

// TaskStatusView is the Status(taskId) payload (§4.2).
type TaskStatusView struct {
	TaskStatus    domain.TaskStatus
	ScrapePhase   domain.ScrapePhase
	Progress      int
	Message       string
	ArticlesCount int
}

// Status merges in-memory state with the latest history row, in-memory
// winning when the task is live (§4.2 "State reporting precedence").
func (e *Executor) Status(ctx context.Context, taskID int64) (TaskStatusView, error) {
	e.mu.Lock()
	entry, running := e.running[taskID]
	e.mu.Unlock()

	if running {
		phase := domain.ScrapePhaseInit
		message := "running"
		if entry.crawlerSet && entry.crawler != nil {
			if snap, ok := entry.crawler.Progress(taskID); ok {
				return TaskStatusView{
					TaskStatus:  domain.TaskStatusRunning,
					ScrapePhase: snap.ScrapePhase,
					Progress:    snap.Progress,
					Message:     snap.Message,
				}, nil
			}
		}
		return TaskStatusView{
			TaskStatus:  domain.TaskStatusRunning,
			ScrapePhase: phase,
			Progress:    elapsedProgress(entry.startedAt),
			Message:     message,
		}, nil
	}

	h, err := e.historyRepo.GetLatest(ctx, taskID)
	if err == nil {
		if h.TaskStatus.IsTerminal() {
			return TaskStatusView{
				TaskStatus:    h.TaskStatus,
				ScrapePhase:   terminalPhaseFor(h.TaskStatus),
				Progress:      100,
				Message:       h.Message,
				ArticlesCount: h.ArticlesCount,
			}, nil
		}
		// Exceptional: a history row stuck RUNNING with no in-memory
		// entry (e.g. after a crash). Estimate against the same
		// 5-minute reference used for live executions.
		return TaskStatusView{
			TaskStatus:  domain.TaskStatusRunning,
			ScrapePhase: domain.ScrapePhaseUnknown,
			Progress:    elapsedProgress(h.StartTime),
			Message:     h.Message,
		}, nil
	}

	task, err := e.taskRepo.Get(ctx, taskID)
	if err != nil {
		return TaskStatusView{}, err
	}
	return TaskStatusView{
		TaskStatus:  task.TaskStatus,
		ScrapePhase: task.ScrapePhase,
		Message:     task.LastRunMessage,
	}, nil
}

func elapsedProgress(start time.Time) int {
	elapsed := time.Since(start).Seconds()
	pct := int(math.Floor(elapsed / progressReferenceSeconds * 100))
	if pct > 95 {
		return 95
	}
	if pct < 0 {
		return 0
	}
	return pct
}

func terminalPhaseFor(status domain.TaskStatus) domain.ScrapePhase {
	switch status {
	case domain.TaskStatusCompleted:
		return domain.ScrapePhaseCompleted
	case domain.TaskStatusCancelled:
		return domain.ScrapePhaseCancelled
	case domain.TaskStatusFailed:
		return domain.ScrapePhaseFailed
	default:
		return domain.ScrapePhaseUnknown
	}
}
