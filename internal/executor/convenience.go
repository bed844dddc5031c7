package executor

import (
	"context"

	"github.com/jonesrussell/crawlorc/internal/domain"
)

// CollectLinksOnly executes taskId with scrape_mode forced to LINKS_ONLY.
func (e *Executor) CollectLinksOnly(ctx context.Context, taskID int64) error {
	return e.executeWithMode(ctx, taskID, domain.ScrapeModeLinksOnly)
}

// FetchContentOnly executes taskId with scrape_mode forced to CONTENT_ONLY.
func (e *Executor) FetchContentOnly(ctx context.Context, taskID int64) error {
	return e.executeWithMode(ctx, taskID, domain.ScrapeModeContentOnly)
}

// FetchFullArticle executes taskId with scrape_mode forced to FULL_SCRAPE.
func (e *Executor) FetchFullArticle(ctx context.Context, taskID int64) error {
	return e.executeWithMode(ctx, taskID, domain.ScrapeModeFullScrape)
}

func (e *Executor) executeWithMode(ctx context.Context, taskID int64, mode domain.ScrapeMode) error {
	task, err := e.taskRepo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	args := domain.WithMode(map[string]any(task.TaskArgs), mode)
	return e.Execute(ctx, taskID, args)
}
