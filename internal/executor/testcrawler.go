package executor

import (
	"context"

	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/registry"
)

// testTaskID is the sentinel task id used for dry runs; no Task or
// History row exists for it, so nothing is persisted (§4.2 "TestCrawler").
const testTaskID int64 = 0

// testMaxPages and testMaxArticles cap a dry run regardless of what the
// caller passes, per §4.2's "capped pages/articles".
const (
	testMaxPages    = 1
	testMaxArticles = 5
)

// TestCrawler runs a capped, non-persisting dry run of a named crawler.
// It uses the process-isolated pool (§5) since dry runs are expected to
// be used for workloads that want isolation from the main pool, and
// bounds the call with DefaultTestTimeout.
func (e *Executor) TestCrawler(ctx context.Context, crawlerName string, params map[string]any) (registry.CrawlResult, error) {
	select {
	case e.processSem <- struct{}{}:
		defer func() { <-e.processSem }()
	case <-ctx.Done():
		return registry.CrawlResult{}, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTestTimeout)
	defer cancel()

	crawlerInstance, err := e.registry.New(crawlerName)
	if err != nil {
		return registry.CrawlResult{}, err
	}

	opts, err := domain.DecodeScrapeOptions(domain.WithMode(params, domain.ScrapeModeLinksOnly))
	if err != nil {
		return registry.CrawlResult{}, err
	}
	opts.SaveToCSV = false
	opts.SaveToDatabase = false
	if opts.MaxPages <= 0 || opts.MaxPages > testMaxPages {
		opts.MaxPages = testMaxPages
	}
	if opts.NumArticles <= 0 || opts.NumArticles > testMaxArticles {
		opts.NumArticles = testMaxArticles
	}

	return crawlerInstance.ExecuteTask(ctx, testTaskID, opts)
}
