package registry

import (
	"context"
	"sync"

	"github.com/jonesrussell/crawlorc/internal/domain"
)

// FakeCrawler is a hand-authored test double for Crawler, in the same
// spirit as a gomock-generated mock but written by hand since no
// generator runs in this repo. It lets executor/scheduler tests control
// outcome, latency and cancellation behavior deterministically.
type FakeCrawler struct {
	mu           sync.Mutex
	Result       CrawlResult
	Err          error
	CancelResult bool
	started      chan struct{}
	release      chan struct{}
	globalParams map[string]any
	cancelled    bool
}

// NewFakeCrawler returns a FakeCrawler that completes immediately with a
// successful result once ExecuteTask is invoked and release (if set) is
// closed or never blocked on.
func NewFakeCrawler() *FakeCrawler {
	return &FakeCrawler{
		Result:       CrawlResult{Success: true, Message: "ok", ArticlesCount: 1},
		CancelResult: true,
		started:      make(chan struct{}, 1),
		globalParams: make(map[string]any),
	}
}

// BlockUntilReleased makes ExecuteTask wait on a channel the test closes
// explicitly via Release, used to simulate an in-flight crawl during
// cancellation tests.
func (f *FakeCrawler) BlockUntilReleased() *FakeCrawler {
	f.release = make(chan struct{})
	return f
}

// Release unblocks an ExecuteTask call previously set up with
// BlockUntilReleased.
func (f *FakeCrawler) Release() {
	if f.release != nil {
		close(f.release)
	}
}

// Started signals once ExecuteTask has been entered, for tests that need
// to synchronize before calling Cancel.
func (f *FakeCrawler) Started() <-chan struct{} {
	return f.started
}

func (f *FakeCrawler) ExecuteTask(ctx context.Context, taskID int64, args domain.ScrapeOptions) (CrawlResult, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return CrawlResult{}, ctx.Err()
		}
	}

	if f.Err != nil {
		return CrawlResult{}, f.Err
	}
	return f.Result, nil
}

func (f *FakeCrawler) CancelTask(taskID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return f.CancelResult
}

func (f *FakeCrawler) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *FakeCrawler) Progress(taskID int64) (ProgressSnapshot, bool) {
	return ProgressSnapshot{}, false
}

func (f *FakeCrawler) GlobalParams() map[string]any {
	return f.globalParams
}
