// Package registry implements the name-based crawler registry called for
// by the design notes in place of the original's dynamic module import:
// crawler implementations register themselves against a name at startup,
// and the Executor resolves a Crawler by that name. No runtime
// class-loading.
//
// Grounded in the teacher's internal/crawler/factory.go
// ProcessorFactory/DefaultProcessorFactory registry-by-type pattern.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/crawlorc/internal/domain"
)

// CrawlResult is what a Crawler implementation reports back to the
// Executor after ExecuteTask returns.
type CrawlResult struct {
	Success       bool
	Message       string
	ArticlesCount int
}

// ProgressSnapshot is the optional richer progress a Crawler may expose
// beyond the Executor's elapsed-time heuristic.
type ProgressSnapshot struct {
	Progress    int
	ScrapePhase domain.ScrapePhase
	Message     string
}

// Crawler is the interface the Executor consumes (§4.2 "Crawler
// Interface"). Concrete HTML-fetching implementations are out of scope
// for this core; only this contract and the registry are specified here.
type Crawler interface {
	// ExecuteTask runs the crawl described by args and blocks until
	// finished or ctx is cancelled.
	ExecuteTask(ctx context.Context, taskID int64, args domain.ScrapeOptions) (CrawlResult, error)

	// CancelTask requests cooperative cancellation of a running
	// execution, returning whether it was acknowledged.
	CancelTask(taskID int64) bool

	// Progress reports optional fine-grained progress; implementations
	// that don't track phases may return the zero value and false.
	Progress(taskID int64) (ProgressSnapshot, bool)

	// GlobalParams exposes a writable map the Executor injects
	// save_partial_results_on_cancel / save_partial_to_database into
	// ahead of calling CancelTask.
	GlobalParams() map[string]any
}

// Factory constructs a fresh Crawler instance for one task execution.
// Crawlers are stateful per-execution (they track their own running
// flag/progress), so the registry hands out a new instance per Execute
// rather than sharing one across concurrent tasks.
type Factory func() Crawler

// Registry is a name-keyed collection of crawler factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates name with factory. Re-registering a name replaces
// the previous factory, matching the teacher's factory.Register override
// behavior used in tests.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New constructs a fresh Crawler for name, or an error if nothing is
// registered under it — the Executor treats this as "crawler missing"
// (§4.2 step 4, §4.3 "Task missing / crawler missing" → FAILED).
func (r *Registry) New(name string) (Crawler, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no crawler registered for %q", name)
	}
	return factory(), nil
}

// Names lists every registered crawler name, for introspection/testing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}
