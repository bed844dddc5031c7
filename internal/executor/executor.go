// Package executor implements the Task Executor of §4.2: a bounded
// concurrent runner that drives one task through the crawler interface,
// tracks its lifecycle, and finalizes Task/History state via three
// disjoint short transactions rather than one long-running one.
//
// The bounded-pool shape (a semaphore channel plus a WaitGroup) is
// grounded in the teacher's internal/worker/pool.go; the running-task
// bookkeeping is new, built against §4.2/§5's single-lock, map-based
// invariant (at most one RUNNING entry per task).
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/logger"
	"github.com/jonesrussell/crawlorc/internal/progress"
	"github.com/jonesrussell/crawlorc/internal/registry"
)

// DefaultTestTimeout bounds TestCrawler dry runs (§5 "a default crawler
// test timeout of 30 seconds").
const DefaultTestTimeout = 30 * time.Second

// progressReferenceSeconds is the elapsed-time denominator of the
// no-explicit-progress heuristic (§4.2): progress = min(95, elapsed/300*100).
const progressReferenceSeconds = 300.0

// Config bounds the Executor's two worker pools (§5).
type Config struct {
	// Workers is the size of the main bounded pool, default 10.
	Workers int
	// ProcessWorkers is the size of the process-isolated pool used by
	// TestCrawler dry runs, default 5.
	ProcessWorkers int
}

type runningExecution struct {
	cancel      context.CancelFunc
	startedAt   time.Time
	crawler     registry.Crawler
	crawlerSet  bool
	cancelledOk bool
}

// Executor is the Task Executor of §4.2.
type Executor struct {
	log         logger.Interface
	db          *sqlx.DB
	taskRepo    *database.TaskRepository
	crawlerRepo *database.CrawlerRepository
	historyRepo *database.HistoryRepository
	registry    *registry.Registry
	publisher   progress.Publisher

	sem        chan struct{}
	processSem chan struct{}
	wg         sync.WaitGroup

	mu      sync.Mutex
	running map[int64]*runningExecution
}

// New constructs an Executor. cfg.Workers and cfg.ProcessWorkers must
// already be clamped to >=1 by the caller (internal/config defaults).
// db is used to open the pre-check and finalize transactions (§4.4
// "three disjoint short transactions per execution"); taskRepo/
// historyRepo are rebound to each transaction via WithTx rather than
// having the Executor write through the pool directly.
func New(log logger.Interface, db *sqlx.DB, taskRepo *database.TaskRepository, crawlerRepo *database.CrawlerRepository,
	historyRepo *database.HistoryRepository, reg *registry.Registry, publisher progress.Publisher, cfg Config,
) *Executor {
	return &Executor{
		log:         log,
		db:          db,
		taskRepo:    taskRepo,
		crawlerRepo: crawlerRepo,
		historyRepo: historyRepo,
		registry:    reg,
		publisher:   publisher,
		sem:         make(chan struct{}, cfg.Workers),
		processSem:  make(chan struct{}, cfg.ProcessWorkers),
		running:     make(map[int64]*runningExecution),
	}
}

// Execute submits a task for execution (§4.2 "Execute pipeline"). The
// pre-check (step 1-3) runs synchronously so AlreadyRunning is reported
// before any pool slot is claimed; the crawler run and finalize (step
// 4-7) happen in a background goroutine, bounded by the worker pool.
func (e *Executor) Execute(ctx context.Context, taskID int64, args map[string]any) error {
	e.mu.Lock()
	if _, inFlight := e.running[taskID]; inFlight {
		e.mu.Unlock()
		return apperr.NewAlreadyRunningError(taskID)
	}
	e.mu.Unlock()

	task, err := e.precheck(ctx, taskID)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	entry := &runningExecution{cancel: cancel, startedAt: time.Now()}

	e.mu.Lock()
	e.running[taskID] = entry
	e.mu.Unlock()

	e.publish(taskID, progress.EventTaskProgress, map[string]any{
		"task_id": taskID, "progress": 5, "status": domain.TaskStatusRunning,
		"scrape_phase": domain.ScrapePhaseInit, "message": "starting",
	})

	if args == nil {
		args = map[string]any(task.TaskArgs)
	}

	e.wg.Add(1)
	go e.run(runCtx, taskID, args, entry)

	return nil
}

// precheck is step 1 of the Execute pipeline (§4.2), transaction T1: load
// the task (must exist and be active), compare-and-set it to RUNNING,
// and insert the RUNNING history row, all inside one transaction so a
// failure partway never leaves the task flipped to RUNNING without a
// matching history row.
func (e *Executor) precheck(ctx context.Context, taskID int64) (*domain.Task, error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.NewDatabaseOperationError("begin pre-check transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	taskRepo := e.taskRepo.WithTx(tx)
	historyRepo := e.historyRepo.WithTx(tx)

	task, err := taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsActive {
		return nil, apperr.NewValidationError("task", "task is not active")
	}
	if err := taskRepo.CompareAndSetRunning(ctx, taskID); err != nil {
		return nil, err
	}
	if _, err := historyRepo.StartRun(ctx, taskID, "task starting"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.NewDatabaseOperationError("commit pre-check transaction", err)
	}
	return task, nil
}

// withFinalizeTx runs fn against transaction-bound repositories and
// commits on success, implementing invariant 4 ("Task's mirror fields
// are updated in the same transaction" as the terminal History update)
// for every finalize path (success, failure, cancel).
func (e *Executor) withFinalizeTx(ctx context.Context, fn func(taskRepo *database.TaskRepository, historyRepo *database.HistoryRepository) error) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.NewDatabaseOperationError("begin finalize transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(e.taskRepo.WithTx(tx), e.historyRepo.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Executor) run(ctx context.Context, taskID int64, args map[string]any, entry *runningExecution) {
	defer e.wg.Done()
	defer e.cleanup(taskID)

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		e.finalizeFailed(context.Background(), taskID, "cancelled before a worker slot was available")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.finalizeFailed(context.Background(), taskID, fmt.Sprintf("panic: %v", r))
		}
	}()

	task, err := e.taskRepo.Get(ctx, taskID)
	if err != nil {
		e.finalizeFailed(ctx, taskID, "task not found")
		return
	}

	crawlerRow, err := e.crawlerRepo.Get(ctx, task.CrawlerID)
	if err != nil {
		e.finalizeFailed(ctx, taskID, "crawler missing")
		return
	}

	crawlerInstance, err := e.registry.New(crawlerRow.CrawlerType)
	if err != nil {
		e.finalizeFailed(ctx, taskID, "crawler missing")
		return
	}

	e.mu.Lock()
	entry.crawler = crawlerInstance
	entry.crawlerSet = true
	e.mu.Unlock()

	opts, err := domain.DecodeScrapeOptions(args)
	if err != nil {
		e.finalizeFailed(ctx, taskID, fmt.Sprintf("invalid task args: %v", err))
		return
	}

	result, err := crawlerInstance.ExecuteTask(ctx, taskID, opts)
	if err != nil {
		e.finalizeFailed(ctx, taskID, apperr.NewCrawlerError(crawlerRow.CrawlerName, err).Error())
		return
	}

	e.finalize(ctx, taskID, result)
}

func (e *Executor) finalize(ctx context.Context, taskID int64, result registry.CrawlResult) {
	status := domain.TaskStatusFailed
	phase := domain.ScrapePhaseFailed
	if result.Success {
		status = domain.TaskStatusCompleted
		phase = domain.ScrapePhaseCompleted
	}

	err := e.withFinalizeTx(ctx, func(taskRepo *database.TaskRepository, historyRepo *database.HistoryRepository) error {
		if err := historyRepo.FinishRun(ctx, taskID, status, result.Message, result.ArticlesCount, result.Success); err != nil {
			return err
		}
		return taskRepo.UpdateTerminal(ctx, taskID, status, phase, result.Success, result.Message)
	})
	if err != nil {
		e.log.Error("executor: finalize transaction failed", "task_id", taskID, "error", err)
	}

	e.publish(taskID, progress.EventTaskProgress, map[string]any{
		"task_id": taskID, "progress": 100, "status": status,
		"scrape_phase": phase, "message": result.Message, "articles_count": result.ArticlesCount,
	})
	e.publish(taskID, progress.EventTaskFinished, map[string]any{"task_id": taskID, "status": status})
}

func (e *Executor) finalizeFailed(ctx context.Context, taskID int64, message string) {
	err := e.withFinalizeTx(ctx, func(taskRepo *database.TaskRepository, historyRepo *database.HistoryRepository) error {
		if err := historyRepo.FinishRun(ctx, taskID, domain.TaskStatusFailed, message, 0, false); err != nil {
			return err
		}
		return taskRepo.UpdateTerminal(ctx, taskID, domain.TaskStatusFailed, domain.ScrapePhaseFailed, false, message)
	})
	if err != nil {
		e.log.Error("executor: finalize transaction (failure path) failed", "task_id", taskID, "error", err)
	}

	e.publish(taskID, progress.EventTaskProgress, map[string]any{
		"task_id": taskID, "progress": 100, "status": domain.TaskStatusFailed,
		"scrape_phase": domain.ScrapePhaseFailed, "message": message,
	})
	e.publish(taskID, progress.EventTaskFinished, map[string]any{"task_id": taskID, "status": domain.TaskStatusFailed})
}

func (e *Executor) cleanup(taskID int64) {
	e.mu.Lock()
	delete(e.running, taskID)
	e.mu.Unlock()
}

func (e *Executor) publish(taskID int64, name progress.EventName, data map[string]any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(progress.Room(taskID), name, data)
}

// RunningTasks returns the ids currently in flight.
func (e *Executor) RunningTasks() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int64, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown waits for in-flight executions to drain, bounded by ctx.
func (e *Executor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
