// Package scheduler implements the Task Scheduler of §4.1: a cron-driven
// persistent scheduler that maintains an eventually-consistent mapping
// between auto tasks and persistent jobs, and dispatches task ids to the
// Executor on trigger fire.
//
// Grounded in the teacher's internal/job/db_scheduler.go: the
// scheduledJobs/activeJobs map-plus-mutex shape, the periodic reload
// goroutine, and the robfig/cron/v3 wiring are kept; the reconcile
// algorithm and misfire/coalesce policy are rebuilt against §4.1.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/crawlorc/internal/apperr"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/domain"
	"github.com/jonesrussell/crawlorc/internal/logger"
	"github.com/jonesrussell/crawlorc/internal/progress"
)

// MisfireGrace is the window (§4.1) within which a missed fire still
// fires once; beyond it the miss is dropped and logged. Matches the
// original's misfire_grace_time=3600 exactly (see SPEC_FULL.md Part D).
const MisfireGrace = 1 * time.Hour

// Dispatcher is the subset of the Executor the Scheduler depends on.
// Dispatch is fire-and-forget from the Scheduler's perspective (§4.1
// "Trigger fire semantics" step 4).
type Dispatcher interface {
	Execute(ctx context.Context, taskID int64, args map[string]any) error
}

type trackedEntry struct {
	entryID  cron.EntryID
	cronExpr string
}

// Status is the Status() introspection payload.
type Status struct {
	Running          bool
	JobCount         int
	LastStartTime    time.Time
	LastShutdownTime time.Time
}

// PersistedJobView is one row of PersistedJobs() introspection.
type PersistedJobView struct {
	JobID      string
	TaskID     int64
	CronExpr   string
	NextRun    time.Time
	TaskExists bool
	TaskActive bool
}

// Scheduler is the Task Scheduler of §4.1.
type Scheduler struct {
	log        logger.Interface
	taskRepo   *database.TaskRepository
	jobStore   *database.JobStoreRepository
	dispatcher Dispatcher
	publisher  progress.Publisher

	reloadInterval time.Duration

	cron       *cron.Cron
	cronParser cron.Parser

	mu                      sync.RWMutex
	running                 bool
	entries                 map[int64]trackedEntry
	lastStart, lastShutdown time.Time

	stopReload chan struct{}
	reloadDone chan struct{}
}

// New constructs a Scheduler. reloadInterval is clamped to >= 1 hour by
// the caller (internal/config default), matching §6.1.
func New(log logger.Interface, taskRepo *database.TaskRepository, jobStore *database.JobStoreRepository, dispatcher Dispatcher, publisher progress.Publisher, reloadInterval time.Duration) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		log:            log,
		taskRepo:       taskRepo,
		jobStore:       jobStore,
		dispatcher:     dispatcher,
		publisher:      publisher,
		reloadInterval: reloadInterval,
		cron:           c,
		cronParser:     parser,
		entries:        make(map[int64]trackedEntry),
	}
}

// Start reconciles persistent jobs against DB tasks, fires a grace-window
// misfire catch-up, then begins dispatching triggers. Idempotent failure:
// a second call on a running scheduler returns a SchedulerError wrapping
// a "scheduler already running" error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return apperr.NewSchedulerError("start", errAlreadyRunning)
	}
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		return apperr.NewSchedulerError("start", err)
	}

	s.mu.Lock()
	s.running = true
	s.lastStart = time.Now()
	s.stopReload = make(chan struct{})
	s.reloadDone = make(chan struct{})
	s.mu.Unlock()

	s.cron.Start()
	s.fireMisfires(ctx)

	go s.periodicReload(ctx)

	s.log.Info("scheduler started", "job_count", s.jobCount())
	return nil
}

// Stop pauses dispatch without clearing persistent jobs. A second call on
// a stopped scheduler returns apperr.ErrNotRunning.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return apperr.ErrNotRunning
	}
	s.running = false
	s.lastShutdown = time.Now()
	stopReload := s.stopReload
	s.mu.Unlock()

	close(stopReload)
	<-s.reloadDone

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) periodicReload(ctx context.Context) {
	defer close(s.reloadDone)
	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopReload:
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.log.Error("periodic reload failed", "error", err)
			}
		}
	}
}

var errAlreadyRunning = errScheduler("scheduler already running")

type errScheduler string

func (e errScheduler) Error() string { return string(e) }

func (s *Scheduler) jobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Status returns scheduler introspection per §4.1.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Running:          s.running,
		JobCount:         len(s.entries),
		LastStartTime:    s.lastStart,
		LastShutdownTime: s.lastShutdown,
	}
}
