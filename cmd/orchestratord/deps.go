package orchestratord

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/crawlorc/internal/config"
	"github.com/jonesrussell/crawlorc/internal/container"
	"github.com/jonesrussell/crawlorc/internal/database"
	"github.com/jonesrussell/crawlorc/internal/executor"
	"github.com/jonesrussell/crawlorc/internal/logger"
	"github.com/jonesrussell/crawlorc/internal/progress"
	"github.com/jonesrussell/crawlorc/internal/registry"
	"github.com/jonesrussell/crawlorc/internal/scheduler"
)

// deps holds the fully wired object graph shared by every subcommand,
// built once per process the way the teacher's cmd/common.NewCommandDeps
// builds a CommandDeps for every cobra command.
type deps struct {
	cfg *config.Config
	log logger.Interface
	db  *sqlx.DB

	taskRepo    *database.TaskRepository
	crawlerRepo *database.CrawlerRepository
	historyRepo *database.HistoryRepository
	jobStore    *database.JobStoreRepository

	container *container.Container
	bus       *progress.Bus
	registry  *registry.Registry
	sched     *scheduler.Scheduler
	exec      *executor.Executor
}

// newDeps loads configuration, connects to the database, and constructs
// the repositories, container, registry, bus, Scheduler and Executor.
// The Scheduler and Executor are wired to each other (Scheduler dispatches
// into Executor.Execute) but neither is started; callers start what their
// command needs.
func newDeps() (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Every long-lived service is built through the Service Container
	// (§4.5): newDeps is the single composition root that bootstraps it,
	// so construction order still matters (exec before sched, since sched
	// dispatches into exec), but any later lookup by key returns the same
	// cached singleton instead of rebuilding it.
	c := container.New()

	taskRepo := container.Get(c, "taskRepo", func() *database.TaskRepository { return database.NewTaskRepository(db) })
	crawlerRepo := container.Get(c, "crawlerRepo", func() *database.CrawlerRepository { return database.NewCrawlerRepository(db) })
	historyRepo := container.Get(c, "historyRepo", func() *database.HistoryRepository { return database.NewHistoryRepository(db) })
	jobStore := container.Get(c, "jobStore", func() *database.JobStoreRepository { return database.NewJobStoreRepository(db) })

	bus := container.Get(c, "progressBus", func() *progress.Bus { return progress.NewBus() })
	reg := container.Get(c, "registry", func() *registry.Registry { return registry.NewRegistry() })

	exec := container.Get(c, "executor", func() *executor.Executor {
		return executor.New(log, db, taskRepo, crawlerRepo, historyRepo, reg, bus, executor.Config{
			Workers:        cfg.ExecutorWorkers,
			ProcessWorkers: cfg.ExecutorProcessWorkers,
		})
	})

	sched := container.Get(c, "scheduler", func() *scheduler.Scheduler {
		return scheduler.New(log, taskRepo, jobStore, exec, bus, reloadInterval(cfg))
	})

	return &deps{
		cfg:         cfg,
		log:         log,
		db:          db,
		taskRepo:    taskRepo,
		crawlerRepo: crawlerRepo,
		historyRepo: historyRepo,
		jobStore:    jobStore,
		container:   c,
		bus:         bus,
		registry:    reg,
		sched:       sched,
		exec:        exec,
	}, nil
}

func (d *deps) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}
}
