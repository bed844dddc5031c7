package domain

import "time"

// ScrapeMode selects how deep a task's crawler should go.
type ScrapeMode string

const (
	ScrapeModeLinksOnly   ScrapeMode = "LINKS_ONLY"
	ScrapeModeContentOnly ScrapeMode = "CONTENT_ONLY"
	ScrapeModeFullScrape  ScrapeMode = "FULL_SCRAPE"
)

// TaskStatus is the coarse lifecycle state of a Task, mirrored from its
// most recent execution.
type TaskStatus string

const (
	TaskStatusInit      TaskStatus = "INIT"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
	TaskStatusCanceling TaskStatus = "CANCELING"
	TaskStatusCancelled TaskStatus = "CANCELLED"
	TaskStatusUnknown   TaskStatus = "UNKNOWN"
)

// ScrapePhase is the finer-grained progress label within one execution.
type ScrapePhase string

const (
	ScrapePhaseInit            ScrapePhase = "INIT"
	ScrapePhaseLinkCollection  ScrapePhase = "LINK_COLLECTION"
	ScrapePhaseContentScraping ScrapePhase = "CONTENT_SCRAPING"
	ScrapePhaseSaveToCSV       ScrapePhase = "SAVE_TO_CSV"
	ScrapePhaseSaveToDatabase  ScrapePhase = "SAVE_TO_DATABASE"
	ScrapePhaseCompleted       ScrapePhase = "COMPLETED"
	ScrapePhaseFailed          ScrapePhase = "FAILED"
	ScrapePhaseCancelled       ScrapePhase = "CANCELLED"
	ScrapePhaseUnknown         ScrapePhase = "UNKNOWN"
)

// Task is a configured, schedulable crawling intent.
type Task struct {
	ID              int64      `db:"id"`
	TaskName        string     `db:"task_name"`
	CrawlerID       int64      `db:"crawler_id"`
	TaskArgs        JSONBMap   `db:"task_args"`
	IsAuto          bool       `db:"is_auto"`
	IsScheduled     bool       `db:"is_scheduled"`
	CronExpression  string     `db:"cron_expression"`
	IsActive        bool       `db:"is_active"`
	MaxRetries      int        `db:"max_retries"`
	RetryCount      int        `db:"retry_count"`
	ScrapeMode      ScrapeMode `db:"scrape_mode"`
	LastRunAt       *time.Time `db:"last_run_at"`
	LastRunSuccess  *bool      `db:"last_run_success"`
	LastRunMessage  string     `db:"last_run_message"`
	TaskStatus      TaskStatus `db:"task_status"`
	ScrapePhase     ScrapePhase `db:"scrape_phase"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// TerminalStatuses are the statuses from which a fresh Execute pre-check
// may transition a task back to RUNNING.
var TerminalStatuses = map[TaskStatus]bool{
	TaskStatusInit:      true,
	TaskStatusCompleted: true,
	TaskStatusFailed:    true,
	TaskStatusCancelled: true,
}

// IsTerminal reports whether status is one from which a new execution may
// begin (invariant: RUNNING tasks reject a second Execute pre-check).
func (s TaskStatus) IsTerminal() bool {
	return TerminalStatuses[s]
}
