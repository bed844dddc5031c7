// Package apperr defines the error taxonomy shared by repositories,
// services, the scheduler and the executor.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports that inputs violated schema or cross-field
// rules, enforced at the repository boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a referenced task/crawler/history row is
// missing.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NewNotFoundError(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// AlreadyRunningError reports that a concurrent execution was rejected.
type AlreadyRunningError struct {
	TaskID int64
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("task %d already running", e.TaskID)
}

func NewAlreadyRunningError(taskID int64) error {
	return &AlreadyRunningError{TaskID: taskID}
}

// DatabaseOperationError wraps a persistence failure.
type DatabaseOperationError struct {
	Op  string
	Err error
}

func (e *DatabaseOperationError) Error() string {
	return fmt.Sprintf("database operation %q failed: %v", e.Op, e.Err)
}

func (e *DatabaseOperationError) Unwrap() error { return e.Err }

func NewDatabaseOperationError(op string, err error) error {
	return &DatabaseOperationError{Op: op, Err: err}
}

// SchedulerError reports that the persistent job store is unavailable.
type SchedulerError struct {
	Op  string
	Err error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler operation %q failed: %v", e.Op, e.Err)
}

func (e *SchedulerError) Unwrap() error { return e.Err }

func NewSchedulerError(op string, err error) error {
	return &SchedulerError{Op: op, Err: err}
}

// CrawlerError wraps a failure from the Crawler Interface. It never
// escapes the Executor; it is always folded into a FAILED terminal.
type CrawlerError struct {
	CrawlerName string
	Err         error
}

func (e *CrawlerError) Error() string {
	return fmt.Sprintf("crawler %q failed: %v", e.CrawlerName, e.Err)
}

func (e *CrawlerError) Unwrap() error { return e.Err }

func NewCrawlerError(crawlerName string, err error) error {
	return &CrawlerError{CrawlerName: crawlerName, Err: err}
}

// TransientError marks a crawler-local timeout/IO failure; retries (if
// any) are the crawler's responsibility via max_retries.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NotRunningError reports Stop() called on an already-stopped scheduler.
type NotRunningError struct{}

func (e *NotRunningError) Error() string { return "scheduler is not running" }

var ErrNotRunning error = &NotRunningError{}

// As-style helpers, for services translating to {success, message}
// envelopes without importing every concrete type.

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsAlreadyRunning(err error) bool {
	var e *AlreadyRunningError
	return errors.As(err, &e)
}
