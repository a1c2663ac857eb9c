package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoFile                  = errors.New("no file selected")
	ErrNoResult                = errors.New("no analysis result available")
	ErrActionPending           = errors.New("another action is already in progress")
	ErrSessionClosed           = errors.New("session is closed")
	ErrSessionNotFound         = errors.New("session not found")
	ErrPollerBusy              = errors.New("poller already has a job in flight")
	ErrPollerIdle              = errors.New("poller has no submitted job")
	ErrJobNotFound             = errors.New("job not found")
	ErrStaleResponse           = errors.New("response belongs to a superseded request")
	ErrNotAdjusting            = errors.New("corner editor is not in adjusting mode")
	ErrDragInProgress          = errors.New("another corner is already being dragged")
	ErrCornerIndex             = errors.New("corner index out of range")
	ErrDragEnded               = errors.New("drag session has ended")
	ErrCornersUnavailable      = errors.New("corners are not available for this image")
	ErrUnknownResultField      = errors.New("unknown result field")
	ErrNilResult               = errors.New("previous result is nil")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)

// DefaultJobFailureMessage is used when a failed job carries no reason.
const DefaultJobFailureMessage = "Job failed"

// UploadError indicates the analysis service rejected the submitted input.
// Message is the service's reason, surfaced verbatim.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected (status %d): %s", e.StatusCode, e.Message)
}

// ServiceError is any other non-2xx answer from the analysis service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service error (status %d): %s", e.StatusCode, e.Message)
}

// TimeoutError indicates a call exceeded its fixed time budget.
type TimeoutError struct {
	Operation string
	Budget    time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Budget)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// TransientPollError wraps a single failed status check of an accepted job.
type TransientPollError struct {
	JobID string
	Err   error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("status check for job %s failed: %v", e.JobID, e.Err)
}

func (e *TransientPollError) Unwrap() error {
	return e.Err
}

// JobFailure indicates the job itself reached the failed status.
type JobFailure struct {
	JobID  string
	Reason string
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

// NewJobFailure creates a JobFailure, defaulting an empty reason.
func NewJobFailure(jobID, reason string) *JobFailure {
	if reason == "" {
		reason = DefaultJobFailureMessage
	}
	return &JobFailure{JobID: jobID, Reason: reason}
}

// UserMessage renders err the way the presentation layer shows it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var uploadErr *UploadError
	var timeoutErr *TimeoutError
	var jobErr *JobFailure
	var svcErr *ServiceError

	switch {
	case errors.As(err, &uploadErr):
		return uploadErr.Message
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("Request timed out after %s. Check that the analysis service is running and reachable.", timeoutErr.Budget)
	case errors.As(err, &jobErr):
		return jobErr.Reason
	case errors.As(err, &svcErr):
		return svcErr.Message
	case errors.Is(err, context.Canceled):
		return "Request was cancelled."
	default:
		return err.Error()
	}
}

// IsEditorConstraint reports whether err is a local corner-editor violation.
// Those are handled by falling back and never shown to the user.
func IsEditorConstraint(err error) bool {
	return errors.Is(err, ErrNotAdjusting) ||
		errors.Is(err, ErrDragInProgress) ||
		errors.Is(err, ErrCornerIndex) ||
		errors.Is(err, ErrDragEnded) ||
		errors.Is(err, ErrCornersUnavailable)
}
