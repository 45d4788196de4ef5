package taskqueue

import "errors"

var (
	// ErrStopped is returned by Schedule after Stop has been called.
	ErrStopped = errors.New("task queue is stopped")

	// ErrNilJob is returned by Schedule when the job is nil.
	ErrNilJob = errors.New("job must not be nil")

	// ErrJobPanicked wraps the value recovered from a panicking job.
	ErrJobPanicked = errors.New("job panicked")
)
