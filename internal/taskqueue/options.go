package taskqueue

import (
	"log/slog"
	"time"
)

const (
	// DefaultPriority is used when Schedule is called without WithPriority.
	DefaultPriority = 5

	// DefaultMaxConcurrent is the concurrency ceiling of a queue built
	// without WithMaxConcurrent.
	DefaultMaxConcurrent = 1

	// DefaultRefreshInterval is the reservoir refill period.
	DefaultRefreshInterval = time.Minute
)

// JobInfo is the retry metadata a queue keeps for each job.
type JobInfo struct {
	// RetryCount is the number of local re-dispatches so far.
	RetryCount int

	// Priority is the dispatch priority the job was scheduled with.
	Priority int
}

// FailureHandler decides what happens to a failed job.
// Returning (delay, true) re-dispatches the job after delay; returning
// false drops it.
type FailureHandler func(err error, info JobInfo) (time.Duration, bool)

// Option configures a Queue.
type Option func(*Queue)

// WithName sets the queue name used in log records.
func WithName(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithMaxConcurrent sets how many jobs may run at once.
// Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxConcurrent = n
		}
	}
}

// WithMinTime sets the minimum spacing between two dispatches.
func WithMinTime(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.minTime = d
		}
	}
}

// WithReservoir enables the admission reservoir. The queue starts with
// reservoir tokens and is reset to refreshAmount tokens every interval.
// A non-positive interval selects DefaultRefreshInterval.
func WithReservoir(reservoir, refreshAmount int, interval time.Duration) Option {
	return func(q *Queue) {
		q.hasReservoir = true
		q.reservoir = max(reservoir, 0)
		q.refreshAmount = max(refreshAmount, 0)
		if interval > 0 {
			q.refreshInterval = interval
		}
	}
}

// WithFailureHandler sets the handler called for failed jobs.
// Without a handler failed jobs are logged and dropped.
func WithFailureHandler(h FailureHandler) Option {
	return func(q *Queue) {
		q.onFailure = h
	}
}

// WithIdleHandler sets the handler called when the queue becomes idle.
// The handler runs on the goroutine of the job that finished last and must
// not block for long.
func WithIdleHandler(h func()) Option {
	return func(q *Queue) {
		q.onIdle = h
	}
}

// ScheduleOption configures a single Schedule call.
type ScheduleOption func(*JobInfo)

// WithPriority sets the dispatch priority. Lower values dispatch first.
func WithPriority(p int) ScheduleOption {
	return func(info *JobInfo) {
		info.Priority = p
	}
}
