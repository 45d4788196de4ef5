package scheduler

import (
	"log/slog"
	"time"

	"github.com/nao1215/spiderman/internal/dupfilter"
	"github.com/nao1215/spiderman/internal/stats"
)

// Default values for Options.
const (
	DefaultShortRetries        = 1
	DefaultLongRetries         = 2
	DefaultMaxScrapers         = 8
	DefaultMaxDataProcessors   = 4
	DefaultTasksPerMinPerQueue = 100
	DefaultMinTime             = 100 * time.Millisecond
	DefaultShortRetryDelay     = 100 * time.Millisecond
)

// Options holds the scheduler settings.
type Options struct {
	// ShortRetries is how often the queue re-dispatches a job that
	// failed by itself, e.g. because the classifier returned an error.
	ShortRetries int

	// LongRetries is how often a failed scrape or processing attempt is
	// retried before the entity is dropped.
	LongRetries int

	// MaxScrapers is the concurrency ceiling of the scrape queue.
	MaxScrapers int

	// MaxDataProcessors is the concurrency ceiling of the process queue.
	MaxDataProcessors int

	// TasksPerMinPerQueue is the reservoir size and refill amount of each
	// queue. The reservoir is refilled every minute.
	TasksPerMinPerQueue int

	// MinTime is the minimum spacing between two dispatches of a queue.
	MinTime time.Duration

	// ShortRetryDelay is the first delay of a queue-level retry.
	// Later retries back off exponentially.
	ShortRetryDelay time.Duration

	// UseRedisBloom selects the RedisBloom duplicate filter.
	UseRedisBloom bool

	// RedisBloom configures the RedisBloom duplicate filter.
	RedisBloom dupfilter.RedisOptions
}

// DefaultOptions returns the default settings.
func DefaultOptions() Options {
	return Options{
		ShortRetries:        DefaultShortRetries,
		LongRetries:         DefaultLongRetries,
		MaxScrapers:         DefaultMaxScrapers,
		MaxDataProcessors:   DefaultMaxDataProcessors,
		TasksPerMinPerQueue: DefaultTasksPerMinPerQueue,
		MinTime:             DefaultMinTime,
		ShortRetryDelay:     DefaultShortRetryDelay,
		RedisBloom:          dupfilter.DefaultRedisOptions(),
	}
}

// Validate checks the options for invalid values.
func (o Options) Validate() error {
	if o.ShortRetries < 0 {
		return ErrInvalidShortRetries
	}
	if o.LongRetries < 0 {
		return ErrInvalidLongRetries
	}
	if o.MaxScrapers < 1 {
		return ErrInvalidMaxScrapers
	}
	if o.MaxDataProcessors < 1 {
		return ErrInvalidMaxDataProcessors
	}
	if o.TasksPerMinPerQueue < 1 {
		return ErrInvalidTasksPerMin
	}
	if o.MinTime < 0 {
		return ErrInvalidMinTime
	}
	if o.ShortRetryDelay < 0 {
		return ErrInvalidShortRetryDelay
	}
	return nil
}

// LogValue implements slog.LogValuer.
func (o Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("short_retries", o.ShortRetries),
		slog.Int("long_retries", o.LongRetries),
		slog.Int("max_scrapers", o.MaxScrapers),
		slog.Int("max_data_processors", o.MaxDataProcessors),
		slog.Int("tasks_per_min_per_queue", o.TasksPerMinPerQueue),
		slog.Duration("min_time", o.MinTime),
		slog.Bool("use_redis_bloom", o.UseRedisBloom),
	)
}

// Discard reasons passed to Observer.ObserveDiscard.
const (
	ReasonDuplicate    = "duplicate"
	ReasonUnclassified = "unclassified"
	ReasonStopped      = "stopped"
)

// Observer receives crawl activity, typically to export it as metrics.
type Observer interface {
	ObserveAttempt(stage stats.Stage, outcome stats.Outcome, d time.Duration)
	ObserveDiscard(reason string)
	SetQueueDepth(stage stats.Stage, running, queued int)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(stats.Stage, stats.Outcome, time.Duration) {}
func (nopObserver) ObserveDiscard(string)                                    {}
func (nopObserver) SetQueueDepth(stats.Stage, int, int)                      {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithDuplicateFilter replaces the filter selected by Options.
func WithDuplicateFilter(f dupfilter.Filter) Option {
	return func(s *Scheduler) {
		s.filter = f
	}
}

// WithObserver reports crawl activity to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIdleHandler sets the handler called when both queues drain.
func WithIdleHandler(h func()) Option {
	return func(s *Scheduler) {
		s.onIdle = h
	}
}

// WithDoneHandler sets the handler called right after the idle handler.
// It receives the statistics at that moment.
func WithDoneHandler(h func(stats.Snapshot)) Option {
	return func(s *Scheduler) {
		s.onDone = h
	}
}
