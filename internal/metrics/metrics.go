package metrics

import (
	"time"

	"github.com/nao1215/spiderman/internal/scheduler"
	"github.com/nao1215/spiderman/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace of every spiderman metric.
	Namespace = "spiderman"

	// Subsystem is the subsystem of the scheduler metrics.
	Subsystem = "scheduler"
)

// Discard reasons used as the "reason" label.
const (
	ReasonDuplicate    = scheduler.ReasonDuplicate
	ReasonUnclassified = scheduler.ReasonUnclassified
	ReasonStopped      = scheduler.ReasonStopped
)

var _ scheduler.Observer = (*Recorder)(nil)

// Recorder holds the scheduler metrics.
type Recorder struct {
	AttemptsTotal          *prometheus.CounterVec
	AttemptDurationSeconds *prometheus.HistogramVec
	URLsDiscardedTotal     *prometheus.CounterVec
	QueueRunning           *prometheus.GaugeVec
	QueueQueued            *prometheus.GaugeVec
}

// NewRecorder creates and registers the scheduler metrics on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	r := &Recorder{}

	r.AttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "attempts_total",
			Help:      "Total number of scrape and processing attempts by outcome",
		},
		[]string{"stage", "outcome"},
	)

	r.AttemptDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "attempt_duration_seconds",
			Help:      "Execution time of successful attempts in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"stage"},
	)

	r.URLsDiscardedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "urls_discarded_total",
			Help:      "Total number of URLs discarded without scraping",
		},
		[]string{"reason"},
	)

	r.QueueRunning = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "queue_running",
			Help:      "Number of jobs currently running per queue",
		},
		[]string{"stage"},
	)

	r.QueueQueued = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "queue_queued",
			Help:      "Number of jobs waiting for dispatch per queue",
		},
		[]string{"stage"},
	)

	return r
}

// ObserveAttempt records the outcome of one attempt. The duration is only
// observed for successful attempts.
func (r *Recorder) ObserveAttempt(stage stats.Stage, outcome stats.Outcome, d time.Duration) {
	r.AttemptsTotal.WithLabelValues(string(stage), string(outcome)).Inc()
	if outcome == stats.OutcomeSuccess {
		r.AttemptDurationSeconds.WithLabelValues(string(stage)).Observe(d.Seconds())
	}
}

// ObserveDiscard records a URL dropped before scraping.
func (r *Recorder) ObserveDiscard(reason string) {
	r.URLsDiscardedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth publishes the current load of a stage's queue.
func (r *Recorder) SetQueueDepth(stage stats.Stage, running, queued int) {
	r.QueueRunning.WithLabelValues(string(stage)).Set(float64(running))
	r.QueueQueued.WithLabelValues(string(stage)).Set(float64(queued))
}
