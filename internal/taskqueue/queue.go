package taskqueue

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Job is a unit of work executed by a Queue.
// The context is canceled when the queue is disconnected.
type Job func(ctx context.Context) error

// Queue is a bounded, rate-limited priority executor.
//
// Jobs wait in a heap ordered by priority (lower runs first) and then by
// submission order. A single dispatcher goroutine pops jobs while three
// gates are open: the reservoir (tokens per refresh interval), the
// concurrency ceiling, and the minimum spacing between two starts. Each job
// runs on its own goroutine.
//
// A failed job is handed to the FailureHandler, which may ask for a local
// retry after a delay. Such a job is counted as waiting until its timer
// fires, so the queue is not idle while a retry is pending.
//
// Queue is safe for concurrent use.
type Queue struct {
	name            string
	logger          *slog.Logger
	maxConcurrent   int
	minTime         time.Duration
	refreshInterval time.Duration
	onFailure       FailureHandler
	onIdle          func()

	mu            sync.Mutex
	pending       jobHeap
	seq           uint64
	running       int
	delayed       int
	timers        map[*item]*time.Timer
	spacing       *rate.Limiter
	hasReservoir  bool
	reservoir     int
	refreshAmount int
	nextRefill    time.Time
	stopped       bool
	dropWaiting   bool
	drained       chan struct{}
	drainedClosed bool

	ctx      context.Context
	cancel   context.CancelFunc
	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

// New creates a Queue and starts its dispatcher goroutine.
// Call Disconnect to release it.
func New(opts ...Option) *Queue {
	q := &Queue{
		name:            "default",
		maxConcurrent:   DefaultMaxConcurrent,
		refreshInterval: DefaultRefreshInterval,
		timers:          make(map[*item]*time.Timer),
		drained:         make(chan struct{}),
		wake:            make(chan struct{}, 1),
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.logger == nil {
		q.logger = slog.Default()
	}
	q.logger = q.logger.With("component", "taskqueue", "queue", q.name)

	limit := rate.Inf
	if q.minTime > 0 {
		limit = rate.Every(q.minTime)
	}
	q.spacing = rate.NewLimiter(limit, 1)
	q.nextRefill = time.Now().Add(q.refreshInterval)
	q.ctx, q.cancel = context.WithCancel(context.Background())

	go q.loop()

	return q
}

// Schedule enqueues job. It returns ErrStopped once Stop has been called.
func (q *Queue) Schedule(job Job, opts ...ScheduleOption) error {
	if job == nil {
		return ErrNilJob
	}

	info := JobInfo{Priority: DefaultPriority}
	for _, opt := range opts {
		opt(&info)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.push(&item{job: job, info: info})
	q.mu.Unlock()

	q.notify()
	return nil
}

// UpdateReservoir replaces the reservoir contents and the refill amount.
// Setting both to zero pauses admission without touching running jobs.
func (q *Queue) UpdateReservoir(reservoir, refreshAmount int) {
	q.mu.Lock()
	if !q.hasReservoir {
		q.hasReservoir = true
		q.nextRefill = time.Now().Add(q.refreshInterval)
	}
	q.reservoir = max(reservoir, 0)
	q.refreshAmount = max(refreshAmount, 0)
	q.mu.Unlock()

	q.logger.Debug("reservoir updated", "reservoir", reservoir, "refresh_amount", refreshAmount)
	q.notify()
}

// Running returns the number of jobs currently executing.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Queued returns the number of jobs waiting for dispatch, including jobs
// waiting for a local retry.
func (q *Queue) Queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len() + q.delayed
}

// Idle reports whether nothing is running or waiting.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idleLocked()
}

// Stop rejects further Schedule calls and waits until the queue drains.
// When dropWaiting is true, queued jobs are discarded and only running jobs
// are awaited. Stop returns ctx.Err() if ctx ends first.
func (q *Queue) Stop(ctx context.Context, dropWaiting bool) error {
	q.mu.Lock()
	q.stopped = true
	dropped := 0
	if dropWaiting {
		q.dropWaiting = true
		dropped = q.pending.Len()
		q.pending = q.pending[:0]
		dropped += q.releaseTimersLocked()
	}
	idle := q.idleLocked()
	q.checkDrainedLocked()
	drained := q.drained
	q.mu.Unlock()

	q.logger.Debug("stopping", "drop_waiting", dropWaiting, "dropped", dropped)
	q.notify()

	if dropped > 0 && idle && q.onIdle != nil {
		q.onIdle()
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect stops the dispatcher goroutine, cancels the context passed to
// running jobs and releases pending retry timers. It is safe to call more
// than once.
func (q *Queue) Disconnect(ctx context.Context) error {
	q.quitOnce.Do(func() {
		close(q.quit)
		q.cancel()

		q.mu.Lock()
		q.releaseTimersLocked()
		q.mu.Unlock()
	})

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) loop() {
	defer close(q.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if wait := q.dispatch(); wait > 0 {
			timer.Reset(wait)
		} else {
			timer.Stop()
		}

		select {
		case <-q.quit:
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// dispatch starts every job the gates allow. It returns how long to wait
// before a time-based gate may open again, or zero when only a finishing
// job or a new submission can make progress.
//
// The gates are checked in a fixed order: reservoir, concurrency, spacing.
// The spacing reservation is taken last and canceled when it would delay,
// so a closed reservoir or a full pool never consumes a spacing slot.
func (q *Queue) dispatch() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Len() > 0 {
		now := time.Now()
		q.refillLocked(now)

		if q.hasReservoir && q.reservoir == 0 {
			return max(q.nextRefill.Sub(now), time.Millisecond)
		}

		if q.running >= q.maxConcurrent {
			return 0
		}

		r := q.spacing.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			return delay
		}

		it := heap.Pop(&q.pending).(*item) //nolint:forcetypeassert
		if q.hasReservoir {
			q.reservoir--
		}
		q.running++

		go q.run(it)
	}

	return 0
}

func (q *Queue) refillLocked(now time.Time) {
	if !q.hasReservoir || now.Before(q.nextRefill) {
		return
	}
	q.reservoir = q.refreshAmount
	for !now.Before(q.nextRefill) {
		q.nextRefill = q.nextRefill.Add(q.refreshInterval)
	}
}

func (q *Queue) run(it *item) {
	err := q.execute(it)

	var (
		delay time.Duration
		retry bool
	)
	if err != nil {
		delay, retry = q.failed(err, it.info)
	}

	q.mu.Lock()
	q.running--
	if retry && !q.dropWaiting {
		q.retryLaterLocked(it, delay)
	}
	idle := q.idleLocked()
	q.checkDrainedLocked()
	q.mu.Unlock()

	q.notify()

	if idle && q.onIdle != nil {
		q.onIdle()
	}
}

func (q *Queue) execute(it *item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return it.job(q.ctx)
}

func (q *Queue) failed(err error, info JobInfo) (delay time.Duration, retry bool) {
	if q.onFailure == nil {
		q.logger.Debug("job failed", "error", err, "retry_count", info.RetryCount)
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("failure handler panicked", "panic", r)
			delay, retry = 0, false
		}
	}()
	return q.onFailure(err, info)
}

func (q *Queue) retryLaterLocked(it *item, delay time.Duration) {
	it.info.RetryCount++
	q.delayed++

	q.timers[it] = time.AfterFunc(max(delay, 0), func() {
		q.requeue(it)
	})
}

// releaseTimersLocked stops pending retry timers and returns how many jobs
// were released. Timers that already fired are left to requeue.
func (q *Queue) releaseTimersLocked() int {
	n := 0
	for it, t := range q.timers {
		if t.Stop() {
			delete(q.timers, it)
			q.delayed--
			n++
		}
	}
	return n
}

// requeue runs on the timer goroutine. The timer is stored under q.mu
// before requeue can take it, so the entry is always present here.
func (q *Queue) requeue(it *item) {
	q.mu.Lock()
	delete(q.timers, it)
	q.delayed--

	if q.dropWaiting {
		idle := q.idleLocked()
		q.checkDrainedLocked()
		q.mu.Unlock()
		if idle && q.onIdle != nil {
			q.onIdle()
		}
		return
	}

	q.push(it)
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) push(it *item) {
	q.seq++
	it.seq = q.seq
	heap.Push(&q.pending, it)
}

func (q *Queue) idleLocked() bool {
	return q.running == 0 && q.pending.Len() == 0 && q.delayed == 0
}

func (q *Queue) checkDrainedLocked() {
	if q.stopped && !q.drainedClosed && q.idleLocked() {
		close(q.drained)
		q.drainedClosed = true
	}
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
