package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nao1215/spiderman/internal/dupfilter"
	"github.com/nao1215/spiderman/internal/entity"
	"github.com/nao1215/spiderman/internal/stats"
	"github.com/nao1215/spiderman/internal/taskqueue"
	"golang.org/x/sync/errgroup"
)

// maxDemotion caps the priority demotion of retried entities.
const maxDemotion = 4

// RetryPriority returns the queue priority of a retry scheduled after the
// attempt with the given retry count. Each retry is dispatched after fresh
// work, and the demotion stops growing after four retries.
func RetryPriority(retryCount int) int {
	return taskqueue.DefaultPriority + min(max(retryCount, 0), maxDemotion)
}

// Scheduler runs a crawl over a scrape queue and a process queue.
//
// A raw URL goes through a scrape job that classifies it, checks the
// duplicate filter and runs the scraper. Discovered links are fed back
// through ScheduleURL and scraped data is handed to the process queue.
// Failed attempts are requeued on their own queue with RetryPriority until
// Options.LongRetries is reached; errors returned by a job itself are
// retried by the queue up to Options.ShortRetries.
//
// Each queue reports when it drains, but the crawl is idle only when both
// are drained at the same moment. A scrape that finishes can still queue
// processing work and a processing job never feeds the scrape queue, so
// queueIdle checks both queues under s.mu. The busy flag makes every cycle
// report idle and done exactly once, and a new cycle starts with the next
// enqueue.
type Scheduler struct {
	initURL    string
	classifier Classifier
	options    Options
	filter     dupfilter.Filter
	stats      *stats.Statistics
	observer   Observer
	logger     *slog.Logger
	onIdle     func()
	onDone     func(stats.Snapshot)

	scrapeQueue  *taskqueue.Queue
	processQueue *taskqueue.Queue

	// mu guards busy and cycle. It is taken before any queue lock.
	mu    sync.Mutex
	busy  bool
	cycle chan struct{}
}

// New creates a Scheduler that starts crawling at initURL.
// initURL may be empty when work is only added through ScheduleURL.
func New(initURL string, classifier Classifier, options Options, opts ...Option) (*Scheduler, error) {
	if classifier == nil {
		return nil, ErrNilClassifier
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		initURL:    initURL,
		classifier: classifier,
		options:    options,
		stats:      stats.New(),
		observer:   nopObserver{},
		cycle:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	base := s.logger
	if base == nil {
		base = slog.Default()
	}
	s.logger = base.With("component", "scheduler")

	if s.filter == nil {
		f, err := dupfilter.New(s.filterConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create duplicate filter: %w", err)
		}
		s.filter = f
	}

	s.scrapeQueue = s.newQueue(base, stats.StageScraping, options.MaxScrapers)
	s.processQueue = s.newQueue(base, stats.StageDataProcessing, options.MaxDataProcessors)

	return s, nil
}

func (s *Scheduler) filterConfig() dupfilter.Config {
	cfg := dupfilter.DefaultConfig()
	if s.options.UseRedisBloom {
		cfg.Kind = dupfilter.KindRedisBloom
		cfg.Redis = s.options.RedisBloom
		cfg.Capacity = s.options.RedisBloom.Capacity
		cfg.ErrorRate = s.options.RedisBloom.ErrorRate
	}
	return cfg
}

func (s *Scheduler) newQueue(logger *slog.Logger, stage stats.Stage, maxConcurrent int) *taskqueue.Queue {
	perMin := s.options.TasksPerMinPerQueue
	return taskqueue.New(
		taskqueue.WithName(string(stage)),
		taskqueue.WithLogger(logger),
		taskqueue.WithMaxConcurrent(maxConcurrent),
		taskqueue.WithMinTime(s.options.MinTime),
		taskqueue.WithReservoir(perMin, perMin, taskqueue.DefaultRefreshInterval),
		taskqueue.WithFailureHandler(s.jobFailed(stage)),
		taskqueue.WithIdleHandler(s.queueIdle),
	)
}

// Connect connects the duplicate filter. It is a no-op for the in-memory
// filter.
func (s *Scheduler) Connect(ctx context.Context) error {
	s.logger.Info("starting", "options", s.options)
	if err := s.filter.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect duplicate filter: %w", err)
	}
	return nil
}

// Start connects and schedules the initial URL without a duplicate check,
// followed by initURLs with a duplicate check.
func (s *Scheduler) Start(ctx context.Context, initURLs ...string) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	if s.initURL != "" {
		if err := s.ScheduleURL(s.initURL, false); err != nil {
			return err
		}
	}
	for _, u := range initURLs {
		if err := s.ScheduleURL(u, true); err != nil {
			return err
		}
	}

	s.logger.Info("started", "init_url", s.initURL, "extra_urls", len(initURLs))
	return nil
}

// Pause stops new dispatches on both queues. Running attempts finish.
func (s *Scheduler) Pause() {
	s.scrapeQueue.UpdateReservoir(0, 0)
	s.processQueue.UpdateReservoir(0, 0)
	s.logger.Info("paused")
}

// Resume restores the configured admission rate on both queues.
func (s *Scheduler) Resume() {
	perMin := s.options.TasksPerMinPerQueue
	s.scrapeQueue.UpdateReservoir(perMin, perMin)
	s.processQueue.UpdateReservoir(perMin, perMin)
	s.logger.Info("resumed")
}

// Stop stops both queues. A graceful stop waits for queued work; otherwise
// queued work is dropped and only running attempts are awaited.
func (s *Scheduler) Stop(ctx context.Context, gracefully bool) error {
	s.logger.Info("stopping", "gracefully", gracefully)

	g, ctx := errgroup.WithContext(ctx)
	for _, q := range []*taskqueue.Queue{s.scrapeQueue, s.processQueue} {
		g.Go(func() error {
			return q.Stop(ctx, !gracefully)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to stop queues: %w", err)
	}

	s.logger.Info("stopped")
	return nil
}

// Disconnect releases both queues and the duplicate filter and logs the
// final statistics. Call it after Stop.
func (s *Scheduler) Disconnect(ctx context.Context) error {
	s.logger.Info("disconnecting")

	var g errgroup.Group
	g.Go(func() error { return s.scrapeQueue.Disconnect(ctx) })
	g.Go(func() error { return s.processQueue.Disconnect(ctx) })
	g.Go(func() error {
		if err := s.filter.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect duplicate filter: %w", err)
		}
		return nil
	})
	err := g.Wait()

	snap := s.stats.Snapshot()
	s.logger.Info("statistics",
		"scraping_success", snap.Counts.Success.Scraping,
		"scraping_soft_failure", snap.Counts.SoftFailure.Scraping,
		"scraping_hard_failure", snap.Counts.HardFailure.Scraping,
		"processing_success", snap.Counts.Success.DataProcessing,
		"processing_soft_failure", snap.Counts.SoftFailure.DataProcessing,
		"processing_hard_failure", snap.Counts.HardFailure.DataProcessing,
		"scraping_avg", snap.Time.Avg.Scraping,
		"processing_avg", snap.Time.Avg.DataProcessing,
	)

	return err
}

// Stats returns a snapshot of the crawl statistics.
func (s *Scheduler) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}

// Wait blocks until the current crawl cycle is done or ctx ends.
// It returns immediately when no work is outstanding.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.busy {
		s.mu.Unlock()
		return nil
	}
	cycle := s.cycle
	s.mu.Unlock()

	select {
	case <-cycle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScheduleURL schedules url for scraping. With duplicateCheck the URL is
// dropped when its fingerprint was seen before. It only fails when the
// scrape queue is stopped.
func (s *Scheduler) ScheduleURL(url string, duplicateCheck bool) error {
	return s.enqueue(stats.StageScraping, func(ctx context.Context) error {
		return s.scrapeURL(ctx, url, duplicateCheck)
	}, taskqueue.DefaultPriority)
}

// ScheduleURLEntity schedules an already classified entity for scraping
// without a duplicate check.
func (s *Scheduler) ScheduleURLEntity(e *entity.URLEntity) error {
	if e == nil {
		return ErrNilEntity
	}
	if e.Scraper == nil {
		return fmt.Errorf("%w: %s", ErrNilScraper, e.URL)
	}
	return s.scheduleScrape(e, taskqueue.DefaultPriority)
}

func (s *Scheduler) scheduleScrape(e *entity.URLEntity, priority int) error {
	return s.enqueue(stats.StageScraping, func(ctx context.Context) error {
		s.scrapeEntity(ctx, e)
		return nil
	}, priority)
}

func (s *Scheduler) scheduleProcess(e *entity.DataEntity, priority int) error {
	return s.enqueue(stats.StageDataProcessing, func(ctx context.Context) error {
		s.processEntity(ctx, e)
		return nil
	}, priority)
}

func (s *Scheduler) queue(stage stats.Stage) *taskqueue.Queue {
	if stage == stats.StageDataProcessing {
		return s.processQueue
	}
	return s.scrapeQueue
}

// enqueue schedules job and marks the crawl as busy.
func (s *Scheduler) enqueue(stage stats.Stage, job taskqueue.Job, priority int) error {
	q := s.queue(stage)

	s.mu.Lock()
	err := q.Schedule(job, taskqueue.WithPriority(priority))
	if err == nil && !s.busy {
		s.busy = true
		s.cycle = make(chan struct{})
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.publishDepth(stage)
	return nil
}

func (s *Scheduler) scrapeURL(ctx context.Context, url string, duplicateCheck bool) error {
	c, err := protect(func() (*Classification, error) {
		return s.classifier.Classify(ctx, url)
	})
	if err != nil {
		return fmt.Errorf("failed to classify %s: %w", url, err)
	}
	if c == nil {
		s.logger.Debug("discarded", "url", url)
		s.observer.ObserveDiscard(ReasonUnclassified)
		return nil
	}

	e := c.URLEntity
	if e == nil {
		e = entity.NewURLEntity(url, c.Scraper, c.DataProcessor)
	}
	if e.Scraper == nil {
		s.logger.Warn("discarded", "url", url, "error", ErrNilScraper)
		s.observer.ObserveDiscard(ReasonUnclassified)
		return nil
	}

	if duplicateCheck {
		fp := e.Fingerprint()
		seen, err := s.filter.Exists(ctx, fp)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", url, err)
		}
		if seen {
			s.logger.Debug("duplicate", "url", url)
			s.observer.ObserveDiscard(ReasonDuplicate)
			return nil
		}
		if err := s.filter.Add(ctx, fp); err != nil {
			return fmt.Errorf("failed to record %s: %w", url, err)
		}
	}

	s.scrapeEntity(ctx, e)
	return nil
}

func (s *Scheduler) scrapeEntity(ctx context.Context, e *entity.URLEntity) {
	e.RetryCount++
	s.publishDepth(stats.StageScraping)

	start := time.Now()
	result, err := protect(func() (entity.ScrapingResult, error) {
		return e.Scraper.Run(ctx, e.URL)
	})

	if err == nil && result.Success {
		s.logger.Debug("success", "url", e.URL, "attempt", e.Attempt())
		s.record(stats.StageScraping, stats.OutcomeSuccess, executionTime(result.ExecutionTime, start))

		for _, next := range result.NextURLs {
			if err := s.ScheduleURL(next, true); err != nil {
				s.logger.Debug("next url not scheduled", "url", next, "error", err)
				s.observer.ObserveDiscard(ReasonStopped)
			}
		}

		if e.DataProcessor == nil {
			return
		}
		d := entity.NewDataEntity(result.Data, e.DataProcessor)
		if err := s.scheduleProcess(d, taskqueue.DefaultPriority); err != nil {
			s.logger.Debug("data not scheduled", "url", e.URL, "error", err)
		}
		return
	}

	if e.RetryCount >= s.options.LongRetries {
		s.logger.Error("hard failure", "url", e.URL, "attempt", e.Attempt(), "error", err)
		s.record(stats.StageScraping, stats.OutcomeHardFailure, 0)
		return
	}

	s.logger.Warn("soft failure", "url", e.URL, "attempt", e.Attempt(), "error", err)
	s.record(stats.StageScraping, stats.OutcomeSoftFailure, 0)

	if err := s.scheduleScrape(e, RetryPriority(e.RetryCount)); err != nil {
		s.logger.Debug("retry not scheduled", "url", e.URL, "error", err)
	}
}

func (s *Scheduler) processEntity(ctx context.Context, e *entity.DataEntity) {
	e.RetryCount++
	s.publishDepth(stats.StageDataProcessing)

	start := time.Now()
	result, err := protect(func() (entity.ProcessingResult, error) {
		return e.DataProcessor.Run(ctx, e.Data)
	})

	if err == nil && result.Success {
		s.logger.Debug("success", "stage", stats.StageDataProcessing, "attempt", e.Attempt())
		s.record(stats.StageDataProcessing, stats.OutcomeSuccess, executionTime(result.ExecutionTime, start))
		return
	}

	if e.RetryCount >= s.options.LongRetries {
		s.logger.Error("hard failure", "stage", stats.StageDataProcessing, "attempt", e.Attempt(), "error", err)
		s.record(stats.StageDataProcessing, stats.OutcomeHardFailure, 0)
		return
	}

	s.logger.Warn("soft failure", "stage", stats.StageDataProcessing, "attempt", e.Attempt(), "error", err)
	s.record(stats.StageDataProcessing, stats.OutcomeSoftFailure, 0)

	if err := s.scheduleProcess(e, RetryPriority(e.RetryCount)); err != nil {
		s.logger.Debug("retry not scheduled", "stage", stats.StageDataProcessing, "error", err)
	}
}

// jobFailed handles errors returned by a job itself. Such a job is retried
// by its queue while the queue-level budget lasts, then dropped.
func (s *Scheduler) jobFailed(stage stats.Stage) taskqueue.FailureHandler {
	return func(err error, info taskqueue.JobInfo) (time.Duration, bool) {
		if info.RetryCount < s.options.ShortRetries {
			delay := s.shortRetryDelay(info.RetryCount)
			s.logger.Warn("job failed, retrying",
				"stage", stage, "error", err, "retry_count", info.RetryCount, "delay", delay)
			return delay, true
		}

		s.logger.Error("job failed, dropping", "stage", stage, "error", err, "retry_count", info.RetryCount)
		s.record(stage, stats.OutcomeHardFailure, 0)
		return 0, false
	}
}

func (s *Scheduler) shortRetryDelay(retryCount int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.options.ShortRetryDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for range retryCount {
		delay = b.NextBackOff()
	}
	return delay
}

// queueIdle is called by either queue when it drains. The crawl is idle only
// when both queues are drained, and each cycle is reported once.
func (s *Scheduler) queueIdle() {
	s.mu.Lock()
	if !s.busy || !s.scrapeQueue.Idle() || !s.processQueue.Idle() {
		s.mu.Unlock()
		return
	}
	s.busy = false
	close(s.cycle)
	s.mu.Unlock()

	s.publishDepth(stats.StageScraping)
	s.publishDepth(stats.StageDataProcessing)

	snap := s.stats.Snapshot()
	s.logger.Info("idle",
		"scraped", snap.Counts.Success.Scraping,
		"processed", snap.Counts.Success.DataProcessing)

	if s.onIdle != nil {
		s.onIdle()
	}
	if s.onDone != nil {
		s.onDone(snap)
	}
}

func (s *Scheduler) record(stage stats.Stage, outcome stats.Outcome, d time.Duration) {
	s.stats.Record(stage, outcome)
	if outcome == stats.OutcomeSuccess {
		s.stats.RecordTime(stage, d)
	}
	s.observer.ObserveAttempt(stage, outcome, d)
}

func (s *Scheduler) publishDepth(stage stats.Stage) {
	q := s.queue(stage)
	s.observer.SetQueueDepth(stage, q.Running(), q.Queued())
}

// executionTime prefers the duration reported by the collaborator and falls
// back to the measured one.
func executionTime(reported time.Duration, start time.Time) time.Duration {
	if reported > 0 {
		return reported
	}
	return time.Since(start)
}

// protect calls fn and converts a panic into ErrCollaboratorPanicked.
func protect[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, fmt.Errorf("%w: %v", ErrCollaboratorPanicked, r)
		}
	}()
	return fn()
}

// IsStopped reports whether err means the scheduler no longer accepts work.
func IsStopped(err error) bool {
	return errors.Is(err, taskqueue.ErrStopped)
}
