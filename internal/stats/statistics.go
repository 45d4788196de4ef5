package stats

import (
	"sync"
	"time"
)

// Stage identifies one of the two crawl stages.
type Stage string

const (
	// StageScraping is the fetch-and-parse stage.
	StageScraping Stage = "scraping"
	// StageDataProcessing is the stage that consumes scraped data.
	StageDataProcessing Stage = "dataProcessing"
)

// Stages lists every stage in reporting order.
var Stages = []Stage{StageScraping, StageDataProcessing}

// Outcome is the result of a single attempt.
type Outcome string

const (
	// OutcomeSuccess is a completed attempt.
	OutcomeSuccess Outcome = "success"
	// OutcomeSoftFailure is a failed attempt that will be retried.
	OutcomeSoftFailure Outcome = "softFailure"
	// OutcomeHardFailure is a failed attempt whose entity is dropped.
	OutcomeHardFailure Outcome = "hardFailure"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeSoftFailure, OutcomeHardFailure}

// StageCounts holds one counter per stage.
type StageCounts struct {
	Scraping       int `json:"scraping"`
	DataProcessing int `json:"dataProcessing"`
}

// Get returns the counter of the given stage.
func (c StageCounts) Get(stage Stage) int {
	if stage == StageDataProcessing {
		return c.DataProcessing
	}
	return c.Scraping
}

// StageDurations holds one duration per stage.
type StageDurations struct {
	Scraping       time.Duration `json:"scraping"`
	DataProcessing time.Duration `json:"dataProcessing"`
}

// Get returns the duration of the given stage.
func (d StageDurations) Get(stage Stage) time.Duration {
	if stage == StageDataProcessing {
		return d.DataProcessing
	}
	return d.Scraping
}

// Counts groups the stage counters by outcome.
type Counts struct {
	Success     StageCounts `json:"success"`
	SoftFailure StageCounts `json:"softFailure"`
	HardFailure StageCounts `json:"hardFailure"`
}

// Get returns the counter for an outcome and stage pair.
func (c Counts) Get(outcome Outcome, stage Stage) int {
	switch outcome {
	case OutcomeSoftFailure:
		return c.SoftFailure.Get(stage)
	case OutcomeHardFailure:
		return c.HardFailure.Get(stage)
	default:
		return c.Success.Get(stage)
	}
}

// Times groups execution time totals and averages.
type Times struct {
	Total StageDurations `json:"total"`
	Avg   StageDurations `json:"avg"`
}

// Snapshot is an immutable copy of the statistics at one point in time.
type Snapshot struct {
	Counts Counts `json:"counts"`
	Time   Times  `json:"time"`
}

// Attempts returns the number of recorded attempts of a stage.
func (s Snapshot) Attempts(stage Stage) int {
	total := 0
	for _, o := range Outcomes {
		total += s.Counts.Get(o, stage)
	}
	return total
}

// Statistics is the mutable collector owned by a scheduler.
// The zero value is ready to use.
type Statistics struct {
	mu     sync.Mutex
	counts Counts
	time   Times
}

// New returns an empty collector.
func New() *Statistics {
	return &Statistics{}
}

// Record increments the counter of outcome for stage by one.
func (s *Statistics) Record(stage Stage, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c *StageCounts
	switch outcome {
	case OutcomeSoftFailure:
		c = &s.counts.SoftFailure
	case OutcomeHardFailure:
		c = &s.counts.HardFailure
	default:
		c = &s.counts.Success
	}
	if stage == StageDataProcessing {
		c.DataProcessing++
	} else {
		c.Scraping++
	}
}

// RecordTime adds the execution time of a successful attempt.
// The average is updated as (avg + d) / 2, which weights recent samples.
func (s *Statistics) RecordTime(stage Stage, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stage == StageDataProcessing {
		s.time.Total.DataProcessing += d
		s.time.Avg.DataProcessing = (s.time.Avg.DataProcessing + d) / 2
		return
	}
	s.time.Total.Scraping += d
	s.time.Avg.Scraping = (s.time.Avg.Scraping + d) / 2
}

// Snapshot returns a copy of the current values.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Counts: s.counts, Time: s.time}
}
