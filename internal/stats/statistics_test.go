package stats

import (
	"sync"
	"testing"
	"time"
)

// TestStatisticsRecord tests outcome counting.
func TestStatisticsRecord(t *testing.T) {
	t.Parallel()

	t.Run("counts each stage and outcome separately", func(t *testing.T) {
		t.Parallel()

		s := New()
		s.Record(StageScraping, OutcomeSuccess)
		s.Record(StageScraping, OutcomeSuccess)
		s.Record(StageScraping, OutcomeHardFailure)
		s.Record(StageDataProcessing, OutcomeSoftFailure)

		snap := s.Snapshot()
		if got := snap.Counts.Get(OutcomeSuccess, StageScraping); got != 2 {
			t.Errorf("expected 2 scraping successes, got %d", got)
		}
		if got := snap.Counts.Get(OutcomeHardFailure, StageScraping); got != 1 {
			t.Errorf("expected 1 scraping hard failure, got %d", got)
		}
		if got := snap.Counts.Get(OutcomeSoftFailure, StageDataProcessing); got != 1 {
			t.Errorf("expected 1 processing soft failure, got %d", got)
		}
		if got := snap.Counts.Get(OutcomeSuccess, StageDataProcessing); got != 0 {
			t.Errorf("expected 0 processing successes, got %d", got)
		}
		if got := snap.Attempts(StageScraping); got != 3 {
			t.Errorf("expected 3 scraping attempts, got %d", got)
		}
	})

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()

		var s Statistics
		s.Record(StageDataProcessing, OutcomeSuccess)
		if got := s.Snapshot().Counts.Success.DataProcessing; got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		s := New()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Record(StageScraping, OutcomeSuccess)
				s.RecordTime(StageScraping, time.Millisecond)
			}()
		}
		wg.Wait()

		if got := s.Snapshot().Counts.Success.Scraping; got != 50 {
			t.Errorf("expected 50, got %d", got)
		}
		if got := s.Snapshot().Time.Total.Scraping; got != 50*time.Millisecond {
			t.Errorf("expected 50ms total, got %v", got)
		}
	})
}

// TestStatisticsRecordTime tests the running average.
func TestStatisticsRecordTime(t *testing.T) {
	t.Parallel()

	s := New()
	s.RecordTime(StageDataProcessing, 100*time.Millisecond)
	s.RecordTime(StageDataProcessing, 300*time.Millisecond)

	snap := s.Snapshot()
	if snap.Time.Total.DataProcessing != 400*time.Millisecond {
		t.Errorf("expected total 400ms, got %v", snap.Time.Total.DataProcessing)
	}
	// (0+100)/2 = 50, (50+300)/2 = 175
	if snap.Time.Avg.DataProcessing != 175*time.Millisecond {
		t.Errorf("expected avg 175ms, got %v", snap.Time.Avg.DataProcessing)
	}
	if snap.Time.Avg.Scraping != 0 {
		t.Errorf("expected scraping avg untouched, got %v", snap.Time.Avg.Scraping)
	}
}

// TestSnapshotIsCopy ensures snapshots do not change after later updates.
func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	before := s.Snapshot()
	s.Record(StageScraping, OutcomeSuccess)

	if before.Counts.Success.Scraping != 0 {
		t.Error("snapshot changed after Record")
	}
}
