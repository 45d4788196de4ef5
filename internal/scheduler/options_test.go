package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr error
	}{
		{name: "defaults", modify: func(*Options) {}},
		{name: "zero retries", modify: func(o *Options) { o.ShortRetries, o.LongRetries = 0, 0 }},
		{name: "negative short retries", modify: func(o *Options) { o.ShortRetries = -1 }, wantErr: ErrInvalidShortRetries},
		{name: "negative long retries", modify: func(o *Options) { o.LongRetries = -1 }, wantErr: ErrInvalidLongRetries},
		{name: "no scrapers", modify: func(o *Options) { o.MaxScrapers = 0 }, wantErr: ErrInvalidMaxScrapers},
		{name: "no data processors", modify: func(o *Options) { o.MaxDataProcessors = 0 }, wantErr: ErrInvalidMaxDataProcessors},
		{name: "no tasks per minute", modify: func(o *Options) { o.TasksPerMinPerQueue = 0 }, wantErr: ErrInvalidTasksPerMin},
		{name: "negative min time", modify: func(o *Options) { o.MinTime = -time.Second }, wantErr: ErrInvalidMinTime},
		{name: "negative retry delay", modify: func(o *Options) { o.ShortRetryDelay = -time.Second }, wantErr: ErrInvalidShortRetryDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if opts.ShortRetries != 1 || opts.LongRetries != 2 {
		t.Errorf("unexpected retry defaults: %d/%d", opts.ShortRetries, opts.LongRetries)
	}
	if opts.MaxScrapers != 8 || opts.MaxDataProcessors != 4 {
		t.Errorf("unexpected concurrency defaults: %d/%d", opts.MaxScrapers, opts.MaxDataProcessors)
	}
	if opts.TasksPerMinPerQueue != 100 {
		t.Errorf("unexpected tasks per minute: %d", opts.TasksPerMinPerQueue)
	}
	if opts.MinTime != 100*time.Millisecond {
		t.Errorf("unexpected min time: %v", opts.MinTime)
	}
	if opts.UseRedisBloom {
		t.Error("redis bloom must be opt-in")
	}
}

func TestShortRetryDelay(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.ShortRetryDelay = 10 * time.Millisecond
	s := &Scheduler{options: opts}

	prev := time.Duration(0)
	for retry := range 4 {
		d := s.shortRetryDelay(retry)
		if d < opts.ShortRetryDelay {
			t.Errorf("retry %d: delay %v below the initial delay", retry, d)
		}
		if d < prev {
			t.Errorf("retry %d: delay %v shorter than previous %v", retry, d, prev)
		}
		prev = d
	}
	if got := s.shortRetryDelay(0); got != opts.ShortRetryDelay {
		t.Errorf("first delay = %v, want %v", got, opts.ShortRetryDelay)
	}
}
