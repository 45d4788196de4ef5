package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/spiderman/internal/stats"
)

func testSummary(interrupted bool) *Summary {
	collector := stats.New()
	for range 5 {
		collector.Record(stats.StageScraping, stats.OutcomeSuccess)
		collector.RecordTime(stats.StageScraping, 40*time.Millisecond)
	}
	collector.Record(stats.StageScraping, stats.OutcomeSoftFailure)
	collector.Record(stats.StageScraping, stats.OutcomeHardFailure)
	for range 4 {
		collector.Record(stats.StageDataProcessing, stats.OutcomeSuccess)
		collector.RecordTime(stats.StageDataProcessing, 2*time.Millisecond)
	}

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Summary{
		StartURL:    "https://example.com/",
		StartedAt:   started,
		FinishedAt:  started.Add(1500 * time.Millisecond),
		Interrupted: interrupted,
		Stats:       collector.Snapshot(),
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		string(stats.StageScraping):       "Scraping",
		string(stats.StageDataProcessing): "Data Processing",
		string(stats.OutcomeSoftFailure):  "Soft Failure",
		"":                                "",
	}
	for in, want := range tests {
		if got := label(in); got != want {
			t.Errorf("label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	s := testSummary(false)
	if s.Duration() != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", s.Duration())
	}
	if s.Status() != "Complete" {
		t.Errorf("unexpected status %q", s.Status())
	}

	s.FinishedAt = s.StartedAt.Add(-time.Second)
	if s.Duration() != 0 {
		t.Errorf("expected zero duration, got %v", s.Duration())
	}
	if testSummary(true).Status() != "Interrupted" {
		t.Error("expected interrupted status")
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(testSummary(false))
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"SPIDERMAN CRAWL REPORT",
		"Start URL:  https://example.com/",
		"Duration:   1.5s",
		"Status:     Complete",
		"SCRAPING",
		"DATA PROCESSING",
		"Success:       5",
		"Soft Failure:  1",
		"Hard Failure:  1",
		"Success:       4",
		"Total Time:    200ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(testSummary(true)); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got %q", buf.String())
		}

		var got Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if !got.Interrupted || got.Stats.Counts.Success.Scraping != 5 {
			t.Errorf("unexpected summary %+v", got)
		}
	})

	t.Run("pretty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testSummary(false)); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"start_url\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("complete crawl with failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testSummary(false)); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Spiderman Crawl Report",
			"## Attempts",
			"Data Processing",
			"```mermaid",
			"Scraping Outcomes",
			"## Execution Time",
			"[!IMPORTANT]",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("interrupted crawl", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testSummary(true)); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected a warning:\n%s", buf.String())
		}
	})

	t.Run("empty crawl has no chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(&Summary{StartURL: "https://example.com/"}); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart without attempts")
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected a tip for a clean crawl")
		}
	})
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		check   func(Writer) bool
		wantErr bool
	}{
		{name: "text", format: FormatText, check: func(w Writer) bool { _, ok := w.(*SimpleWriter); return ok }},
		{name: "default", format: "", check: func(w Writer) bool { _, ok := w.(*SimpleWriter); return ok }},
		{name: "json", format: FormatJSON, check: func(w Writer) bool { _, ok := w.(*JSONWriter); return ok }},
		{name: "markdown", format: FormatMarkdown, check: func(w Writer) bool { _, ok := w.(*MarkdownWriter); return ok }},
		{name: "unknown", format: "html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, err := NewWriter(tt.format, &bytes.Buffer{})
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(w) {
				t.Errorf("unexpected writer %T", w)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write(*Summary) (int, error) {
	return 3, errors.New("closed")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	n, err := m.Write(testSummary(false))
	if err != nil {
		t.Fatal(err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
	}

	var c bytes.Buffer
	m = NewMultiWriter(failingWriter{}, NewSimpleWriter(&c))
	if _, err := m.Write(testSummary(false)); err == nil {
		t.Error("expected the first error")
	}
	if c.Len() != 0 {
		t.Error("writers after a failure must not run")
	}
}
