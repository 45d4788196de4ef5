package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/spiderman/internal/config"
	"github.com/nao1215/spiderman/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var nopScraper = entity.ScraperFunc(func(context.Context, string) (entity.ScrapingResult, error) {
	return entity.ScrapingResult{Success: true}, nil
})

var nopProcessor = entity.DataProcessorFunc(func(context.Context, any) (entity.ProcessingResult, error) {
	return entity.ProcessingResult{Success: true}, nil
})

func TestNewClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scraper entity.Scraper
		urls    []string
		wantErr error
	}{
		{name: "valid", scraper: nopScraper, urls: []string{"https://example.com/"}},
		{name: "nil scraper", scraper: nil, urls: []string{"https://example.com/"}, wantErr: ErrNilScraper},
		{name: "no scheme", scraper: nopScraper, urls: []string{"example.com"}, wantErr: ErrInvalidStartURL},
		{name: "ftp", scraper: nopScraper, urls: []string{"ftp://example.com/"}, wantErr: ErrInvalidStartURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewClassifier(tt.scraper, tt.urls)
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

func TestClassifierClassify(t *testing.T) {
	t.Parallel()

	sites := &config.File{
		Defaults: config.SiteConfig{IgnorePatterns: []string{"*.pdf"}},
		Sites: map[string]config.SiteConfig{
			"docs.example.com": {FollowPatterns: []string{"/guide/*"}, MaxDepth: 2},
		},
	}
	c, err := NewClassifier(nopScraper, []string{"https://example.com/", "https://docs.example.com/guide/"},
		WithLogger(discardLogger()),
		WithDataProcessor(nopProcessor),
		WithSites(sites),
		WithMaxDepth(3),
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		url    string
		accept bool
	}{
		{name: "start host", url: "https://example.com/a", accept: true},
		{name: "host is case-insensitive", url: "https://EXAMPLE.com/a", accept: true},
		{name: "other host", url: "https://other.org/", accept: false},
		{name: "mailto", url: "mailto:a@example.com", accept: false},
		{name: "ignored extension", url: "https://example.com/file.pdf", accept: false},
		{name: "within depth", url: "https://example.com/a/b/c", accept: true},
		{name: "too deep", url: "https://example.com/a/b/c/d", accept: false},
		{name: "site follow pattern", url: "https://docs.example.com/guide/x", accept: true},
		{name: "outside follow pattern", url: "https://docs.example.com/blog/x", accept: false},
		{name: "site depth overrides", url: "https://docs.example.com/guide/x/y", accept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.Classify(context.Background(), tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if (got != nil) != tt.accept {
				t.Fatalf("Classify(%q) accepted = %v, want %v", tt.url, got != nil, tt.accept)
			}
			if got == nil {
				return
			}
			e := got.URLEntity
			if e == nil || e.URL != tt.url || e.Scraper == nil || e.DataProcessor == nil {
				t.Fatalf("unexpected entity %+v", e)
			}
			if e.RetryCount != -1 {
				t.Errorf("expected a fresh entity, got RetryCount %d", e.RetryCount)
			}
			if e.Fingerprint() != entity.HashFingerprint(tt.url) {
				t.Errorf("expected a hashed fingerprint, got %q", e.Fingerprint())
			}
		})
	}
}

func TestClassifierAnyHost(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(nopScraper, []string{"https://example.com/"},
		WithLogger(discardLogger()),
		WithAnyHost(true),
		WithFingerprint(func(u string) string { return u }),
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Classify(context.Background(), "https://other.org/page#frag")
	if err != nil || got == nil {
		t.Fatalf("expected acceptance, got %v, %v", got, err)
	}
	if got.URLEntity.DataProcessor != nil {
		t.Error("expected no processor by default")
	}
	if got.URLEntity.Fingerprint() != "https://other.org/page#frag" {
		t.Errorf("unexpected fingerprint %q", got.URLEntity.Fingerprint())
	}
}

func TestClassifierAllowHost(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(nopScraper, nil, WithLogger(discardLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Classify(context.Background(), "https://late.example/"); got != nil {
		t.Fatal("expected rejection before the host is allowed")
	}
	c.AllowHost("LATE.example")
	if got, _ := c.Classify(context.Background(), "https://late.example/"); got == nil {
		t.Error("expected acceptance after AllowHost")
	}
}

func TestClassifierRobots(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = io.WriteString(w, "User-agent: *\nDisallow: /secret\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewClassifier(nopScraper, []string{server.URL},
		WithLogger(discardLogger()),
		WithRobots(NewRobotsChecker(server.Client(), "spiderman", 0)),
	)
	if err != nil {
		t.Fatal(err)
	}

	if got, err := c.Classify(context.Background(), server.URL+"/secret/a"); err != nil || got != nil {
		t.Errorf("expected robots.txt to reject, got %v, %v", got, err)
	}
	if got, err := c.Classify(context.Background(), server.URL+"/open"); err != nil || got == nil {
		t.Errorf("expected acceptance, got %v, %v", got, err)
	}
}
