package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

const robotsBody = `User-agent: *
Disallow: /private/
Crawl-delay: 2

User-agent: spiderman
Disallow: /no-spiders
`

func TestRobotsChecker(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = io.WriteString(w, robotsBody)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	checker := NewRobotsChecker(server.Client(), "spiderman", 0)
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{path: "/", want: true},
		{path: "/public/page", want: true},
		{path: "/no-spiders", want: false},
	}
	for _, tt := range tests {
		got, err := checker.IsAllowed(ctx, server.URL+tt.path)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if n := fetches.Load(); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}

	generic := NewRobotsChecker(server.Client(), "other-bot", time.Hour)
	allowed, err := generic.IsAllowed(ctx, server.URL+"/private/x")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("expected /private/ to be disallowed for other agents")
	}
	u, _ := url.Parse(server.URL)
	if d := generic.CrawlDelay(u.Host); d != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", d)
	}
}

func TestRobotsCheckerAllowsOnFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing robots.txt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)

		checker := NewRobotsChecker(server.Client(), "spiderman", 0)
		allowed, err := checker.IsAllowed(ctx, server.URL+"/anything")
		if err != nil || !allowed {
			t.Errorf("expected allow, got %v, %v", allowed, err)
		}
		u, _ := url.Parse(server.URL)
		if d := checker.CrawlDelay(u.Host); d != 0 {
			t.Errorf("expected no crawl delay, got %v", d)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		checker := NewRobotsChecker(nil, "spiderman", 0)
		allowed, err := checker.IsAllowed(ctx, addr+"/")
		if err != nil || !allowed {
			t.Errorf("expected allow, got %v, %v", allowed, err)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		checker := NewRobotsChecker(nil, "spiderman", 0)
		if _, err := checker.IsAllowed(ctx, "/relative"); err == nil {
			t.Error("expected an error for a URL without host")
		}
	})
}

func TestRobotsCheckerCacheExpiry(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = io.WriteString(w, "User-agent: *\nDisallow:\n")
	}))
	t.Cleanup(server.Close)

	checker := NewRobotsChecker(server.Client(), "spiderman", time.Millisecond)
	for range 2 {
		if _, err := checker.IsAllowed(context.Background(), server.URL+"/"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("expected a refetch after expiry, got %d fetches", n)
	}
}
