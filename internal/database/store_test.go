package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/spiderman/internal/model"
	"github.com/nao1215/spiderman/internal/stats"
)

func setupTestStore(t *testing.T) *PageStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "spiderman.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates the file and directory", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "pages.db")
		store, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if store.Path() != path {
			t.Errorf("unexpected path %q", store.Path())
		}
	})

	t.Run("missing file without creation", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "missing.db")
		_, err := Open(path, Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotExist) {
			t.Fatalf("expected ErrDatabaseNotExist, got %v", err)
		}
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Error("no file should have been created")
		}
	})

	t.Run("reopens an existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "pages.db")
		first, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := first.SavePage(context.Background(), &model.Page{URL: "https://example.com/"}); err != nil {
			t.Fatal(err)
		}
		if err := first.Close(); err != nil {
			t.Fatal(err)
		}

		second, err := Open(path, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer second.Close()

		count, err := second.CountPages(context.Background())
		if err != nil || count != 1 {
			t.Errorf("expected 1 page, got %d, %v", count, err)
		}
	})
}

func TestPageStoreSavePage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		store := setupTestStore(t)
		fetched := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		page := &model.Page{
			URL:         "https://example.com/",
			FinalURL:    "https://example.com/home",
			StatusCode:  200,
			ContentType: "text/html",
			Headers:     map[string][]string{"Server": {"nginx"}},
			Title:       "Example",
			Description: "desc",
			Links:       []string{"https://example.com/b", "https://example.com/a"},
			Snapshot:    "hello",
			Hash:        "abc",
			Size:        42,
			FetchedAt:   fetched,
		}
		if err := store.SavePage(ctx, page); err != nil {
			t.Fatal(err)
		}

		got, err := store.GetPage(ctx, page.URL)
		if err != nil {
			t.Fatal(err)
		}
		if got.FinalURL != page.FinalURL || got.Title != "Example" || got.Size != 42 || got.Hash != "abc" {
			t.Errorf("unexpected page %+v", got)
		}
		if got.GetHeader("Server") != "nginx" {
			t.Errorf("unexpected headers %v", got.Headers)
		}
		if len(got.Links) != 2 || got.Links[0] != "https://example.com/b" {
			t.Errorf("links must keep document order, got %v", got.Links)
		}
		if !got.FetchedAt.Equal(fetched) {
			t.Errorf("expected %v, got %v", fetched, got.FetchedAt)
		}
	})

	t.Run("upsert replaces the page and its links", func(t *testing.T) {
		t.Parallel()

		store := setupTestStore(t)
		url := "https://example.com/p"
		if err := store.SavePage(ctx, &model.Page{URL: url, Title: "old", Links: []string{"x", "y"}}); err != nil {
			t.Fatal(err)
		}
		if err := store.SavePage(ctx, &model.Page{URL: url, Title: "new", Links: []string{"z"}}); err != nil {
			t.Fatal(err)
		}

		got, err := store.GetPage(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "new" || len(got.Links) != 1 || got.Links[0] != "z" {
			t.Errorf("unexpected page %+v", got)
		}
		if count, _ := store.CountPages(ctx); count != 1 {
			t.Errorf("expected 1 page, got %d", count)
		}
	})

	t.Run("nil page", func(t *testing.T) {
		t.Parallel()

		store := setupTestStore(t)
		if err := store.SavePage(ctx, nil); !errors.Is(err, ErrNilPage) {
			t.Errorf("expected ErrNilPage, got %v", err)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		t.Parallel()

		store := setupTestStore(t)
		if _, err := store.GetPage(ctx, "https://nowhere.test/"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent saves", func(t *testing.T) {
		t.Parallel()

		store := setupTestStore(t)
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				page := &model.Page{URL: "https://example.com/" + string(rune('a'+i))}
				if err := store.SavePage(ctx, page); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		if count, err := store.CountPages(ctx); err != nil || count != 20 {
			t.Errorf("expected 20 pages, got %d, %v", count, err)
		}
	})
}

func TestPageStoreHasRecentPage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupTestStore(t)

	if err := store.SavePage(ctx, &model.Page{URL: "https://example.com/new", FetchedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.SavePage(ctx, &model.Page{URL: "https://example.com/old", FetchedAt: time.Now().Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://example.com/new", want: true},
		{url: "https://example.com/old", want: false},
		{url: "https://example.com/never", want: false},
	}
	for _, tt := range tests {
		got, err := store.HasRecentPage(ctx, tt.url, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("HasRecentPage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestPageStoreSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupTestStore(t)

	if _, err := store.LatestSession(ctx, "https://example.com/"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	collector := stats.New()
	collector.Record(stats.StageScraping, stats.OutcomeSuccess)
	collector.Record(stats.StageScraping, stats.OutcomeHardFailure)
	collector.RecordTime(stats.StageScraping, 20*time.Millisecond)

	start := time.Now().Add(-time.Minute)
	for range 2 {
		if _, err := store.SaveSession(ctx, &Session{
			StartURL:   "https://example.com/",
			StartedAt:  start,
			FinishedAt: time.Now(),
			Stats:      collector.Snapshot(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.LatestSession(ctx, "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 2 {
		t.Errorf("expected the latest session, got id %d", got.ID)
	}
	if got.Stats.Counts.Success.Scraping != 1 || got.Stats.Counts.HardFailure.Scraping != 1 {
		t.Errorf("unexpected counts %+v", got.Stats.Counts)
	}
	if got.Stats.Time.Total.Scraping != 20*time.Millisecond {
		t.Errorf("unexpected total %v", got.Stats.Time.Total.Scraping)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("unexpected start %v", got.StartedAt)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2026-01-02 03:04:05", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2026-01-02T03:04:05Z", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2026-01-02T03:04:05.5Z", want: time.Date(2026, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{in: "garbage", want: time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
