package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/spiderman/internal/model"
	"github.com/nao1215/spiderman/internal/stats"
)

// PageStore persists crawled pages and session statistics.
// It is safe for concurrent use.
type PageStore struct {
	db   *sql.DB
	path string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the file and its directory when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns options that create the database in WAL mode.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database file at path and creates the schema.
func Open(path string, opts Options) (*PageStore, error) {
	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotExist, path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &PageStore{db: db, path: path}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(context.Background()); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// Path returns the database file path.
func (s *PageStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *PageStore) Close() error {
	return s.db.Close()
}

func (s *PageStore) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		final_url TEXT,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		description TEXT,
		snapshot TEXT,
		hash TEXT,
		size INTEGER,
		headers TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_hash ON pages(hash);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);

	CREATE TABLE IF NOT EXISTS links (
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (from_url, to_url)
	);

	CREATE INDEX IF NOT EXISTS idx_links_to ON links(to_url);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		stats_json TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SavePage inserts or replaces the page of page.URL and its links.
func (s *PageStore) SavePage(ctx context.Context, page *model.Page) error {
	if page == nil {
		return ErrNilPage
	}

	headers, err := json.Marshal(page.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}
	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const upsert = `
	INSERT INTO pages (url, final_url, status_code, content_type, title, description, snapshot, hash, size, headers, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		final_url = excluded.final_url,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		description = excluded.description,
		snapshot = excluded.snapshot,
		hash = excluded.hash,
		size = excluded.size,
		headers = excluded.headers,
		fetched_at = excluded.fetched_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		page.URL,
		page.FinalURL,
		page.StatusCode,
		page.ContentType,
		page.Title,
		page.Description,
		page.Snapshot,
		page.Hash,
		page.Size,
		string(headers),
		fetchedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE from_url = ?`, page.URL); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	for i, link := range page.Links {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO links (from_url, to_url, position) VALUES (?, ?, ?)`,
			page.URL, link, i,
		); err != nil {
			return fmt.Errorf("failed to save link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// GetPage returns the page stored for url, links included.
// It returns ErrNotFound when the URL was never saved.
func (s *PageStore) GetPage(ctx context.Context, url string) (*model.Page, error) {
	const query = `
	SELECT url, final_url, status_code, content_type, title, description, snapshot, hash, size, headers, fetched_at
	FROM pages
	WHERE url = ?
	`

	var (
		page      model.Page
		headers   string
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx, query, url).Scan(
		&page.URL,
		&page.FinalURL,
		&page.StatusCode,
		&page.ContentType,
		&page.Title,
		&page.Description,
		&page.Snapshot,
		&page.Hash,
		&page.Size,
		&headers,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: page %s", ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page.FetchedAt = parseTimestamp(fetchedAt)
	if headers != "" && headers != "null" {
		if err := json.Unmarshal([]byte(headers), &page.Headers); err != nil {
			return nil, fmt.Errorf("failed to parse headers: %w", err)
		}
	}

	links, err := s.Links(ctx, url)
	if err != nil {
		return nil, err
	}
	page.Links = links
	return &page, nil
}

// Links returns the outgoing links of url in document order.
func (s *PageStore) Links(ctx context.Context, url string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT to_url FROM links WHERE from_url = ? ORDER BY position`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// CountPages returns the number of stored pages.
func (s *PageStore) CountPages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// HasRecentPage reports whether url was fetched within d.
func (s *PageStore) HasRecentPage(ctx context.Context, url string, d time.Duration) (bool, error) {
	var fetchedAt string
	err := s.db.QueryRowContext(ctx, `SELECT fetched_at FROM pages WHERE url = ?`, url).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent page: %w", err)
	}
	return time.Since(parseTimestamp(fetchedAt)) < d, nil
}

// Session is the summary of one finished crawl.
type Session struct {
	ID         int64
	StartURL   string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      stats.Snapshot
}

// SaveSession stores a finished crawl and returns its id.
func (s *PageStore) SaveSession(ctx context.Context, session *Session) (int64, error) {
	data, err := json.Marshal(session.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize statistics: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (start_url, started_at, finished_at, stats_json) VALUES (?, ?, ?, ?)`,
		session.StartURL,
		session.StartedAt.UTC().Format(time.RFC3339Nano),
		session.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save session: %w", err)
	}
	return result.LastInsertId()
}

// LatestSession returns the most recent session of startURL.
// It returns ErrNotFound when there is none.
func (s *PageStore) LatestSession(ctx context.Context, startURL string) (*Session, error) {
	const query = `
	SELECT id, start_url, started_at, finished_at, stats_json
	FROM sessions
	WHERE start_url = ?
	ORDER BY id DESC
	LIMIT 1
	`

	var (
		session    Session
		startedAt  string
		finishedAt string
		data       string
	)
	err := s.db.QueryRowContext(ctx, query, startURL).Scan(
		&session.ID,
		&session.StartURL,
		&startedAt,
		&finishedAt,
		&data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session of %s", ErrNotFound, startURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.StartedAt = parseTimestamp(startedAt)
	session.FinishedAt = parseTimestamp(finishedAt)
	if err := json.Unmarshal([]byte(data), &session.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse statistics: %w", err)
	}
	return &session, nil
}

// timestampFormats are the layouts SQLite may hand back, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
