package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/spiderman/internal/config"
	"github.com/nao1215/spiderman/internal/entity"
)

// acceptHeader matches what a desktop browser sends for a navigation.
const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Scraper fetches a URL and parses the response.
// It implements entity.Scraper: any failure is reported as a result with
// Success set to false, never as an error.
type Scraper struct {
	parser      Parser
	logger      *slog.Logger
	userAgents  []string
	proxies     []string
	timeout     time.Duration
	maxBodySize int64
	sites       *config.File

	// client, when set, is used for every request.
	client *http.Client

	// clients holds one client per proxy, or a single direct client.
	clients []*http.Client
}

var _ entity.Scraper = (*Scraper)(nil)

// New returns a Scraper that parses responses with parser.
// It fails when a configured proxy cannot be used.
func New(parser Parser, opts ...Option) (*Scraper, error) {
	if parser == nil {
		return nil, ErrNilParser
	}

	s := &Scraper{
		parser:      parser,
		logger:      slog.Default(),
		userAgents:  []string{config.DefaultUserAgent},
		timeout:     config.DefaultTimeout,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scraper")

	if s.client != nil {
		s.clients = []*http.Client{s.client}
		return s, nil
	}

	if len(s.proxies) == 0 {
		client, err := NewHTTPClient("", s.timeout)
		if err != nil {
			return nil, err
		}
		s.clients = []*http.Client{client}
		return s, nil
	}

	s.clients = make([]*http.Client, 0, len(s.proxies))
	for _, p := range s.proxies {
		client, err := NewHTTPClient(p, s.timeout)
		if err != nil {
			return nil, err
		}
		s.clients = append(s.clients, client)
	}
	return s, nil
}

// Run fetches and parses url, timing the whole attempt.
func (s *Scraper) Run(ctx context.Context, url string) (entity.ScrapingResult, error) {
	start := time.Now()
	result, err := s.process(ctx, url)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Debug("scrape failed", "url", url, "error", err)
		return entity.ScrapingResult{ExecutionTime: elapsed}, nil
	}

	s.logger.Debug("scrape succeeded", "url", url, "links", len(result.NextURLs))
	result.Success = true
	result.ExecutionTime = elapsed
	return result, nil
}

func (s *Scraper) process(ctx context.Context, url string) (entity.ScrapingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.ScrapingResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	s.prepare(req)

	resp, err := chooseRandom(s.clients).Do(req)
	if err != nil {
		return entity.ScrapingResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return entity.ScrapingResult{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return entity.ScrapingResult{}, fmt.Errorf("failed to read body: %w", err)
	}

	return s.parser.Parse(ctx, body, Meta{
		URL:      url,
		Request:  req,
		Response: resp,
	})
}

// prepare sets the request headers: a random user agent, then the headers
// and cookie of the target site.
func (s *Scraper) prepare(req *http.Request) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if ua := chooseRandom(s.userAgents); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	if s.sites == nil {
		return
	}
	site := s.sites.GetSiteConfig(req.URL.Hostname())
	for name, value := range site.Headers {
		req.Header.Set(name, value)
	}
	if cookie := strings.TrimSpace(site.Cookie); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
}

// chooseRandom returns a random element of items or the zero value.
func chooseRandom[T any](items []T) T {
	var zero T
	switch len(items) {
	case 0:
		return zero
	case 1:
		return items[0]
	default:
		return items[rand.IntN(len(items))] //nolint:gosec // not security sensitive
	}
}
