package scraper

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/spiderman/internal/config"
)

// Option configures a Scraper.
type Option func(*Scraper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithUserAgents sets the user agents picked at random per request.
func WithUserAgents(agents ...string) Option {
	return func(s *Scraper) {
		s.userAgents = agents
	}
}

// WithProxies sets the proxies picked at random per request.
func WithProxies(proxies ...string) Option {
	return func(s *Scraper) {
		s.proxies = proxies
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		s.timeout = timeout
	}
}

// WithMaxBodySize sets how many body bytes are read.
func WithMaxBodySize(size int64) Option {
	return func(s *Scraper) {
		s.maxBodySize = size
	}
}

// WithSites sets the per-site headers and cookies.
func WithSites(sites *config.File) Option {
	return func(s *Scraper) {
		s.sites = sites
	}
}

// WithHTTPClient replaces the clients built from the proxy list.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}
