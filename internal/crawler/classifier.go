package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/spiderman/internal/config"
	"github.com/nao1215/spiderman/internal/entity"
	"github.com/nao1215/spiderman/internal/scheduler"
)

// Classifier accepts the URLs that belong to the crawl.
// It is safe for concurrent use.
type Classifier struct {
	scraper     entity.Scraper
	processor   entity.DataProcessor
	logger      *slog.Logger
	sites       *config.File
	robots      *RobotsChecker
	anyHost     bool
	maxDepth    int
	fingerprint func(string) string

	mu    sync.RWMutex
	hosts map[string]struct{}
}

var _ scheduler.Classifier = (*Classifier)(nil)

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithDataProcessor sets the processor paired with every accepted URL.
func WithDataProcessor(processor entity.DataProcessor) Option {
	return func(c *Classifier) {
		c.processor = processor
	}
}

// WithSites sets the per-site crawl rules.
func WithSites(sites *config.File) Option {
	return func(c *Classifier) {
		c.sites = sites
	}
}

// WithRobots makes the classifier honor robots.txt through checker.
func WithRobots(checker *RobotsChecker) Option {
	return func(c *Classifier) {
		c.robots = checker
	}
}

// WithAnyHost allows URLs of every host.
func WithAnyHost(anyHost bool) Option {
	return func(c *Classifier) {
		c.anyHost = anyHost
	}
}

// WithMaxDepth limits the number of path segments. Zero means unlimited.
// A per-site max depth takes precedence.
func WithMaxDepth(depth int) Option {
	return func(c *Classifier) {
		c.maxDepth = depth
	}
}

// WithFingerprint replaces the deduplication key function.
func WithFingerprint(fn func(string) string) Option {
	return func(c *Classifier) {
		c.fingerprint = fn
	}
}

// NewClassifier returns a classifier scoped to the hosts of startURLs.
func NewClassifier(scraper entity.Scraper, startURLs []string, opts ...Option) (*Classifier, error) {
	if scraper == nil {
		return nil, ErrNilScraper
	}

	c := &Classifier{
		scraper:     scraper,
		logger:      slog.Default(),
		fingerprint: entity.HashFingerprint,
		hosts:       make(map[string]struct{}, len(startURLs)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "classifier")

	for _, raw := range startURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, raw)
		}
		c.AllowHost(u.Host)
	}
	return c, nil
}

// AllowHost adds host to the crawl scope.
func (c *Classifier) AllowHost(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts[strings.ToLower(host)] = struct{}{}
}

func (c *Classifier) inScope(host string) bool {
	if c.anyHost {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.hosts[strings.ToLower(host)]
	return ok
}

// Classify implements scheduler.Classifier. It returns nil for URLs out of
// scope and an error only when robots.txt cannot be evaluated.
func (c *Classifier) Classify(ctx context.Context, rawURL string) (*scheduler.Classification, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.logger.Debug("skipping url", "url", rawURL, "reason", "unsupported")
		return nil, nil
	}

	if !c.inScope(u.Host) {
		c.logger.Debug("skipping url", "url", rawURL, "reason", "out of scope")
		return nil, nil
	}

	var site config.SiteConfig
	if c.sites != nil {
		site = c.sites.GetSiteConfig(u.Hostname())
	}

	maxDepth := c.maxDepth
	if site.MaxDepth > 0 {
		maxDepth = site.MaxDepth
	}
	if maxDepth > 0 && pathDepth(u.Path) > maxDepth {
		c.logger.Debug("skipping url", "url", rawURL, "reason", "too deep")
		return nil, nil
	}

	if !shouldCrawl(u.Path, site.IgnorePatterns, site.FollowPatterns) {
		c.logger.Debug("skipping url", "url", rawURL, "reason", "pattern")
		return nil, nil
	}

	if c.robots != nil {
		allowed, err := c.robots.IsAllowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			c.logger.Debug("skipping url", "url", rawURL, "reason", "robots.txt")
			return nil, nil
		}
	}

	e := entity.NewURLEntity(rawURL, c.scraper, c.processor)
	e.FingerprintFunc = c.fingerprint
	return &scheduler.Classification{URLEntity: e}, nil
}
