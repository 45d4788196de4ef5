package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/spiderman/internal/dupfilter"
	"github.com/nao1215/spiderman/internal/scheduler"
)

// Default configuration values.
const (
	// AppName is the directory name used below the XDG base directories.
	AppName = "spiderman"

	// DefaultTimeout bounds a single HTTP request of the scraper.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent is sent when no user agent list is configured.
	DefaultUserAgent = "spiderman/1.0 (+https://github.com/nao1215/spiderman)"

	// DefaultDBFile is the database file name inside XDGDataDir.
	DefaultDBFile = "spiderman.db"

	// DefaultTorStartupTimeout bounds the bootstrap of the embedded Tor daemon.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Report formats.
const (
	ReportText     = "text"
	ReportJSON     = "json"
	ReportMarkdown = "markdown"
)

// Config holds every option of a crawl.
type Config struct {
	// URL is the crawl root.
	URL string

	// Scheduler settings, see scheduler.Options.
	ShortRetries        int
	LongRetries         int
	MaxScrapers         int
	MaxDataProcessors   int
	TasksPerMinPerQueue int
	MinTime             time.Duration

	// DupFilter selects the duplicate filter.
	DupFilter dupfilter.Kind

	// BloomCapacity and BloomErrorRate size the bloom filter variants.
	BloomCapacity  int64
	BloomErrorRate float64

	// Redis connection of the redis-bloom filter.
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64

	// UserAgents are picked at random for each request.
	UserAgents []string

	// Proxies are http, https or socks5 URLs picked at random for each
	// request. An empty list connects directly.
	Proxies []string

	// AnyHost follows links to other hosts than the start URL's.
	AnyHost bool

	// IgnoreRobots disables the robots.txt check.
	IgnoreRobots bool

	// MaxDepth limits the number of path segments of followed URLs.
	// Zero means unlimited. A per-site depth in the file takes precedence.
	MaxDepth int

	// UseTor routes every request through an embedded Tor daemon.
	UseTor bool

	// TorStartupTimeout bounds the Tor bootstrap.
	TorStartupTimeout time.Duration

	// SaveToDB stores every crawled page in the SQLite database at DBPath.
	SaveToDB bool
	DBPath   string

	// JSONLinesFile, when set, receives one JSON record per crawled page.
	JSONLinesFile string

	// ReportFormat is one of ReportText, ReportJSON or ReportMarkdown.
	ReportFormat string

	// ReportFile receives the statistics report instead of stdout.
	ReportFile string

	// MetricsAddr, when set, serves Prometheus metrics on /metrics.
	MetricsAddr string

	// Verbose enables debug logging.
	Verbose bool

	// LogLevel is a level name understood by log.ParseLevel. Verbose wins.
	LogLevel string

	// LogJSON writes JSON log records.
	LogJSON bool

	// ConfigFilePath is the explicit path of the configuration file.
	ConfigFilePath string

	// Sites holds the per-host rules of the configuration file.
	Sites *File
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	opts := scheduler.DefaultOptions()
	redis := dupfilter.DefaultRedisOptions()

	return &Config{
		ShortRetries:        opts.ShortRetries,
		LongRetries:         opts.LongRetries,
		MaxScrapers:         opts.MaxScrapers,
		MaxDataProcessors:   opts.MaxDataProcessors,
		TasksPerMinPerQueue: opts.TasksPerMinPerQueue,
		MinTime:             opts.MinTime,
		DupFilter:           dupfilter.KindSet,
		BloomCapacity:       dupfilter.DefaultCapacity,
		BloomErrorRate:      dupfilter.DefaultErrorRate,
		RedisAddress:        redis.Address,
		RedisKey:            redis.Key,
		Timeout:             DefaultTimeout,
		MaxBodySize:         DefaultMaxBodySize,
		UserAgents:          []string{DefaultUserAgent},
		TorStartupTimeout:   DefaultTorStartupTimeout,
		DBPath:              filepath.Join(XDGDataDir(), DefaultDBFile),
		ReportFormat:        ReportText,
		LogLevel:            "info",
		Sites:               &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/spiderman.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/spiderman.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SchedulerOptions converts the crawl settings to scheduler options.
func (c *Config) SchedulerOptions() scheduler.Options {
	opts := scheduler.DefaultOptions()
	opts.ShortRetries = c.ShortRetries
	opts.LongRetries = c.LongRetries
	opts.MaxScrapers = c.MaxScrapers
	opts.MaxDataProcessors = c.MaxDataProcessors
	opts.TasksPerMinPerQueue = c.TasksPerMinPerQueue
	opts.MinTime = c.MinTime
	opts.UseRedisBloom = c.DupFilter == dupfilter.KindRedisBloom
	opts.RedisBloom = c.redisOptions()
	return opts
}

// DupFilterConfig returns the duplicate filter configuration.
func (c *Config) DupFilterConfig() dupfilter.Config {
	return dupfilter.Config{
		Kind:      c.DupFilter,
		Capacity:  c.BloomCapacity,
		ErrorRate: c.BloomErrorRate,
		Redis:     c.redisOptions(),
	}
}

func (c *Config) redisOptions() dupfilter.RedisOptions {
	return dupfilter.RedisOptions{
		Address:   c.RedisAddress,
		Password:  c.RedisPassword,
		DB:        c.RedisDB,
		Key:       c.RedisKey,
		Capacity:  c.BloomCapacity,
		ErrorRate: c.BloomErrorRate,
	}
}

// Validate returns the first invalid setting found.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoTarget
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	if err := c.SchedulerOptions().Validate(); err != nil {
		return err
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	switch c.ReportFormat {
	case ReportText, ReportJSON, ReportMarkdown:
	default:
		return ErrInvalidReportFormat
	}

	switch c.DupFilter {
	case dupfilter.KindSet, dupfilter.KindBloom, dupfilter.KindRedisBloom:
	default:
		return ErrInvalidDupFilter
	}

	if c.UseTor && len(c.Proxies) > 0 {
		return ErrConflictingProxies
	}

	return nil
}
