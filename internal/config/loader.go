package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/spiderman/internal/dupfilter"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the
// current and home directories.
const DefaultConfigFile = ".spiderman"

// File is the structure of the YAML configuration file.
type File struct {
	// Crawl overrides the built-in defaults. Flags override Crawl.
	Crawl CrawlSettings `yaml:"crawl,omitempty"`

	// Sites maps host names to host specific rules. A key may start with
	// "*." to match every subdomain.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// CrawlSettings are the crawl options that may be set in the file.
// Zero values leave the current setting untouched.
type CrawlSettings struct {
	ShortRetries        *int          `yaml:"shortRetries,omitempty"`
	LongRetries         *int          `yaml:"longRetries,omitempty"`
	MaxScrapers         int           `yaml:"maxScrapers,omitempty"`
	MaxDataProcessors   int           `yaml:"maxDataProcessors,omitempty"`
	TasksPerMinPerQueue int           `yaml:"tasksPerMinPerQueue,omitempty"`
	MinTime             time.Duration `yaml:"minTime,omitempty"`
	Timeout             time.Duration `yaml:"timeout,omitempty"`
	UserAgents          []string      `yaml:"userAgents,omitempty"`
	Proxies             []string      `yaml:"proxies,omitempty"`
	MaxDepth            int           `yaml:"maxDepth,omitempty"`
	AnyHost             bool          `yaml:"anyHost,omitempty"`
	IgnoreRobots        bool          `yaml:"ignoreRobots,omitempty"`
	DupFilter           string        `yaml:"dupFilter,omitempty"`
	Redis               RedisSettings `yaml:"redis,omitempty"`
}

// RedisSettings configure the redis-bloom duplicate filter.
type RedisSettings struct {
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// LoadConfigFile reads and parses the configuration file at path.
// It returns ErrConfigNotFound if the file does not exist.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.Sites == nil {
		f.Sites = make(map[string]SiteConfig)
	}
	return &f, nil
}

// FindConfigFile returns the first existing configuration file of:
//  1. configPath, when given
//  2. ./.spiderman
//  3. $XDG_CONFIG_HOME/spiderman/config.yaml
//  4. ~/.spiderman
//
// It returns an empty string when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyFile copies the settings of f into c and keeps f for the per-host
// rules.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.Sites = f

	s := f.Crawl
	if s.ShortRetries != nil {
		c.ShortRetries = *s.ShortRetries
	}
	if s.LongRetries != nil {
		c.LongRetries = *s.LongRetries
	}
	if s.MaxScrapers != 0 {
		c.MaxScrapers = s.MaxScrapers
	}
	if s.MaxDataProcessors != 0 {
		c.MaxDataProcessors = s.MaxDataProcessors
	}
	if s.TasksPerMinPerQueue != 0 {
		c.TasksPerMinPerQueue = s.TasksPerMinPerQueue
	}
	if s.MinTime != 0 {
		c.MinTime = s.MinTime
	}
	if s.Timeout != 0 {
		c.Timeout = s.Timeout
	}
	if len(s.UserAgents) > 0 {
		c.UserAgents = s.UserAgents
	}
	if len(s.Proxies) > 0 {
		c.Proxies = s.Proxies
	}
	if s.MaxDepth != 0 {
		c.MaxDepth = s.MaxDepth
	}
	c.AnyHost = c.AnyHost || s.AnyHost
	c.IgnoreRobots = c.IgnoreRobots || s.IgnoreRobots
	if s.DupFilter != "" {
		c.DupFilter = dupfilter.Kind(s.DupFilter)
	}
	if s.Redis.Address != "" {
		c.RedisAddress = s.Redis.Address
	}
	if s.Redis.Password != "" {
		c.RedisPassword = s.Redis.Password
	}
	if s.Redis.DB != 0 {
		c.RedisDB = s.Redis.DB
	}
	if s.Redis.Key != "" {
		c.RedisKey = s.Redis.Key
	}
}
