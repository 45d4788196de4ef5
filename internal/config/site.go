package config

import (
	"maps"
	"strings"
)

// SiteConfig holds the crawl rules of one host.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "name=value; other=value".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxDepth limits the number of path segments of followed URLs.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// IgnorePatterns are glob patterns of paths never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict crawling to matching paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// GetSiteConfig returns the rules of host: the defaults overridden by the
// exact host entry, or else by the longest matching "*." wildcard entry.
func (f *File) GetSiteConfig(host string) SiteConfig {
	result := f.Defaults
	if len(f.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(f.Defaults.Headers)
	}

	site, ok := f.lookup(strings.ToLower(host))
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.MaxDepth != 0 {
		result.MaxDepth = site.MaxDepth
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

func (f *File) lookup(host string) (SiteConfig, bool) {
	if site, ok := f.Sites[host]; ok {
		return site, true
	}

	var (
		best    SiteConfig
		bestLen int
	)
	for pattern, site := range f.Sites {
		suffix, ok := strings.CutPrefix(pattern, "*")
		if !ok || !strings.HasPrefix(suffix, ".") {
			continue
		}
		if strings.HasSuffix(host, suffix) && len(suffix) > bestLen {
			best, bestLen = site, len(suffix)
		}
	}
	return best, bestLen > 0
}
