package crawler

import (
	"path"
	"strings"
)

// shouldCrawl reports whether urlPath passes the ignore and follow patterns.
func shouldCrawl(urlPath string, ignorePatterns, followPatterns []string) bool {
	if urlPath == "" {
		urlPath = "/"
	}

	for _, pattern := range ignorePatterns {
		if matchPattern(pattern, urlPath) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}
	for _, pattern := range followPatterns {
		if matchPattern(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchPattern matches a glob pattern against a URL path.
// "*" does not cross "/" except in the "/dir/*" and "*.ext" shorthands.
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[/") {
		if strings.HasSuffix(urlPath, "."+ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(urlPath)); err == nil && matched {
			return true
		}
	}
	return false
}

// pathDepth returns the number of non-empty segments of urlPath.
func pathDepth(urlPath string) int {
	depth := 0
	for segment := range strings.SplitSeq(urlPath, "/") {
		if segment != "" {
			depth++
		}
	}
	return depth
}
