// Package crawler decides which discovered URLs are worth crawling.
//
// Classifier implements scheduler.Classifier. It keeps the crawl on the
// start host (unless any host is allowed), applies the per-site follow and
// ignore glob patterns and path depth limit, honors robots.txt, and pairs
// every accepted URL with the shared scraper and data processor.
//
// # Patterns
//
// Patterns are matched against the URL path:
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
//
// Ignore patterns win over follow patterns. When follow patterns are set a
// path must match one of them.
package crawler
