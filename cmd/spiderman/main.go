// Package main provides the entry point for the spiderman CLI.
//
// spiderman crawls a web site starting at a single URL. Pages are scraped
// and processed by two rate limited priority queues, every URL is
// fingerprinted once, and failed pages are retried with a lower priority.
//
// Usage:
//
//	spiderman crawl https://example.com/
//	spiderman history https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for spiderman.
func main() {
	Execute()
}
