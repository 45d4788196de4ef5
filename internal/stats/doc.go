// Package stats accumulates per-stage task outcomes for a crawl.
//
// A crawl has two stages, scraping and data processing. Every attempt in a
// stage ends in one of three outcomes: success, soft failure (retried) or
// hard failure (dropped). Statistics counts outcomes and keeps the total and
// a recency-weighted average of the execution time of successful attempts.
package stats
