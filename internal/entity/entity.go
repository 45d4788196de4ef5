package entity

import (
	"context"
	"time"
)

// ScrapingResult is the outcome of one Scraper run.
type ScrapingResult struct {
	// Success reports whether the URL was fetched and parsed.
	Success bool

	// Data is the structured payload handed to the data processor.
	Data any

	// NextURLs are candidate URLs discovered on the page.
	NextURLs []string

	// ExecutionTime is the time spent fetching and parsing.
	ExecutionTime time.Duration
}

// ProcessingResult is the outcome of one DataProcessor run.
type ProcessingResult struct {
	Success       bool
	ExecutionTime time.Duration
}

// Scraper fetches and parses a URL.
// Implementations should report ordinary failures as a result with Success
// set to false. A returned error is treated the same way.
type Scraper interface {
	Run(ctx context.Context, url string) (ScrapingResult, error)
}

// DataProcessor consumes the data produced by a Scraper.
// It follows the same failure contract as Scraper.
type DataProcessor interface {
	Run(ctx context.Context, data any) (ProcessingResult, error)
}

// ScraperFunc adapts a function to the Scraper interface.
type ScraperFunc func(ctx context.Context, url string) (ScrapingResult, error)

// Run calls f(ctx, url).
func (f ScraperFunc) Run(ctx context.Context, url string) (ScrapingResult, error) {
	return f(ctx, url)
}

// DataProcessorFunc adapts a function to the DataProcessor interface.
type DataProcessorFunc func(ctx context.Context, data any) (ProcessingResult, error)

// Run calls f(ctx, data).
func (f DataProcessorFunc) Run(ctx context.Context, data any) (ProcessingResult, error) {
	return f(ctx, data)
}

// URLEntity is a URL scheduled for scraping.
type URLEntity struct {
	URL           string
	Scraper       Scraper
	DataProcessor DataProcessor

	// RetryCount starts at -1 and is incremented before every attempt,
	// so it reads 0 during the first attempt.
	RetryCount int

	// FingerprintFunc overrides the deduplication key. When nil the URL
	// itself is the fingerprint.
	FingerprintFunc func(url string) string
}

// NewURLEntity returns an entity that has not been attempted yet.
// dataProcessor may be nil, in which case scraped data is discarded.
func NewURLEntity(url string, scraper Scraper, dataProcessor DataProcessor) *URLEntity {
	return &URLEntity{
		URL:           url,
		Scraper:       scraper,
		DataProcessor: dataProcessor,
		RetryCount:    -1,
	}
}

// Fingerprint returns the key used to detect duplicate URLs.
func (e *URLEntity) Fingerprint() string {
	if e.FingerprintFunc != nil {
		return e.FingerprintFunc(e.URL)
	}
	return e.URL
}

// Attempt returns the 1-based number of the current attempt.
func (e *URLEntity) Attempt() int {
	return e.RetryCount + 1
}

// DataEntity is scraped data scheduled for processing.
type DataEntity struct {
	Data          any
	DataProcessor DataProcessor
	RetryCount    int
}

// NewDataEntity returns an entity that has not been attempted yet.
func NewDataEntity(data any, dataProcessor DataProcessor) *DataEntity {
	return &DataEntity{
		Data:          data,
		DataProcessor: dataProcessor,
		RetryCount:    -1,
	}
}

// Attempt returns the 1-based number of the current attempt.
func (e *DataEntity) Attempt() int {
	return e.RetryCount + 1
}
