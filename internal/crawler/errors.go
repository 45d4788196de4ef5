package crawler

import "errors"

var (
	// ErrNilScraper is returned when a Classifier is built without a scraper.
	ErrNilScraper = errors.New("scraper must not be nil")

	// ErrInvalidStartURL is returned for a start URL without http(s) scheme or host.
	ErrInvalidStartURL = errors.New("invalid start URL")
)
