package scraper

import "errors"

var (
	// ErrUnexpectedStatus is returned when the server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrInvalidProxy is returned when a proxy URL cannot be used.
	ErrInvalidProxy = errors.New("invalid proxy")

	// ErrNilParser is returned when a Scraper is built without a parser.
	ErrNilParser = errors.New("parser must not be nil")
)
