package scheduler

import "errors"

var (
	// ErrNilClassifier is returned by New when no classifier is given.
	ErrNilClassifier = errors.New("classifier must not be nil")

	// ErrNilScraper is returned when a classification carries no scraper.
	ErrNilScraper = errors.New("classification has no scraper")

	// ErrNilEntity is returned by ScheduleURLEntity for a nil entity.
	ErrNilEntity = errors.New("url entity must not be nil")

	// ErrCollaboratorPanicked wraps a panic raised by a scraper, data
	// processor or classifier.
	ErrCollaboratorPanicked = errors.New("collaborator panicked")

	// ErrInvalidShortRetries is returned when ShortRetries is negative.
	ErrInvalidShortRetries = errors.New("invalid short retries: must be non-negative")

	// ErrInvalidLongRetries is returned when LongRetries is negative.
	ErrInvalidLongRetries = errors.New("invalid long retries: must be non-negative")

	// ErrInvalidMaxScrapers is returned when MaxScrapers is less than 1.
	ErrInvalidMaxScrapers = errors.New("invalid max scrapers: must be at least 1")

	// ErrInvalidMaxDataProcessors is returned when MaxDataProcessors is less than 1.
	ErrInvalidMaxDataProcessors = errors.New("invalid max data processors: must be at least 1")

	// ErrInvalidTasksPerMin is returned when TasksPerMinPerQueue is less than 1.
	ErrInvalidTasksPerMin = errors.New("invalid tasks per minute: must be at least 1")

	// ErrInvalidMinTime is returned when MinTime is negative.
	ErrInvalidMinTime = errors.New("invalid min time: must be non-negative")

	// ErrInvalidShortRetryDelay is returned when ShortRetryDelay is negative.
	ErrInvalidShortRetryDelay = errors.New("invalid short retry delay: must be non-negative")
)
