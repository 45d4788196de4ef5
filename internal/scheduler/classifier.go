package scheduler

import (
	"context"

	"github.com/nao1215/spiderman/internal/entity"
)

// Classification tells the scheduler how to handle a URL.
type Classification struct {
	// Scraper fetches and parses the URL.
	Scraper entity.Scraper

	// DataProcessor consumes the scraped data. Nil discards it.
	DataProcessor entity.DataProcessor

	// URLEntity, when set, is used as is instead of building a new entity
	// from Scraper and DataProcessor. This allows a custom fingerprint.
	URLEntity *entity.URLEntity
}

// Classifier maps a URL to its collaborators.
// Returning a nil Classification discards the URL.
type Classifier interface {
	Classify(ctx context.Context, url string) (*Classification, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, url string) (*Classification, error)

// Classify calls f(ctx, url).
func (f ClassifierFunc) Classify(ctx context.Context, url string) (*Classification, error) {
	return f(ctx, url)
}
