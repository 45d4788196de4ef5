package processor

import "errors"

var (
	// ErrUnexpectedData is returned when the scraped data is not a *model.Page.
	ErrUnexpectedData = errors.New("unexpected data type")

	// ErrNilPipeline is returned when a Processor is built without a pipeline.
	ErrNilPipeline = errors.New("pipeline must not be nil")
)
