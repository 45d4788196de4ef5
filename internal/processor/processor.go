package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/spiderman/internal/entity"
	"github.com/nao1215/spiderman/internal/model"
)

// Processor runs scraped pages through a pipeline.
// It implements entity.DataProcessor: failures are reported as a result
// with Success set to false, never as an error.
type Processor struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

var _ entity.DataProcessor = (*Processor)(nil)

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// New returns a Processor running pipeline.
func New(pipeline *Pipeline, opts ...Option) (*Processor, error) {
	if pipeline == nil {
		return nil, ErrNilPipeline
	}
	p := &Processor{
		pipeline: pipeline,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "processor")
	return p, nil
}

// Run processes data, which must be a *model.Page.
func (p *Processor) Run(ctx context.Context, data any) (entity.ProcessingResult, error) {
	start := time.Now()
	err := p.process(ctx, data)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Debug("processing FAILURE", "error", err)
		return entity.ProcessingResult{ExecutionTime: elapsed}, nil
	}
	p.logger.Debug("processing SUCCESS", "duration", elapsed)
	return entity.ProcessingResult{Success: true, ExecutionTime: elapsed}, nil
}

func (p *Processor) process(ctx context.Context, data any) error {
	page, ok := data.(*model.Page)
	if !ok || page == nil {
		return fmt.Errorf("%w: %T", ErrUnexpectedData, data)
	}
	return p.pipeline.Execute(ctx, page)
}
