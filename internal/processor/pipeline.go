package processor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/spiderman/internal/model"
)

// Step is one unit of page processing.
type Step interface {
	// Do processes page. A returned error fails the step.
	Do(ctx context.Context, page *model.Page) error

	// Name returns the step name used in logs.
	Name() string
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, page *model.Page) error
}

// Do calls s.Fn(ctx, page).
func (s StepFunc) Do(ctx context.Context, page *model.Page) error {
	return s.Fn(ctx, page)
}

// Name returns s.StepName.
func (s StepFunc) Name() string {
	return s.StepName
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a failure.
// The failures are joined into the returned error.
func WithContinueOnError(continueOnError bool) PipelineOption {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// NewPipeline returns an empty pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps on page. It stops at the first failure unless the
// pipeline continues on error, and checks ctx before every step.
func (p *Pipeline) Execute(ctx context.Context, page *model.Page) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return errors.Join(append(errs, err)...)
		}

		if err := step.Do(ctx, page); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "url", page.URL, "error", err)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}
		p.logger.Debug("step completed", "step", step.Name(), "url", page.URL)
	}
	return errors.Join(errs...)
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
