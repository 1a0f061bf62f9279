package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/kwcrawl/internal/fetch"
	"github.com/nao1215/kwcrawl/internal/model"
)

// Page is the unit of work passed through the steps.
type Page struct {
	// URL is the canonical URL of the page after redirects.
	URL string

	// Depth is the number of link hops from a seed.
	Depth int

	// Response is the fetched page.
	Response *fetch.Response

	// Seen reports URLs already visited by the crawl. It may be nil.
	Seen func(string) bool

	// Record is set by the extract step.
	Record *model.PageRecord

	// Match is set by the analyze step.
	Match model.KeywordMatch

	// Persisted is true when the sink returned without error.
	Persisted bool

	// Performed lists the names of the steps that ran.
	Performed []string
}

// Step is one stage of page processing.
type Step interface {
	// Do runs the step on page.
	Do(ctx context.Context, page *Page) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after a step fails.
// All step errors are then returned joined.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
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

// Execute runs every step on page. Cancellation is checked before each
// step.
func (p *Pipeline) Execute(ctx context.Context, page *Page) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := step.Do(ctx, page); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "url", page.URL, "error", err)
			err = fmt.Errorf("%s: %w", step.Name(), err)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}
		page.Performed = append(page.Performed, step.Name())
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
