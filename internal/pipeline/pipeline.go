package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/seoscan/internal/model"
)

// Step is one stage of a crawl run. Each step reads and extends the
// CrawlReport left by the steps before it.
type Step interface {
	// Do runs the step. Problems that should not stop the run are stored
	// on the report and nil is returned.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name identifies the step in logs and in PerformedSteps.
	Name() string
}

// Pipeline runs its steps in insertion order against a single report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after one fails.
// The failure is still recorded on the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in the given order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against report and stamps FinishedAt on return.
//
// The context is checked between steps. A cancelled run stops there and
// returns the context error. A failing step stops the run unless
// WithContinueOnError was given, in which case Execute returns nil and the
// error is left on the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	defer report.Finish()

	for _, step := range p.steps {
		name := step.Name()
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", name, "reason", err)
			markCancelled(report, err)
			return err
		}

		log := p.logger.With("step", name, "seed", report.Seed)
		log.Debug("executing step")

		err := step.Do(ctx, report)
		report.PerformedSteps = append(report.PerformedSteps, name)
		if err == nil {
			log.Debug("step completed")
			continue
		}

		log.Error("step failed", "error", err)
		report.SetError(err)
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// StepCount returns how many steps are registered.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames lists step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}

// markCancelled records ctx's error on report. Deadlines set TimedOut.
func markCancelled(report *model.CrawlReport, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		report.TimedOut = true
		return
	}
	if report.ErrorMessage == "" {
		report.SetError(err)
	}
}
