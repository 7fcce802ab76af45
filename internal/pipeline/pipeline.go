package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/model"
)

// Job carries one target through the pipelines.
type Job struct {
	// Target is the file path or URL to scan.
	Target string

	// Page is the loaded source, set by LoadStep.
	Page *model.Page

	// Doc is the parsed document, set by LoadStep.
	Doc *dom.Document

	// Added are the contacts persisted for this target, set by ScanStep.
	Added []model.Contact

	// Err is the first step error.
	Err error

	// Steps lists the steps that ran, in order.
	Steps []string
}

// NewJob creates a Job for target.
func NewJob(target string) *Job {
	return &Job{Target: target}
}

// Failed reports whether a step failed.
func (j *Job) Failed() bool {
	return j.Err != nil
}

// Step is one stage of a pipeline.
type Step interface {
	// Do runs the step. Returning an error stops the pipeline unless it
	// continues on error.
	Do(ctx context.Context, job *Job) error

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

// WithContinueOnError keeps running later steps after one fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
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

// Execute runs every step on job. Cancellation is checked before each
// step. The first error is recorded on the job and returned.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "target", job.Target, "reason", err)
			if job.Err == nil {
				job.Err = err
			}
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "target", job.Target)
		if err := step.Do(ctx, job); err != nil {
			p.logger.Warn("step failed", "step", step.Name(), "target", job.Target, "error", err)
			if job.Err == nil {
				job.Err = err
			}
			if !p.continueOnError {
				return err
			}
		}
		job.Steps = append(job.Steps, step.Name())
	}
	return nil
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
