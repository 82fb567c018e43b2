package pipeline

import (
	"context"
	"log/slog"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/cmp"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// Page is the rendered-page capability the pipeline carries between
// steps: everything the adapters and fetcher consume, plus release.
// *browser.Page satisfies it.
type Page interface {
	cmp.RenderedPage
	Close() error
}

// State carries the intermediate results of one target through the
// pipeline. Each target gets a fresh State; nothing leaks between
// targets.
type State struct {
	// Report accumulates the outcome of this target.
	Report *model.CrawlReport

	// Page is the rendered page, set by the load step and released by
	// the runner when the target finishes.
	Page Page

	// Adapter is the matched CMP adapter, set by the detect step.
	Adapter cmp.Adapter

	// Payloads are the raw consent payloads, set by the fetch step.
	Payloads []cmp.Payload

	// Records are the canonical records, set by the normalize step.
	Records []model.ConsentRecord
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the
// accumulated state from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides Name() and Stage() for logging and error classification
// 3. It's more extensible for future features (e.g., per-step timeouts)
type Step interface {
	// Do executes the pipeline step. An error is terminal for the
	// current target; the runner classifies it and moves on.
	Do(ctx context.Context, state *State) error

	// Name returns the step's name for logging purposes.
	Name() string

	// Stage returns the classification stage used when the step fails.
	Stage() classify.Stage
}

// Pipeline holds the ordered steps of one target's crawl.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddSteps after creation.
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

// AddSteps appends steps to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence for one target. The first
// failing step ends the target; its error is returned already classified
// so the runner can record it without guessing the stage.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps should handle their own timeouts. This allows
// graceful cleanup between steps while still respecting cancellation.
func (p *Pipeline) Execute(ctx context.Context, state *State) *classify.Event {
	target := state.Report.Target.URL

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"target", target,
				"reason", ctx.Err(),
			)
			event := classify.Classify(step.Stage(), target, ctx.Err())
			return &event
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"target", target,
		)

		if err := step.Do(ctx, state); err != nil {
			event := classify.Classify(step.Stage(), target, err)
			// An undetected CMP is an expected outcome, not a defect.
			if event.Kind == classify.KindCMPNotDetected {
				p.logger.Info("no consent platform on target", "target", target)
			} else {
				p.logger.Error("step failed",
					"step", step.Name(),
					"target", target,
					"kind", event.Kind.String(),
					"error", err,
				)
			}
			return &event
		}

		state.Report.PerformedSteps = append(state.Report.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
