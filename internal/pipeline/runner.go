package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// ErrorSink receives classified error events for durable storage. It is
// optional; the in-memory collector always records.
type ErrorSink interface {
	InsertErrorEvent(ctx context.Context, event classify.Event) error
}

// Runner processes a target list through the pipeline, strictly one
// target at a time.
//
// Design decision: Targets are processed sequentially rather than with a
// worker pool. The browser session is a single shared resource, CMP
// delivery networks throttle bursts from one address, and sequential
// output keeps error events attributable to their target without
// interleaving. Throughput is bounded by page rendering either way.
type Runner struct {
	// pipeline executes the per-target stages.
	pipeline *Pipeline

	// collector accumulates classified events for the run summary.
	collector *classify.Collector

	// errorSink optionally persists events alongside the records.
	errorSink ErrorSink

	// logger is used for run-level logging.
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the run loop.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithErrorSink persists classified events in addition to collecting
// them in memory.
func WithErrorSink(sink ErrorSink) RunnerOption {
	return func(r *Runner) {
		r.errorSink = sink
	}
}

// NewRunner creates a Runner over the given pipeline and collector.
func NewRunner(pipeline *Pipeline, collector *classify.Collector, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipeline:  pipeline,
		collector: collector,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run processes every target and returns all reports, including those of
// failed targets. A target's failure never aborts the run; cancellation
// of the context does, returning the reports completed so far.
func (r *Runner) Run(ctx context.Context, targets []model.Target) ([]*model.CrawlReport, error) {
	r.logger.Info("starting crawl",
		"total_targets", len(targets),
		"steps", r.pipeline.StepNames(),
	)
	startTime := time.Now()

	reports := make([]*model.CrawlReport, 0, len(targets))
	for i, target := range targets {
		select {
		case <-ctx.Done():
			r.logger.Warn("crawl cancelled", "completed", i, "total", len(targets))
			return reports, ctx.Err()
		default:
		}

		r.logger.Info("processing target",
			"target", target.URL,
			"index", i+1,
			"total", len(targets),
		)

		reports = append(reports, r.runOne(ctx, target))
	}

	r.logger.Info("crawl complete",
		"total_targets", len(targets),
		"failed_targets", len(r.collector.FailedTargets()),
		"elapsed", time.Since(startTime),
	)
	return reports, nil
}

// runOne executes the pipeline for a single target with a fresh state.
// The rendered page is released before the next target starts, on every
// exit path.
func (r *Runner) runOne(ctx context.Context, target model.Target) *model.CrawlReport {
	state := &State{Report: model.NewCrawlReport(target)}

	defer func() {
		if state.Page != nil {
			if err := state.Page.Close(); err != nil {
				r.logger.Debug("failed to close page", "target", target.URL, "error", err)
			}
			state.Page = nil
		}
	}()

	if event := r.pipeline.Execute(ctx, state); event != nil {
		r.record(ctx, *event)
		return state.Report
	}

	r.logger.Info("target done",
		"target", target.URL,
		"cmp", state.Report.CMP.String(),
		"records", state.Report.RecordsPersisted,
	)
	return state.Report
}

// record routes one event to the collector and, when configured, the
// durable sink. Sink failures are logged and swallowed; error reporting
// must never raise further errors.
func (r *Runner) record(ctx context.Context, event classify.Event) {
	r.collector.Record(event)
	if r.errorSink != nil {
		if err := r.errorSink.InsertErrorEvent(ctx, event); err != nil {
			r.logger.Error("failed to persist error event",
				"target", event.Target, "error", err)
		}
	}
}
