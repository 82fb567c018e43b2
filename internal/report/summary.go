package report

import (
	"time"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// TargetResult is the per-target line of the run summary.
type TargetResult struct {
	// URL is the target's resolved URL.
	URL string `json:"url"`

	// CMP is the detected platform name, "none" when detection found
	// nothing.
	CMP string `json:"cmp"`

	// Records is the number of canonical records persisted.
	Records int `json:"records"`

	// NoCookies marks a platform response declaring zero cookies.
	NoCookies bool `json:"noCookies,omitempty"`
}

// KindCount pairs an error kind name with its event count.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// RunSummary aggregates one crawl run for reporting.
type RunSummary struct {
	// DateStarted and DateFinished bound the run.
	DateStarted  time.Time `json:"dateStarted"`
	DateFinished time.Time `json:"dateFinished"`

	// TotalTargets is the size of the target list.
	TotalTargets int `json:"totalTargets"`

	// SuccessfulTargets completed the full pipeline.
	SuccessfulTargets int `json:"successfulTargets"`

	// RecordsPersisted counts rows accepted by the sink across all
	// targets.
	RecordsPersisted int `json:"recordsPersisted"`

	// CategoryCounts maps canonical category names to normalized record
	// counts.
	CategoryCounts map[string]int `json:"categoryCounts"`

	// CMPCounts maps platform names to the number of targets they were
	// detected on.
	CMPCounts map[string]int `json:"cmpCounts"`

	// ErrorCounts groups classified events by kind, in report order,
	// zero-count kinds omitted.
	ErrorCounts []KindCount `json:"errorCounts"`

	// FailedURLs lists targets that produced at least one event, in
	// first-failure order. Reusable as a target file for a retry run.
	FailedURLs []string `json:"failedUrls"`

	// Targets holds the per-target results in crawl order.
	Targets []TargetResult `json:"targets"`

	// Events holds every classified failure, for the detailed sections.
	Events []classify.Event `json:"events"`
}

// NewRunSummary builds the summary from the per-target reports and the
// run's error collector.
func NewRunSummary(reports []*model.CrawlReport, collector *classify.Collector, started, finished time.Time) *RunSummary {
	s := &RunSummary{
		DateStarted:    started,
		DateFinished:   finished,
		TotalTargets:   len(reports),
		CategoryCounts: make(map[string]int),
		CMPCounts:      make(map[string]int),
	}

	failed := make(map[string]struct{})
	for _, ev := range collector.Events() {
		failed[ev.Target] = struct{}{}
	}

	for _, r := range reports {
		result := TargetResult{
			URL:       r.Target.URL,
			CMP:       r.CMP.String(),
			Records:   r.RecordsPersisted,
			NoCookies: r.NoCookies,
		}
		s.Targets = append(s.Targets, result)

		if r.CMP != model.CMPNone {
			s.CMPCounts[r.CMP.String()]++
		}
		if _, ok := failed[r.Target.URL]; !ok {
			s.SuccessfulTargets++
		}

		s.RecordsPersisted += r.RecordsPersisted
		for _, rec := range r.Records {
			s.CategoryCounts[rec.Category.String()]++
		}
	}

	counts := collector.CountsByKind()
	for _, kind := range classify.Kinds() {
		if n := counts[kind]; n > 0 {
			s.ErrorCounts = append(s.ErrorCounts, KindCount{Kind: kind.String(), Count: n})
		}
	}
	s.FailedURLs = collector.FailedTargets()
	s.Events = collector.Events()

	return s
}

// TotalErrors returns the number of classified events in the run.
func (s *RunSummary) TotalErrors() int {
	return len(s.Events)
}

// Elapsed returns the wall time of the run.
func (s *RunSummary) Elapsed() time.Duration {
	return s.DateFinished.Sub(s.DateStarted)
}
