package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-event detail section.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-event detail section in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(summary *RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCategories(&sb, summary)
	w.writePlatforms(&sb, summary)
	w.writeErrors(&sb, summary)
	w.writeTargets(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run overview.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    CONSENT CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:            %s\n", summary.DateStarted.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:            %s\n", summary.Elapsed().Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Targets:            %d\n", summary.TotalTargets))
	sb.WriteString(fmt.Sprintf("Successful:         %d\n", summary.SuccessfulTargets))
	sb.WriteString(fmt.Sprintf("Records persisted:  %d\n", summary.RecordsPersisted))
	sb.WriteString("\n")
}

// writeCategories writes record counts by canonical category.
func (w *SimpleWriter) writeCategories(sb *strings.Builder, summary *RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RECORDS BY CATEGORY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.CategoryCounts) == 0 {
		sb.WriteString("  No records collected\n\n")
		return
	}

	// Taxonomy order, not map order.
	for _, cat := range []model.Category{
		model.CategoryNecessary,
		model.CategoryFunctional,
		model.CategoryAnalytical,
		model.CategoryAdvertising,
		model.CategoryUncategorized,
		model.CategoryUnknown,
	} {
		if n, ok := summary.CategoryCounts[cat.String()]; ok {
			sb.WriteString(fmt.Sprintf("  %-14s %d\n", cat.String()+":", n))
		}
	}
	sb.WriteString("\n")
}

// writePlatforms writes detection counts by platform.
func (w *SimpleWriter) writePlatforms(sb *strings.Builder, summary *RunSummary) {
	if len(summary.CMPCounts) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DETECTED PLATFORMS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	names := make([]string, 0, len(summary.CMPCounts))
	for name := range summary.CMPCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("  [+] %-12s %d target(s)\n", name, summary.CMPCounts[name]))
	}
	sb.WriteString("\n")
}

// writeErrors writes the failure breakdown.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, summary *RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if summary.TotalErrors() == 0 {
		sb.WriteString("  No failures recorded\n\n")
		return
	}

	for _, kc := range summary.ErrorCounts {
		sb.WriteString(fmt.Sprintf("  %-30s %d\n", kc.Kind+":", kc.Count))
	}
	sb.WriteString(fmt.Sprintf("\n  TOTAL: %d event(s) across %d target(s)\n\n",
		summary.TotalErrors(), len(summary.FailedURLs)))

	if w.verbose {
		for _, ev := range summary.Events {
			sb.WriteString(fmt.Sprintf("  * [%s/%s] %s\n", ev.Stage, ev.Kind.String(), ev.Target))
			if ev.Message != "" {
				sb.WriteString(fmt.Sprintf("    %s\n", ev.Message))
			}
		}
		sb.WriteString("\n")
	}
}

// writeTargets writes the per-target result lines.
func (w *SimpleWriter) writeTargets(sb *strings.Builder, summary *RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TARGETS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, t := range summary.Targets {
		note := ""
		if t.NoCookies {
			note = " (zero cookies declared)"
		}
		sb.WriteString(fmt.Sprintf("  %s: cmp=%s records=%d%s\n", t.URL, t.CMP, t.Records, note))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
