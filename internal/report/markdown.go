package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCategories(md, summary)
	w.writePlatforms(md, summary)
	w.writeErrors(md, summary)
	w.writeTargets(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the run overview table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *RunSummary) {
	md.H1("Consent Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.DateStarted.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", summary.Elapsed().Round(time.Second).String()},
			{"Targets", strconv.Itoa(summary.TotalTargets)},
			{"Successful", strconv.Itoa(summary.SuccessfulTargets)},
			{"Records persisted", strconv.Itoa(summary.RecordsPersisted)},
		},
	})
	md.PlainText("")

	switch {
	case summary.TotalTargets == 0:
		md.Warning("The target list was empty.")
	case summary.SuccessfulTargets == summary.TotalTargets:
		md.Tip("All targets completed without failures.")
	case summary.SuccessfulTargets == 0:
		md.Caution("Every target failed. Check the failure section below.")
	default:
		md.Notef("%d of %d targets failed; the failed-URL list can be fed back in as a target file.",
			summary.TotalTargets-summary.SuccessfulTargets, summary.TotalTargets)
	}
	md.PlainText("")
}

// writeCategories writes the category distribution with a pie chart.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, summary *RunSummary) {
	md.H2("Records by Category")
	md.PlainText("")

	if len(summary.CategoryCounts) == 0 {
		md.PlainText("No records collected.")
		md.PlainText("")
		return
	}

	order := []model.Category{
		model.CategoryNecessary,
		model.CategoryFunctional,
		model.CategoryAnalytical,
		model.CategoryAdvertising,
		model.CategoryUncategorized,
		model.CategoryUnknown,
	}

	var rows [][]string
	for _, cat := range order {
		if n, ok := summary.CategoryCounts[cat.String()]; ok {
			rows = append(rows, []string{cat.String(), strconv.Itoa(int(cat)), strconv.Itoa(n)})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "ID", "Records"},
		Rows:   rows,
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Record Category Distribution"),
		piechart.WithShowData(true),
	)
	for _, cat := range order {
		if n, ok := summary.CategoryCounts[cat.String()]; ok && n > 0 {
			chart.LabelAndIntValue(cat.String(), uint64(n))
		}
	}
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePlatforms writes the per-platform detection counts.
func (w *MarkdownWriter) writePlatforms(md *markdown.Markdown, summary *RunSummary) {
	md.H2("Detected Platforms")
	md.PlainText("")

	if len(summary.CMPCounts) == 0 {
		md.PlainText("No consent platform detected on any target.")
		md.PlainText("")
		return
	}

	names := make([]string, 0, len(summary.CMPCounts))
	for name := range summary.CMPCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(summary.CMPCounts[name])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Platform", "Targets"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors writes the failure breakdown and event details.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, summary *RunSummary) {
	md.H2("Failures")
	md.PlainText("")

	if summary.TotalErrors() == 0 {
		md.PlainText("No failures recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.ErrorCounts))
	for _, kc := range summary.ErrorCounts {
		rows = append(rows, []string{kc.Kind, strconv.Itoa(kc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	eventRows := make([][]string, 0, len(summary.Events))
	for _, ev := range summary.Events {
		eventRows = append(eventRows, []string{
			"`" + ev.Target + "`",
			string(ev.Stage),
			ev.Kind.String(),
			truncateString(ev.Message, 80),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Target", "Stage", "Kind", "Detail"},
		Rows:   eventRows,
	})
	md.PlainText("")
}

// writeTargets writes the per-target result table.
func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, summary *RunSummary) {
	md.H2("Targets")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Targets))
	for _, t := range summary.Targets {
		note := ""
		if t.NoCookies {
			note = "zero cookies declared"
		}
		rows = append(rows, []string{
			"`" + t.URL + "`",
			t.CMP,
			strconv.Itoa(t.Records),
			note,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Target", "Platform", "Records", "Note"},
		Rows:   rows,
	})
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
