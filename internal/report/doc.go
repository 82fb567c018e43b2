// Package report renders the outcome of a crawl run: per-target results,
// record counts by category and platform, and classified failures.
//
// Three formats are supported: plain text for terminals, JSON for tool
// integration, and Markdown for documentation. The failed-URL list is
// written separately so it can be fed back in as a target file for a
// retry run.
package report
