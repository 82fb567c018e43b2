package model

import "time"

// CrawlReport accumulates the result of crawling one target. Pipeline
// steps fill it in as they run; after the pipeline finishes it holds
// everything the run loop needs for persistence accounting and reporting.
type CrawlReport struct {
	// Target is the site this report belongs to.
	Target Target

	// DateCrawled is when processing of the target started.
	DateCrawled time.Time

	// CMP is the detected platform, CMPNone if detection found nothing.
	CMP CMP

	// Identifier is the extracted platform identifier, nil until the
	// detect stage succeeds.
	Identifier *Identifier

	// RawCookies are the CMP-native declarations parsed from the fetched
	// payload(s).
	RawCookies []RawCookie

	// Records are the normalized canonical records ready for the sink.
	Records []ConsentRecord

	// RecordsPersisted counts records the sink accepted.
	RecordsPersisted int

	// NoCookies is set when the platform responded correctly but
	// declared zero cookies. This is a valid empty result, not an error,
	// but worth surfacing in the run summary.
	NoCookies bool

	// PerformedSteps lists pipeline step names that ran, in order.
	PerformedSteps []string
}

// NewCrawlReport creates a CrawlReport for the given target.
func NewCrawlReport(target Target) *CrawlReport {
	return &CrawlReport{
		Target:      target,
		DateCrawled: time.Now(),
	}
}
