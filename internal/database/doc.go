// Package database provides SQLite-based persistence for canonical
// consent records and crawl error events.
//
// The store is append-only. Re-crawling a site inserts new rows rather
// than replacing old ones, so the row count of consent_data reflects
// the number of disclosures observed across all runs.
package database
