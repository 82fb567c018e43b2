package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// DefaultFileName is the database file created inside the output
// directory.
const DefaultFileName = "cookiedat.sqlite"

// ConsentDB provides SQLite-based storage for consent records and crawl
// error events.
//
// Design decision: one database file per crawl run rather than a shared
// global store. A run's output directory is self-contained, which keeps
// result sets comparable and makes archiving a run a plain directory
// copy.
type ConsentDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ConsentDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended for most use
	// cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ConsentDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ConsentDB, error) {
	dbPath := filepath.Join(dbDir, DefaultFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string format. mode=rw prevents
	// creating new files when the database is expected to exist.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &ConsentDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *ConsentDB) Close() error {
	return cdb.db.Close()
}

// Path returns the location of the database file.
func (cdb *ConsentDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *ConsentDB) createTables() error {
	schema := `
	-- Consent records store one row per disclosed cookie purpose.
	-- Deliberately no unique constraint: inserts are append-only and
	-- repeated observations produce repeated rows.
	CREATE TABLE IF NOT EXISTS consent_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_url TEXT NOT NULL,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '/',
		cat_id INTEGER NOT NULL,
		cat_name TEXT NOT NULL,
		purpose TEXT,
		type TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_consent_site ON consent_data(site_url);
	CREATE INDEX IF NOT EXISTS idx_consent_cat ON consent_data(cat_id);

	-- Crawl errors record per-target failures for post-hoc inspection.
	CREATE TABLE IF NOT EXISTS crawl_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_url TEXT NOT NULL,
		stage TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_errors_kind ON crawl_errors(kind);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertRecord appends one consent record and returns its row id.
// There is no conflict handling: the same logical record inserted twice
// yields two rows.
func (cdb *ConsentDB) InsertRecord(ctx context.Context, record *model.ConsentRecord) (int64, error) {
	query := `
	INSERT INTO consent_data (site_url, name, domain, path, cat_id, cat_name, purpose, type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		record.SiteURL,
		record.Name,
		record.Domain,
		record.Path,
		int(record.Category),
		record.CategoryName,
		nullable(record.Purpose),
		nullable(record.Type),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert consent record: %w", err)
	}

	return result.LastInsertId()
}

// InsertErrorEvent appends one classified crawl error.
func (cdb *ConsentDB) InsertErrorEvent(ctx context.Context, event classify.Event) error {
	query := `
	INSERT INTO crawl_errors (site_url, stage, kind, message)
	VALUES (?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		event.Target,
		string(event.Stage),
		event.Kind.String(),
		event.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert error event: %w", err)
	}

	return nil
}

// CountRecords returns the total number of consent records.
func (cdb *ConsentDB) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM consent_data").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count consent records: %w", err)
	}
	return count, nil
}

// CategoryCount pairs a canonical category with its record count.
type CategoryCount struct {
	Category model.Category
	Count    int
}

// CategorySummary returns record counts grouped by canonical category,
// ordered by category value.
func (cdb *ConsentDB) CategorySummary(ctx context.Context) ([]CategoryCount, error) {
	query := `
	SELECT cat_id, COUNT(*) FROM consent_data
	GROUP BY cat_id
	ORDER BY cat_id
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	defer rows.Close()

	var results []CategoryCount
	for rows.Next() {
		var cc CategoryCount
		var catID int
		if err := rows.Scan(&catID, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category summary: %w", err)
		}
		cc.Category = model.Category(catID)
		results = append(results, cc)
	}

	return results, rows.Err()
}

// SiteCount pairs a crawled site with its record count.
type SiteCount struct {
	SiteURL string
	Count   int
}

// SiteSummary returns record counts grouped by site, most records first.
func (cdb *ConsentDB) SiteSummary(ctx context.Context) ([]SiteCount, error) {
	query := `
	SELECT site_url, COUNT(*) FROM consent_data
	GROUP BY site_url
	ORDER BY COUNT(*) DESC, site_url
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query site summary: %w", err)
	}
	defer rows.Close()

	var results []SiteCount
	for rows.Next() {
		var sc SiteCount
		if err := rows.Scan(&sc.SiteURL, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan site summary: %w", err)
		}
		results = append(results, sc)
	}

	return results, rows.Err()
}

// RecordsBySite retrieves all consent records for one site, in insertion
// order.
func (cdb *ConsentDB) RecordsBySite(ctx context.Context, siteURL string) ([]model.ConsentRecord, error) {
	query := `
	SELECT site_url, name, domain, path, cat_id, cat_name, purpose, type
	FROM consent_data
	WHERE site_url = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, siteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query consent records: %w", err)
	}
	defer rows.Close()

	var results []model.ConsentRecord
	for rows.Next() {
		var rec model.ConsentRecord
		var catID int
		var purpose, ctype sql.NullString

		err := rows.Scan(
			&rec.SiteURL,
			&rec.Name,
			&rec.Domain,
			&rec.Path,
			&catID,
			&rec.CategoryName,
			&purpose,
			&ctype,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consent record: %w", err)
		}

		rec.Category = model.Category(catID)
		rec.Purpose = purpose.String
		rec.Type = ctype.String
		results = append(results, rec)
	}

	return results, rows.Err()
}

// ErrorCount pairs an error kind with its event count.
type ErrorCount struct {
	Kind  string
	Count int
}

// ErrorSummary returns crawl error counts grouped by kind.
func (cdb *ConsentDB) ErrorSummary(ctx context.Context) ([]ErrorCount, error) {
	query := `
	SELECT kind, COUNT(*) FROM crawl_errors
	GROUP BY kind
	ORDER BY COUNT(*) DESC, kind
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query error summary: %w", err)
	}
	defer rows.Close()

	var results []ErrorCount
	for rows.Next() {
		var ec ErrorCount
		if err := rows.Scan(&ec.Kind, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan error summary: %w", err)
		}
		results = append(results, ec)
	}

	return results, rows.Err()
}

// nullable converts an empty string to NULL for optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
