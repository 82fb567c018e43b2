package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// Default configuration values.
const (
	// DefaultNavigationTimeout bounds how long a single page load may
	// take before the browser gives up. Consent banners inject their
	// markup late, so this is generous.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultFetchTimeout bounds a single request to a CMP delivery
	// network. CDN responses are small; anything slower than this is a
	// stalled connection.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchRetries is the retry count for failed transport
	// attempts against CMP delivery networks. Responses carrying an HTTP
	// error status are never retried.
	DefaultFetchRetries = 2

	// DefaultOutputPrefix names the per-run output directory. A
	// timestamp suffix is appended so runs never overwrite each other.
	DefaultOutputPrefix = "scrape_out"

	// AppName is the application name used for XDG directory paths.
	AppName = "consentcrawl"
)

// Config holds all configuration options for a crawl run.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., BrowserConfig, FetchConfig) for simplicity. The number of
// options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// Targets is the ordered list of sites to crawl. Populated from
	// --url flags and target list files; duplicates removed, input order
	// preserved.
	Targets []model.Target

	// CMP restricts the run to one platform. Empty means detect any of
	// the supported platforms.
	CMP model.CMP

	// AssumeHTTP prefixes bare domains with "http://" instead of
	// rejecting them.
	AssumeHTTP bool

	// OutputDir is the directory receiving the database and report
	// files. When empty, a timestamped directory is created under the
	// current working directory.
	OutputDir string

	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration

	// FetchTimeout bounds a single payload request.
	FetchTimeout time.Duration

	// FetchRetries is the transport retry count for payload requests.
	FetchRetries int

	// Headless controls whether the browser runs without a visible
	// window. Disabled only for local debugging.
	Headless bool

	// BrowserBin optionally points at a browser binary instead of
	// letting the launcher resolve one.
	BrowserBin string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the plain text
	// summary. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the plain
	// text summary. Mutually exclusive with JSONReport.
	MarkdownReport bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		NavigationTimeout: DefaultNavigationTimeout,
		FetchTimeout:      DefaultFetchTimeout,
		FetchRetries:      DefaultFetchRetries,
		Headless:          true,
	}
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	if c.NavigationTimeout <= 0 || c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.FetchRetries < 0 {
		return ErrInvalidRetries
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ResolveOutputDir returns the output directory, creating it if needed.
// When none is configured, a timestamped directory is created so
// consecutive runs never clobber each other's results.
func (c *Config) ResolveOutputDir(now time.Time) (string, error) {
	dir := c.OutputDir
	if dir == "" {
		dir = DefaultOutputPrefix + "_" + now.Format("20060102_150405")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}

// XDGDataDir returns the XDG data directory for the crawler.
// On Linux: ~/.local/share/consentcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the crawler.
// On Linux: ~/.config/consentcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
