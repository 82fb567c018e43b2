package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTargets is returned when no target site is specified.
	// This occurs when neither --url nor a target list file provides
	// a usable URL.
	ErrNoTargets = errors.New("no targets specified: provide --url or a target list file")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	// A zero or negative timeout would cause immediate failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the fetch retry count is
	// negative. Use 0 to disable retries.
	ErrInvalidRetries = errors.New("invalid retry count: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at
	// a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownCMP is returned when the --cmp flag names a platform the
	// crawler does not support.
	ErrUnknownCMP = errors.New("unknown consent platform: supported values are cookiebot, onetrust, termly")
)
