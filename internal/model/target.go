package model

import (
	"errors"
	"strings"
)

// ErrMissingScheme is returned when a target URL has no http/https scheme
// and assume-HTTP normalization is disabled.
var ErrMissingScheme = errors.New("target URL has no http or https scheme")

// Target is one site scheduled for crawling. It is immutable once created:
// the original input string is preserved for reporting, and URL is the
// normalized form actually visited.
type Target struct {
	// Input is the string exactly as it appeared in the target list.
	Input string

	// URL is the normalized URL with a scheme attached.
	URL string
}

// NewTarget normalizes a raw target entry. When assumeHTTP is true, bare
// domains get an "http://" prefix, matching sites that redirect to HTTPS
// themselves. Without the flag, schemeless entries are rejected rather
// than guessed at.
func NewTarget(raw string, assumeHTTP bool) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Target{Input: raw, URL: trimmed}, nil
	}
	if assumeHTTP {
		return Target{Input: raw, URL: "http://" + trimmed}, nil
	}
	return Target{}, ErrMissingScheme
}
