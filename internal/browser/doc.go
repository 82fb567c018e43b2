// Package browser provides the rendered page capability the crawler
// consumes: load a URL in a headless Chromium instance and expose the
// rendered DOM plus read-only script evaluation.
//
// A single browser process is launched for the whole run; each target gets
// its own page, which must be closed before the next target starts. The
// CMP detection logic does not touch go-rod directly, only the Page type,
// so detection stays testable against static HTML fixtures.
package browser
