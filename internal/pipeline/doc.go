// Package pipeline orchestrates the per-target crawl stages: page load,
// CMP detection, payload retrieval, parsing, normalization, and
// persistence. Targets are processed strictly one at a time.
package pipeline
