// Package log provides logging helpers built on top of the standard
// slog package.
//
// The crawler routinely handles multi-megabyte payloads: rendered page
// HTML, consent scripts, CDN JSON documents. When such values end up in
// log attributes (usually in error detail), writing them verbatim makes
// the log file useless. The TruncatingHandler caps attribute values at a
// fixed length so error context stays readable.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//	logger.Info("payload retrieved",
//	    "body", hugeString, // truncated in output
//	)
package log
