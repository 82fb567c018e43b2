// Package jsliteral parses a bounded subset of JavaScript literal syntax
// into Go values: objects, arrays, strings (single or double quoted),
// numbers, booleans, null and undefined.
//
// CMP consent scripts embed their declarations as plain literals (for
// example Cookiebot's cookieTable arrays and OneTrust's Groups object),
// but they are not valid JSON: keys are unquoted, strings use single
// quotes, trailing commas appear. This package covers exactly that gap.
//
// It is deliberately not a JavaScript engine: no expressions, no function
// syntax, no identifier resolution beyond the three keyword constants, and
// hard recursion and input size limits. Anything outside the subset is a
// parse error.
package jsliteral
