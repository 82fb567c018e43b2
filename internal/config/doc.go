// Package config provides configuration structures and utilities for the
// consent crawler. It defines run options, target list loading, and
// output directory handling.
package config
