// Package model defines the core data types shared across the crawler:
// the canonical cookie purpose taxonomy, CMP identities, crawl targets,
// raw and canonical consent records, and per-run report structures.
//
// Types in this package are plain data with no I/O. All pipeline stages
// communicate through these types, which keeps the per-CMP adapters,
// the normalizer, and the persistence layer decoupled from each other.
package model
