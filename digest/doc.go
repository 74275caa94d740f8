// Package digest computes stable logical hashes of Apache Arrow data.
// This package implements:
// - Canonical byte encoding of Arrow logical types and schemas
// - Per-array canonical byte emission, invariant under buffer layout
// - Record batch digesting that is invariant under batch splits
package digest
