// Package engine runs record digesting in parallel.
// This package implements:
// - A bounded goroutine worker pool with atomic statistics
// - A record hasher that fans per-column work out across the pool while
//   keeping the digest byte-identical to the sequential one
package engine
