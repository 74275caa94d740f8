package digest

import "errors"

// Common errors for digest operations. A digester that returns one of
// these from Update or Finalize is poisoned: every later call fails with
// the original error.
var (
	ErrTypeMismatch    = errors.New("array type does not match the digester's bound type")
	ErrUnsupportedType = errors.New("logical type is not covered by the digest protocol")
	ErrFinalized       = errors.New("digester has already been finalized")
	ErrInvalidLayout   = errors.New("array layout violates arrow invariants")
)
