package digest

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
)

// validityMask is the conjunction of ancestor struct validity bitmaps,
// re-based to logical index zero. A nil *validityMask means every
// ancestor is valid. Positions masked out become nulls at the leaf.
type validityMask struct {
	bits []byte
	n    int
}

func (m *validityMask) valid(i int) bool {
	return m == nil || bitutil.BitIsSet(m.bits, i)
}

// combineValidity folds one more ancestor level into the mask. Levels
// without any nulls are elided so the all-valid case stays allocation
// free.
func combineValidity(base *validityMask, arr arrow.Array) *validityMask {
	if arr.NullN() == 0 {
		return base
	}
	n := arr.Len()
	out := &validityMask{
		bits: make([]byte, bitutil.BytesForBits(int64(n))),
		n:    n,
	}
	for i := 0; i < n; i++ {
		if base.valid(i) && arr.IsValid(i) {
			bitutil.SetBit(out.bits, i)
		}
	}
	return out
}
