package digest

import (
	"bytes"
	"fmt"
	"hash"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// stringLike is satisfied by String, LargeString and StringView arrays.
type stringLike interface {
	arrow.Array
	Value(i int) string
}

// binaryLike is satisfied by Binary, LargeBinary, BinaryView and
// FixedSizeBinary arrays.
type binaryLike interface {
	arrow.Array
	Value(i int) []byte
}

// ArrayHasher accumulates the canonical byte stream of one logical
// column. It is bound to a single logical type at construction; Update
// may be called any number of times with row-contiguous slices of the
// column, and the resulting digest depends only on the concatenated
// logical values, never on how they were split or laid out in buffers.
type ArrayHasher struct {
	dtype     arrow.DataType
	typeBytes []byte
	s         sink
	h         hash.Hash
	done      bool
	err       error
}

// NewArrayHasher creates a hasher bound to the given logical type. The
// inner hasher is produced by newHash and seeded with the type's
// canonical encoding, so arrays of distinct logical types digest
// differently even when their value bytes coincide.
func NewArrayHasher(dtype arrow.DataType, newHash func() hash.Hash) (*ArrayHasher, error) {
	var buf bytes.Buffer
	if err := HashDataType(dtype, &buf); err != nil {
		return nil, err
	}
	h := newHash()
	d := &ArrayHasher{
		dtype:     dtype,
		typeBytes: buf.Bytes(),
		h:         h,
		s:         sink{w: h},
	}
	d.s.write(d.typeBytes)
	return d, nil
}

// Update appends the canonical stream of arr. The array's logical type
// must match the bound type; representation variants of the same logical
// type (Large*, FixedSize*, views, dictionary encodings) are accepted.
func (d *ArrayHasher) Update(arr arrow.Array) error {
	if d.err != nil {
		return d.err
	}
	if d.done {
		d.err = ErrFinalized
		return d.err
	}
	var buf bytes.Buffer
	if err := HashDataType(arr.DataType(), &buf); err != nil {
		d.err = err
		return d.err
	}
	if !bytes.Equal(buf.Bytes(), d.typeBytes) {
		d.err = fmt.Errorf("%w: bound to %s, got %s", ErrTypeMismatch, d.dtype, arr.DataType())
		return d.err
	}
	if err := hashArray(arr, nil, &d.s); err != nil {
		d.err = err
		return d.err
	}
	d.err = d.s.err
	return d.err
}

// Finalize consumes the hasher and returns the digest. Any further
// Update or Finalize fails with ErrFinalized.
func (d *ArrayHasher) Finalize() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.done {
		d.err = ErrFinalized
		return nil, d.err
	}
	d.done = true
	return d.h.Sum(nil), nil
}

// DigestArray computes the digest of a single array in one call.
func DigestArray(arr arrow.Array, newHash func() hash.Hash) ([]byte, error) {
	d, err := NewArrayHasher(arr.DataType(), newHash)
	if err != nil {
		return nil, err
	}
	if err := d.Update(arr); err != nil {
		return nil, err
	}
	return d.Finalize()
}

// hashArray emits the canonical stream for all positions of arr. The
// optional mask carries ancestor struct validity; masked-out positions
// emit a null marker regardless of the array's own bitmap.
//
// Standalone struct arrays emit only their null markers: their children
// are digested as separate columns by the record hasher. Structs nested
// inside lists take the hashPos path instead, which emits child values
// inline.
func hashArray(arr arrow.Array, mask *validityMask, s *sink) error {
	dt := arr.DataType()
	n := arr.Len()

	if dt.ID() == arrow.NULL {
		for i := 0; i < n; i++ {
			s.null()
		}
		return nil
	}

	if dt.ID() == arrow.STRUCT {
		for i := 0; i < n; i++ {
			if !mask.valid(i) || arr.IsNull(i) {
				s.null()
			}
		}
		return nil
	}

	// Fixed-width values with no nulls hash as one contiguous buffer
	// slice.
	if width, ok := fixedWidthByteSize(dt); ok && mask == nil && arr.NullN() == 0 {
		if n == 0 {
			return nil
		}
		data := arr.Data()
		if len(data.Buffers()) < 2 || data.Buffers()[1] == nil {
			return fmt.Errorf("%w: fixed-width array without a value buffer", ErrInvalidLayout)
		}
		b := data.Buffers()[1].Bytes()
		lo := data.Offset() * width
		hi := (data.Offset() + n) * width
		if hi > len(b) {
			return fmt.Errorf("%w: value buffer holds %d bytes, need %d", ErrInvalidLayout, len(b), hi)
		}
		s.write(b[lo:hi])
		return nil
	}

	for i := 0; i < n; i++ {
		if !mask.valid(i) {
			s.null()
			continue
		}
		if err := hashPos(arr, i, s); err != nil {
			return err
		}
	}
	return nil
}

// hashPos emits one position of arr, null marker included. This is the
// per-value rule applied recursively for list items and nested struct
// children.
func hashPos(arr arrow.Array, i int, s *sink) error {
	dt := arr.DataType()
	if dt.ID() == arrow.NULL || arr.IsNull(i) {
		s.null()
		return nil
	}

	if width, ok := fixedWidthByteSize(dt); ok {
		data := arr.Data()
		if len(data.Buffers()) < 2 || data.Buffers()[1] == nil {
			return fmt.Errorf("%w: fixed-width array without a value buffer", ErrInvalidLayout)
		}
		b := data.Buffers()[1].Bytes()
		lo := (data.Offset() + i) * width
		if lo+width > len(b) {
			return fmt.Errorf("%w: value %d out of buffer bounds", ErrInvalidLayout, i)
		}
		s.write(b[lo : lo+width])
		return nil
	}

	switch dt.ID() {
	case arrow.BOOL:
		if arr.(*array.Boolean).Value(i) {
			s.u8(2)
		} else {
			s.u8(1)
		}
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		s.str(arr.(stringLike).Value(i))
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW, arrow.FIXED_SIZE_BINARY:
		v := arr.(binaryLike).Value(i)
		s.u64(uint64(len(v)))
		s.write(v)
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.LIST_VIEW, arrow.LARGE_LIST_VIEW:
		ll, ok := arr.(array.ListLike)
		if !ok {
			return fmt.Errorf("%w: %s array does not expose list offsets", ErrInvalidLayout, dt)
		}
		start, end := ll.ValueOffsets(i)
		if start > end {
			return fmt.Errorf("%w: list offsets out of order at %d", ErrInvalidLayout, i)
		}
		s.u64(uint64(end - start))
		values := ll.ListValues()
		for j := start; j < end; j++ {
			if err := hashPos(values, int(j), s); err != nil {
				return err
			}
		}
	case arrow.STRUCT:
		st := arr.(*array.Struct)
		for c := 0; c < st.NumField(); c++ {
			if err := hashPos(st.Field(c), i, s); err != nil {
				return err
			}
		}
	case arrow.DICTIONARY:
		da := arr.(*array.Dictionary)
		return hashPos(da.Dictionary(), da.GetValueIndex(i), s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	return nil
}
