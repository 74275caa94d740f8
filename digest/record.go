package digest

import (
	"fmt"
	"hash"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// stepKind describes one level on the path from a top-level column down
// to a leaf.
type stepKind int

const (
	stepStruct stepKind = iota // descend into a struct child
	stepList                   // replay list structure around the items
)

type pathStep struct {
	kind  stepKind
	child int // struct child index, unused for stepList
}

// leafState is the digest accumulator of a single leaf column. Leaves
// under list-of-struct ancestors replay the enclosing list structure
// (null markers and item counts) around their own values, so nesting
// shape stays part of the hash.
type leafState struct {
	field  arrow.Field
	column int // top-level column index in the record
	path   []pathStep
	h      hash.Hash
	s      sink
}

func (l *leafState) update(col arrow.Array) error {
	arr := col
	var mask *validityMask
	path := l.path

	// Struct levels above the first list apply combined validity: a null
	// at any ancestor makes the leaf position null.
	for len(path) > 0 && path[0].kind == stepStruct {
		st, ok := arr.(*array.Struct)
		if !ok {
			return fmt.Errorf("%w: expected struct column for leaf %q", ErrTypeMismatch, l.field.Name)
		}
		mask = combineValidity(mask, st)
		arr = st.Field(path[0].child)
		path = path[1:]
	}

	if len(path) == 0 {
		if err := hashArray(arr, mask, &l.s); err != nil {
			return err
		}
		return l.s.err
	}

	// Remaining path starts at a list-of-struct ancestor: emit the list
	// rule here, then walk the inner path per item position.
	ll, ok := arr.(array.ListLike)
	if !ok {
		return fmt.Errorf("%w: expected list column for leaf %q", ErrTypeMismatch, l.field.Name)
	}
	for i := 0; i < ll.Len(); i++ {
		if !mask.valid(i) || ll.IsNull(i) {
			l.s.null()
			continue
		}
		start, end := ll.ValueOffsets(i)
		if start > end {
			return fmt.Errorf("%w: list offsets out of order at %d", ErrInvalidLayout, i)
		}
		l.s.u64(uint64(end - start))
		values := ll.ListValues()
		for j := start; j < end; j++ {
			if err := emitLeafPos(values, path[1:], int(j), &l.s); err != nil {
				return err
			}
		}
	}
	return l.s.err
}

// emitLeafPos walks the remaining path at one item position. Inner
// struct levels contribute their validity (a null struct makes the leaf
// value null); inner lists replay the list rule again.
func emitLeafPos(arr arrow.Array, path []pathStep, i int, s *sink) error {
	if len(path) == 0 {
		return hashPos(arr, i, s)
	}
	switch path[0].kind {
	case stepStruct:
		st, ok := arr.(*array.Struct)
		if !ok {
			return fmt.Errorf("%w: expected struct item array", ErrTypeMismatch)
		}
		if st.IsNull(i) {
			s.null()
			return nil
		}
		return emitLeafPos(st.Field(path[0].child), path[1:], i, s)
	default:
		ll, ok := arr.(array.ListLike)
		if !ok {
			return fmt.Errorf("%w: expected list item array", ErrTypeMismatch)
		}
		if ll.IsNull(i) {
			s.null()
			return nil
		}
		start, end := ll.ValueOffsets(i)
		if start > end {
			return fmt.Errorf("%w: list offsets out of order at %d", ErrInvalidLayout, i)
		}
		s.u64(uint64(end - start))
		for j := start; j < end; j++ {
			if err := emitLeafPos(ll.ListValues(), path[1:], int(j), s); err != nil {
				return err
			}
		}
		return nil
	}
}

// RecordHasher accumulates the digest of a record batch stream. The
// top-level hasher sees every schema field (name, nesting level, type)
// once at construction, then the per-leaf digests in traversal order at
// Finalize. Splitting the rows differently across Update calls does not
// change the result.
type RecordHasher struct {
	schema  *arrow.Schema
	newHash func() hash.Hash
	h0      hash.Hash
	leaves  []*leafState
	done    bool
	err     error
}

// NewRecordHasher creates a hasher bound to schema. It fails with
// ErrUnsupportedType if the schema contains a type outside the protocol
// (Union, Map).
func NewRecordHasher(schema *arrow.Schema, newHash func() hash.Hash) (*RecordHasher, error) {
	rh := &RecordHasher{
		schema:  schema,
		newHash: newHash,
		h0:      newHash(),
	}
	s0 := &sink{w: rh.h0}
	for col, f := range schema.Fields() {
		if err := rh.walk(f, col, nil, 0, s0); err != nil {
			return nil, err
		}
	}
	if s0.err != nil {
		return nil, s0.err
	}
	return rh, nil
}

// walk feeds one field header into the top-level hasher and either
// recurses into nested children or registers a leaf digester.
func (rh *RecordHasher) walk(f arrow.Field, col int, path []pathStep, level uint64, s0 *sink) error {
	s0.str(f.Name)
	s0.u64(level)
	if err := hashDataType(f.Type, s0); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}

	resolved := resolveDictionary(f.Type)
	if st, ok := resolved.(*arrow.StructType); ok {
		for idx, child := range st.Fields() {
			childPath := append(append([]pathStep{}, path...), pathStep{kind: stepStruct, child: idx})
			if err := rh.walk(child, col, childPath, level+1, s0); err != nil {
				return err
			}
		}
		return nil
	}
	if elem, ok := listElemType(resolved); ok {
		if st, ok := resolveDictionary(elem).(*arrow.StructType); ok {
			for idx, child := range st.Fields() {
				childPath := append(append([]pathStep{}, path...),
					pathStep{kind: stepList}, pathStep{kind: stepStruct, child: idx})
				if err := rh.walk(child, col, childPath, level+1, s0); err != nil {
					return err
				}
			}
			return nil
		}
	}

	lf := &leafState{
		field:  f,
		column: col,
		path:   append([]pathStep{}, path...),
		h:      rh.newHash(),
	}
	lf.s = sink{w: lf.h}
	if err := hashDataType(f.Type, &lf.s); err != nil {
		return err
	}
	rh.leaves = append(rh.leaves, lf)
	return nil
}

// Update routes one record batch into the per-leaf digesters. The batch
// must carry the bound schema; a mismatch poisons the hasher.
func (rh *RecordHasher) Update(rec arrow.Record) error {
	if rh.err != nil {
		return rh.err
	}
	if rh.done {
		rh.err = ErrFinalized
		return rh.err
	}
	if err := rh.ValidateRecord(rec); err != nil {
		rh.err = err
		return rh.err
	}
	for i := range rh.leaves {
		if err := rh.UpdateLeaf(i, rec); err != nil {
			rh.err = err
			return err
		}
	}
	return nil
}

// ValidateRecord checks a batch's column count, names and types against
// the bound schema without digesting anything.
func (rh *RecordHasher) ValidateRecord(rec arrow.Record) error {
	got := rec.Schema()
	if got.NumFields() != rh.schema.NumFields() {
		return fmt.Errorf("%w: batch has %d columns, schema has %d",
			ErrTypeMismatch, got.NumFields(), rh.schema.NumFields())
	}
	for i := 0; i < got.NumFields(); i++ {
		gf, sf := got.Field(i), rh.schema.Field(i)
		if gf.Name != sf.Name {
			return fmt.Errorf("%w: column %d named %q, schema says %q",
				ErrTypeMismatch, i, gf.Name, sf.Name)
		}
		if !arrow.TypeEqual(gf.Type, sf.Type) {
			return fmt.Errorf("%w: column %q is %s, schema says %s",
				ErrTypeMismatch, gf.Name, gf.Type, sf.Type)
		}
	}
	return nil
}

// NumLeaves returns the number of leaf columns. Together with UpdateLeaf
// it lets callers fan leaf updates of one batch out across goroutines;
// each leaf owns independent state, but a single leaf must only be
// updated from one goroutine at a time and batch order must be kept.
func (rh *RecordHasher) NumLeaves() int {
	return len(rh.leaves)
}

// UpdateLeaf routes one batch into a single leaf digester. Callers using
// this directly are responsible for calling it for every leaf exactly
// once per batch and for surfacing any error before Finalize;
// ValidateRecord should be run on the batch first. UpdateLeaf itself
// never mutates shared hasher state, so distinct leaves may run on
// distinct goroutines.
func (rh *RecordHasher) UpdateLeaf(i int, rec arrow.Record) error {
	if rh.err != nil {
		return rh.err
	}
	if rh.done {
		return ErrFinalized
	}
	lf := rh.leaves[i]
	return lf.update(rec.Column(lf.column))
}

// Finalize folds the per-leaf digests into the top-level hasher in
// traversal order and returns the batch digest. Further use fails with
// ErrFinalized.
func (rh *RecordHasher) Finalize() ([]byte, error) {
	if rh.err != nil {
		return nil, rh.err
	}
	if rh.done {
		rh.err = ErrFinalized
		return nil, rh.err
	}
	rh.done = true
	for _, lf := range rh.leaves {
		if _, err := rh.h0.Write(lf.h.Sum(nil)); err != nil {
			rh.err = err
			return nil, err
		}
	}
	return rh.h0.Sum(nil), nil
}

// DigestRecord computes the digest of a single record batch in one call.
func DigestRecord(rec arrow.Record, newHash func() hash.Hash) ([]byte, error) {
	rh, err := NewRecordHasher(rec.Schema(), newHash)
	if err != nil {
		return nil, err
	}
	if err := rh.Update(rec); err != nil {
		return nil, err
	}
	return rh.Finalize()
}
