package digest

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablehash/TableHash-Engine/hasher"
)

// FuzzBatchSplitInvariance checks that any split point yields the same
// digest as the one-shot computation.
// Run with: go test -fuzz=FuzzBatchSplitInvariance -fuzztime=30s ./digest/
func FuzzBatchSplitInvariance(f *testing.F) {
	f.Add(int64(1), int64(2), "a", "bb", uint8(1))
	f.Add(int64(0), int64(0), "", "", uint8(0))
	f.Add(int64(-7), int64(42), "foo", "", uint8(3))

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	f.Fuzz(func(t *testing.T, n1, n2 int64, s1, s2 string, cut uint8) {
		rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer rb.Release()
		rb.Field(0).(*array.Int64Builder).AppendValues(
			[]int64{n1, n2, n1 ^ n2, 0}, []bool{true, true, false, true})
		rb.Field(1).(*array.StringBuilder).AppendValues(
			[]string{s1, s2, "", s1 + s2}, []bool{true, true, true, false})
		rec := rb.NewRecord()
		defer rec.Release()

		whole, err := DigestRecord(rec, hasher.SHA3_256)
		if err != nil {
			t.Fatal(err)
		}

		at := int64(cut) % (rec.NumRows() + 1)
		head := rec.NewSlice(0, at)
		defer head.Release()
		tail := rec.NewSlice(at, rec.NumRows())
		defer tail.Release()

		rh, err := NewRecordHasher(schema, hasher.SHA3_256)
		if err != nil {
			t.Fatal(err)
		}
		if err := rh.Update(head); err != nil {
			t.Fatal(err)
		}
		if err := rh.Update(tail); err != nil {
			t.Fatal(err)
		}
		split, err := rh.Finalize()
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(whole, split) {
			t.Errorf("split at %d changed the digest", at)
		}
	})
}

// FuzzStringStreamDistinct checks that shifting bytes between adjacent
// string values never collides, thanks to the per-value length prefix.
// Run with: go test -fuzz=FuzzStringStreamDistinct -fuzztime=30s ./digest/
func FuzzStringStreamDistinct(f *testing.F) {
	f.Add("foo", "bar")
	f.Add("", "x")
	f.Add("aa", "")

	f.Fuzz(func(t *testing.T, a, b string) {
		if len(a) == 0 {
			return
		}
		// Move the boundary one byte to the left: ("ab","c") vs ("a","bc").
		a2, b2 := a[:len(a)-1], a[len(a)-1:]+b

		mk := func(x, y string) arrow.Array {
			sb := array.NewStringBuilder(memory.DefaultAllocator)
			defer sb.Release()
			sb.AppendValues([]string{x, y}, nil)
			return sb.NewStringArray()
		}
		arr1 := mk(a, b)
		defer arr1.Release()
		arr2 := mk(a2, b2)
		defer arr2.Release()

		d1, err := DigestArray(arr1, hasher.SHA3_256)
		if err != nil {
			t.Fatal(err)
		}
		d2, err := DigestArray(arr2, hasher.SHA3_256)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(d1, d2) {
			t.Errorf("(%q,%q) and (%q,%q) digested identically", a, b, a2, b2)
		}
	})
}
