package digest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

// typeBytes returns the canonical encoding of a type, failing the test on
// unsupported types.
func typeBytes(t *testing.T, dt arrow.DataType) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := HashDataType(dt, &buf); err != nil {
		t.Fatalf("HashDataType(%s): %v", dt, err)
	}
	return buf.Bytes()
}

func u64le(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestTypeEncodings(t *testing.T) {
	cases := []struct {
		dt   arrow.DataType
		want []byte
	}{
		{arrow.Null, []byte{0, 0}},
		{arrow.FixedWidthTypes.Boolean, []byte{5, 0}},
		{arrow.PrimitiveTypes.Int32, cat([]byte{1, 0, 1}, u64le(32))},
		{arrow.PrimitiveTypes.Uint8, cat([]byte{1, 0, 0}, u64le(8))},
		{arrow.PrimitiveTypes.Int64, cat([]byte{1, 0, 1}, u64le(64))},
		{arrow.PrimitiveTypes.Float64, cat([]byte{2, 0}, u64le(64))},
		{arrow.FixedWidthTypes.Float16, cat([]byte{2, 0}, u64le(16))},
		{arrow.BinaryTypes.Binary, []byte{3, 0}},
		{arrow.BinaryTypes.String, []byte{4, 0}},
		{&arrow.Decimal128Type{Precision: 38, Scale: 10},
			cat([]byte{6, 0}, u64le(128), u64le(38), u64le(10))},
		{arrow.FixedWidthTypes.Date32, cat([]byte{7, 0}, u64le(32), []byte{0, 0})},
		{arrow.FixedWidthTypes.Date64, cat([]byte{7, 0}, u64le(64), []byte{1, 0})},
		{&arrow.Time32Type{Unit: arrow.Millisecond}, cat([]byte{8, 0}, u64le(32), []byte{1, 0})},
		{&arrow.Time64Type{Unit: arrow.Microsecond}, cat([]byte{8, 0}, u64le(64), []byte{2, 0})},
		{&arrow.TimestampType{Unit: arrow.Second}, []byte{9, 0, 0, 0, 0}},
		{&arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"},
			cat([]byte{9, 0, 3, 0, 1}, u64le(3), []byte("UTC"))},
		{arrow.FixedWidthTypes.MonthInterval, []byte{10, 0}},
		{&arrow.DurationType{Unit: arrow.Nanosecond}, []byte{17, 0}},
		{arrow.ListOf(arrow.PrimitiveTypes.Int32),
			cat([]byte{11, 0, 1, 0, 1}, u64le(32))},
		{arrow.StructOf(arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int32}), []byte{12, 0}},
	}

	for _, c := range cases {
		if got := typeBytes(t, c.dt); !bytes.Equal(got, c.want) {
			t.Errorf("%s: got % x, want % x", c.dt, got, c.want)
		}
	}
}

func TestCollapsedTypeFamilies(t *testing.T) {
	groups := [][]arrow.DataType{
		{arrow.BinaryTypes.String, arrow.BinaryTypes.LargeString, arrow.BinaryTypes.StringView},
		{arrow.BinaryTypes.Binary, arrow.BinaryTypes.LargeBinary, arrow.BinaryTypes.BinaryView,
			&arrow.FixedSizeBinaryType{ByteWidth: 16}},
		{arrow.ListOf(arrow.PrimitiveTypes.Int32),
			arrow.LargeListOf(arrow.PrimitiveTypes.Int32),
			arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Int32)},
		{arrow.BinaryTypes.String,
			&arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String}},
	}

	for _, group := range groups {
		want := typeBytes(t, group[0])
		for _, dt := range group[1:] {
			if got := typeBytes(t, dt); !bytes.Equal(got, want) {
				t.Errorf("%s encodes as % x, expected the same bytes as %s (% x)",
					dt, got, group[0], want)
			}
		}
	}

	if bytes.Equal(typeBytes(t, arrow.PrimitiveTypes.Int32), typeBytes(t, arrow.PrimitiveTypes.Uint32)) {
		t.Error("signed and unsigned ints must encode differently")
	}
}

func TestUnsupportedTypes(t *testing.T) {
	unsupported := []arrow.DataType{
		arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32),
		arrow.SparseUnionOf(
			[]arrow.Field{{Name: "i", Type: arrow.PrimitiveTypes.Int32, Nullable: true}},
			[]arrow.UnionTypeCode{0},
		),
	}
	for _, dt := range unsupported {
		var buf bytes.Buffer
		if err := HashDataType(dt, &buf); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("%s: got %v, want ErrUnsupportedType", dt, err)
		}
	}
}

func TestHashSchemaNested(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int32},
		{Name: "s", Type: arrow.StructOf(
			arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			arrow.Field{Name: "y", Type: arrow.BinaryTypes.String, Nullable: true},
		), Nullable: true},
	}, nil)

	var buf bytes.Buffer
	if err := HashSchema(schema, &buf); err != nil {
		t.Fatalf("HashSchema: %v", err)
	}

	want := cat(
		u64le(1), []byte("a"), u64le(0), typeBytes(t, arrow.PrimitiveTypes.Int32),
		u64le(1), []byte("s"), u64le(0), []byte{12, 0},
		u64le(1), []byte("x"), u64le(1), typeBytes(t, arrow.PrimitiveTypes.Int32),
		u64le(1), []byte("y"), u64le(1), typeBytes(t, arrow.BinaryTypes.String),
	)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("schema stream mismatch:\n got % x\nwant % x", buf.Bytes(), want)
	}
}

func TestHashSchemaMetadataIgnored(t *testing.T) {
	fields := []arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int64}}
	md := arrow.NewMetadata([]string{"origin"}, []string{"somewhere"})
	plain := arrow.NewSchema(fields, nil)
	annotated := arrow.NewSchema(fields, &md)

	var b1, b2 bytes.Buffer
	if err := HashSchema(plain, &b1); err != nil {
		t.Fatal(err)
	}
	if err := HashSchema(annotated, &b2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1.Bytes(), b2.Bytes()) {
		t.Error("schema metadata leaked into the canonical encoding")
	}
}
