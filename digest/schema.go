package digest

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
)

// Type identifiers of the canonical encoding. Representation variants of
// the same logical type share an identifier: Binary, LargeBinary and
// FixedSizeBinary all encode as typeIDBinary, Utf8 and LargeUtf8 as
// typeIDUtf8, and the whole list family as typeIDList. View arrays map to
// the identifier of their non-view counterpart.
type typeID uint16

const (
	typeIDNull          typeID = 0
	typeIDInt           typeID = 1
	typeIDFloatingPoint typeID = 2
	typeIDBinary        typeID = 3
	typeIDUtf8          typeID = 4
	typeIDBool          typeID = 5
	typeIDDecimal       typeID = 6
	typeIDDate          typeID = 7
	typeIDTime          typeID = 8
	typeIDTimestamp     typeID = 9
	typeIDInterval      typeID = 10
	typeIDList          typeID = 11
	typeIDStruct        typeID = 12
	typeIDDuration      typeID = 17
)

// Date unit identifiers. Date32 always counts days, Date64 milliseconds.
const (
	dateUnitDay         uint16 = 0
	dateUnitMillisecond uint16 = 1
)

func timeUnitID(u arrow.TimeUnit) uint16 {
	switch u {
	case arrow.Second:
		return 0
	case arrow.Millisecond:
		return 1
	case arrow.Microsecond:
		return 2
	default:
		return 3
	}
}

// HashDataType appends the canonical byte encoding of an Arrow logical
// type to w: a little-endian u16 type identifier followed by the type's
// parameters. Dictionary types encode as their value type. Union and Map
// types are not part of the protocol and fail with ErrUnsupportedType.
func HashDataType(dt arrow.DataType, w io.Writer) error {
	s := &sink{w: w}
	if err := hashDataType(dt, s); err != nil {
		return err
	}
	return s.err
}

func hashDataType(dt arrow.DataType, s *sink) error {
	switch dt.ID() {
	case arrow.NULL:
		s.u16(uint16(typeIDNull))
	case arrow.BOOL:
		s.u16(uint16(typeIDBool))
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		s.u16(uint16(typeIDInt))
		s.u8(1)
		s.u64(uint64(dt.(arrow.FixedWidthDataType).BitWidth()))
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		s.u16(uint16(typeIDInt))
		s.u8(0)
		s.u64(uint64(dt.(arrow.FixedWidthDataType).BitWidth()))
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		s.u16(uint16(typeIDFloatingPoint))
		s.u64(uint64(dt.(arrow.FixedWidthDataType).BitWidth()))
	case arrow.DECIMAL128:
		t := dt.(*arrow.Decimal128Type)
		s.u16(uint16(typeIDDecimal))
		s.u64(128)
		s.u64(uint64(t.Precision))
		s.u64(uint64(t.Scale))
	case arrow.DECIMAL256:
		t := dt.(*arrow.Decimal256Type)
		s.u16(uint16(typeIDDecimal))
		s.u64(256)
		s.u64(uint64(t.Precision))
		s.u64(uint64(t.Scale))
	case arrow.DATE32:
		s.u16(uint16(typeIDDate))
		s.u64(32)
		s.u16(dateUnitDay)
	case arrow.DATE64:
		s.u16(uint16(typeIDDate))
		s.u64(64)
		s.u16(dateUnitMillisecond)
	case arrow.TIME32:
		s.u16(uint16(typeIDTime))
		s.u64(32)
		s.u16(timeUnitID(dt.(*arrow.Time32Type).Unit))
	case arrow.TIME64:
		s.u16(uint16(typeIDTime))
		s.u64(64)
		s.u16(timeUnitID(dt.(*arrow.Time64Type).Unit))
	case arrow.TIMESTAMP:
		t := dt.(*arrow.TimestampType)
		s.u16(uint16(typeIDTimestamp))
		s.u16(timeUnitID(t.Unit))
		if t.TimeZone == "" {
			s.u8(0)
		} else {
			s.u8(1)
			s.str(t.TimeZone)
		}
	case arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME, arrow.INTERVAL_MONTH_DAY_NANO:
		s.u16(uint16(typeIDInterval))
	case arrow.DURATION:
		s.u16(uint16(typeIDDuration))
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY, arrow.BINARY_VIEW:
		s.u16(uint16(typeIDBinary))
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		s.u16(uint16(typeIDUtf8))
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.LIST_VIEW, arrow.LARGE_LIST_VIEW:
		s.u16(uint16(typeIDList))
		elem, _ := listElemType(dt)
		return hashDataType(elem, s)
	case arrow.STRUCT:
		// Children are encoded by the schema traversal, not here.
		s.u16(uint16(typeIDStruct))
	case arrow.DICTIONARY:
		return hashDataType(dt.(*arrow.DictionaryType).ValueType, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	return nil
}

// HashSchema appends the canonical byte encoding of a full schema to w.
// Fields are visited depth-first; each visited field contributes its name
// (u64 length + UTF-8 bytes), its zero-based nesting level as u64, and its
// canonical type encoding. Traversal descends into the children of Struct
// fields and into the children of a list's struct item; everything else is
// terminal. Schema metadata is ignored.
func HashSchema(schema *arrow.Schema, w io.Writer) error {
	s := &sink{w: w}
	for _, f := range schema.Fields() {
		if err := hashField(f, 0, s); err != nil {
			return err
		}
	}
	return s.err
}

func hashField(f arrow.Field, level uint64, s *sink) error {
	s.str(f.Name)
	s.u64(level)
	if err := hashDataType(f.Type, s); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	for _, child := range nestedChildren(f.Type) {
		if err := hashField(child, level+1, s); err != nil {
			return err
		}
	}
	return nil
}

// nestedChildren returns the fields the schema traversal descends into: a
// struct's own fields, or the fields of a list's struct item. The item
// field itself is not visited; its type bytes are already part of the
// list's encoding.
func nestedChildren(dt arrow.DataType) []arrow.Field {
	dt = resolveDictionary(dt)
	if st, ok := dt.(*arrow.StructType); ok {
		return st.Fields()
	}
	if elem, ok := listElemType(dt); ok {
		if st, ok := resolveDictionary(elem).(*arrow.StructType); ok {
			return st.Fields()
		}
	}
	return nil
}

// listElemType returns the item type for any member of the list family.
func listElemType(dt arrow.DataType) (arrow.DataType, bool) {
	switch t := dt.(type) {
	case *arrow.ListType:
		return t.Elem(), true
	case *arrow.LargeListType:
		return t.Elem(), true
	case *arrow.FixedSizeListType:
		return t.Elem(), true
	case *arrow.ListViewType:
		return t.Elem(), true
	case *arrow.LargeListViewType:
		return t.Elem(), true
	}
	return nil, false
}

func resolveDictionary(dt arrow.DataType) arrow.DataType {
	for dt.ID() == arrow.DICTIONARY {
		dt = dt.(*arrow.DictionaryType).ValueType
	}
	return dt
}

// fixedWidthByteSize reports the value width in bytes for types whose
// values hash as raw little-endian fixed-width bytes. Booleans are
// excluded: they are bit-packed and encode as 1/2 constants instead.
func fixedWidthByteSize(dt arrow.DataType) (int, bool) {
	switch dt.ID() {
	case arrow.INT8, arrow.UINT8, arrow.INT16, arrow.UINT16,
		arrow.INT32, arrow.UINT32, arrow.INT64, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64,
		arrow.TIMESTAMP, arrow.DURATION,
		arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME, arrow.INTERVAL_MONTH_DAY_NANO,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return dt.(arrow.FixedWidthDataType).BitWidth() / 8, true
	}
	return 0, false
}
