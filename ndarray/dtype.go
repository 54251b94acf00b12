// Package ndarray provides fixed-layout n-dimensional arrays for science
// data payloads: plain numeric arrays and structured (record) tables.
//
// Element storage is a flat little-endian byte buffer, so arrays round-trip
// bit-for-bit through the binary container. Casting follows the "gentle"
// rule: a cast to a dtype the array already has returns the array itself.
package ndarray

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates scalar element kinds.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String // fixed-width byte string, width in DType.Size
)

var kindNames = map[Kind]string{
	Bool: "bool8", Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
	Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
	Float32: "float32", Float64: "float64",
}

var kindSizes = map[Kind]int{
	Bool: 1, Int8: 1, Int16: 2, Int32: 4, Int64: 8,
	Uint8: 1, Uint16: 2, Uint32: 4, Uint64: 8,
	Float32: 4, Float64: 8,
}

// Field is one column of a record dtype.
type Field struct {
	Name  string
	DType DType
}

// DType describes the element type of an array. Either Kind is a scalar kind
// (Size used only for String), or Fields is non-empty and the dtype is a
// record (structured table row).
type DType struct {
	Kind   Kind
	Size   int
	Fields []Field
}

// IsRecord reports whether the dtype is a structured (composite) type.
func (dt DType) IsRecord() bool { return len(dt.Fields) > 0 }

// ItemSize returns the byte width of one element.
func (dt DType) ItemSize() int {
	if dt.IsRecord() {
		n := 0
		for _, f := range dt.Fields {
			n += f.DType.ItemSize()
		}
		return n
	}
	if dt.Kind == String {
		return dt.Size
	}
	return kindSizes[dt.Kind]
}

// Equal reports structural dtype equality. Record field names compare
// case-insensitively, matching the container's header conventions.
func (dt DType) Equal(o DType) bool {
	if dt.IsRecord() != o.IsRecord() {
		return false
	}
	if !dt.IsRecord() {
		return dt.Kind == o.Kind && (dt.Kind != String || dt.Size == o.Size)
	}
	if len(dt.Fields) != len(o.Fields) {
		return false
	}
	for i := range dt.Fields {
		if !strings.EqualFold(dt.Fields[i].Name, o.Fields[i].Name) {
			return false
		}
		if !dt.Fields[i].DType.Equal(o.Fields[i].DType) {
			return false
		}
	}
	return true
}

// String renders the schema-document spelling of the dtype.
func (dt DType) String() string {
	if dt.IsRecord() {
		parts := make([]string, len(dt.Fields))
		for i, f := range dt.Fields {
			parts[i] = fmt.Sprintf("{name: %s, datatype: %s}", f.Name, f.DType)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if dt.Kind == String {
		return fmt.Sprintf("string%d", dt.Size)
	}
	return kindNames[dt.Kind]
}

// Of is a convenience constructor for scalar dtypes.
func Of(k Kind) DType { return DType{Kind: k} }

// StringType returns a fixed-width string dtype.
func StringType(width int) DType { return DType{Kind: String, Size: width} }

// Record returns a record dtype over the given fields.
func Record(fields ...Field) DType { return DType{Fields: fields} }

// ParseDType parses the schema "datatype" attribute: either a scalar name
// such as "float32" or "string16", or a list of column specs
// [{name: ..., datatype: ...}, ...].
func ParseDType(spec any) (DType, error) {
	switch v := spec.(type) {
	case string:
		return parseScalar(v)
	case []any:
		fields := make([]Field, 0, len(v))
		for i, col := range v {
			m, ok := col.(map[string]any)
			if !ok {
				return DType{}, fmt.Errorf("datatype column %d: expected mapping, got %T", i, col)
			}
			name, _ := m["name"].(string)
			if name == "" {
				return DType{}, fmt.Errorf("datatype column %d: missing name", i)
			}
			sub, err := ParseDType(m["datatype"])
			if err != nil {
				return DType{}, fmt.Errorf("datatype column %q: %w", name, err)
			}
			fields = append(fields, Field{Name: name, DType: sub})
		}
		if len(fields) == 0 {
			return DType{}, fmt.Errorf("empty composite datatype")
		}
		return Record(fields...), nil
	default:
		return DType{}, fmt.Errorf("unsupported datatype spec %T", spec)
	}
}

func parseScalar(name string) (DType, error) {
	if w, ok := strings.CutPrefix(name, "string"); ok {
		n, err := strconv.Atoi(w)
		if err != nil || n <= 0 {
			return DType{}, fmt.Errorf("invalid string datatype %q", name)
		}
		return StringType(n), nil
	}
	for k, n := range kindNames {
		if n == name {
			return Of(k), nil
		}
	}
	return DType{}, fmt.Errorf("unknown datatype %q", name)
}

// fieldOffset returns the byte offset of the named field within one record
// element, or -1 when absent. Lookup is case-insensitive.
func (dt DType) fieldOffset(name string) (off int, f Field, ok bool) {
	for _, fld := range dt.Fields {
		if strings.EqualFold(fld.Name, name) {
			return off, fld, true
		}
		off += fld.DType.ItemSize()
	}
	return -1, Field{}, false
}
