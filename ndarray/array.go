package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Array is a dense n-dimensional array over a flat little-endian buffer.
// A zero-dimensional shape is not used; scalar-per-element access is by flat
// index in row-major order.
type Array struct {
	dtype DType
	shape []int
	data  []byte
}

// New allocates a zero-filled array.
func New(dt DType, shape ...int) *Array {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("ndarray: negative dimension %d", s))
		}
		n *= s
	}
	return &Array{
		dtype: dt,
		shape: append([]int(nil), shape...),
		data:  make([]byte, n*dt.ItemSize()),
	}
}

// Full allocates an array with every element set to fill.
func Full(dt DType, fill float64, shape ...int) *Array {
	a := New(dt, shape...)
	if dt.IsRecord() {
		return a
	}
	for i := 0; i < a.Len(); i++ {
		a.SetFloat(i, fill)
	}
	return a
}

// FromFloat64s builds a float64 array from values in row-major order.
func FromFloat64s(shape []int, values []float64) *Array {
	a := New(Of(Float64), shape...)
	if len(values) != a.Len() {
		panic("ndarray: value count does not match shape")
	}
	for i, v := range values {
		a.SetFloat(i, v)
	}
	return a
}

// FromUint32s builds a uint32 array from values in row-major order.
func FromUint32s(shape []int, values []uint32) *Array {
	a := New(Of(Uint32), shape...)
	if len(values) != a.Len() {
		panic("ndarray: value count does not match shape")
	}
	for i, v := range values {
		a.SetUint(i, uint64(v))
	}
	return a
}

// Wrap adopts an existing buffer without copying. The buffer length must
// match shape × itemsize; used by the container layer when loading payloads.
func Wrap(dt DType, shape []int, data []byte) (*Array, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(data) != n*dt.ItemSize() {
		return nil, fmt.Errorf("ndarray: buffer length %d does not match shape %v of %s", len(data), shape, dt)
	}
	return &Array{dtype: dt, shape: append([]int(nil), shape...), data: data}, nil
}

func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the dimension sizes.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

func (a *Array) NDim() int { return len(a.shape) }

// Len returns the total element count.
func (a *Array) Len() int {
	n := 1
	for _, s := range a.shape {
		n *= s
	}
	return n
}

// Bytes exposes the backing buffer. Callers must not resize it.
func (a *Array) Bytes() []byte { return a.data }

// Copy returns a deep copy sharing no storage with the receiver.
func (a *Array) Copy() *Array {
	return &Array{
		dtype: a.dtype,
		shape: append([]int(nil), a.shape...),
		data:  append([]byte(nil), a.data...),
	}
}

// FlatIndex converts multi-dimensional indices to a flat row-major index.
func (a *Array) FlatIndex(ix ...int) int {
	if len(ix) != len(a.shape) {
		panic(fmt.Sprintf("ndarray: got %d indices for %d dimensions", len(ix), len(a.shape)))
	}
	flat := 0
	for d, i := range ix {
		if i < 0 || i >= a.shape[d] {
			panic(fmt.Sprintf("ndarray: index %d out of range for dimension %d (size %d)", i, d, a.shape[d]))
		}
		flat = flat*a.shape[d] + i
	}
	return flat
}

// Equal reports bit-exact equality: same dtype, shape and buffer contents.
func Equal(a, b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.dtype.Equal(b.dtype) || len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return bytes.Equal(a.data, b.data)
}

// ---- scalar element access ----

func (a *Array) scalarAt(off int, dt DType) float64 {
	switch dt.Kind {
	case Bool:
		if a.data[off] != 0 {
			return 1
		}
		return 0
	case Int8:
		return float64(int8(a.data[off]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(a.data[off:])))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(a.data[off:])))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(a.data[off:])))
	case Uint8:
		return float64(a.data[off])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(a.data[off:]))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(a.data[off:]))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(a.data[off:]))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(a.data[off:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(a.data[off:]))
	}
	panic(fmt.Sprintf("ndarray: scalar access on %s", dt))
}

func (a *Array) setScalarAt(off int, dt DType, v float64) {
	switch dt.Kind {
	case Bool:
		if v != 0 {
			a.data[off] = 1
		} else {
			a.data[off] = 0
		}
	case Int8:
		a.data[off] = byte(int8(v))
	case Int16:
		binary.LittleEndian.PutUint16(a.data[off:], uint16(int16(v)))
	case Int32:
		binary.LittleEndian.PutUint32(a.data[off:], uint32(int32(v)))
	case Int64:
		binary.LittleEndian.PutUint64(a.data[off:], uint64(int64(v)))
	case Uint8:
		a.data[off] = byte(uint8(v))
	case Uint16:
		binary.LittleEndian.PutUint16(a.data[off:], uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(a.data[off:], uint32(v))
	case Uint64:
		binary.LittleEndian.PutUint64(a.data[off:], uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(a.data[off:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(a.data[off:], math.Float64bits(v))
	default:
		panic(fmt.Sprintf("ndarray: scalar write on %s", dt))
	}
}

// Float returns element i as float64.
func (a *Array) Float(i int) float64 {
	return a.scalarAt(i*a.dtype.ItemSize(), a.dtype)
}

// SetFloat stores v into element i with conversion to the element kind.
func (a *Array) SetFloat(i int, v float64) {
	a.setScalarAt(i*a.dtype.ItemSize(), a.dtype, v)
}

// Uint returns element i as uint64 (integer kinds only).
func (a *Array) Uint(i int) uint64 {
	off := i * a.dtype.ItemSize()
	switch a.dtype.Kind {
	case Uint8, Bool:
		return uint64(a.data[off])
	case Uint16:
		return uint64(binary.LittleEndian.Uint16(a.data[off:]))
	case Uint32:
		return uint64(binary.LittleEndian.Uint32(a.data[off:]))
	case Uint64:
		return binary.LittleEndian.Uint64(a.data[off:])
	}
	return uint64(a.Float(i))
}

// SetUint stores v into element i.
func (a *Array) SetUint(i int, v uint64) {
	off := i * a.dtype.ItemSize()
	switch a.dtype.Kind {
	case Uint8, Bool:
		a.data[off] = byte(v)
	case Uint16:
		binary.LittleEndian.PutUint16(a.data[off:], uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(a.data[off:], uint32(v))
	case Uint64:
		binary.LittleEndian.PutUint64(a.data[off:], v)
	default:
		a.SetFloat(i, float64(v))
	}
}

// ---- record element access ----

// FieldFloat returns the named column of record element i as float64.
func (a *Array) FieldFloat(i int, name string) float64 {
	off, f, ok := a.dtype.fieldOffset(name)
	if !ok {
		panic(fmt.Sprintf("ndarray: no field %q in %s", name, a.dtype))
	}
	return a.scalarAt(i*a.dtype.ItemSize()+off, f.DType)
}

// SetFieldFloat stores v into the named column of record element i.
func (a *Array) SetFieldFloat(i int, name string, v float64) {
	off, f, ok := a.dtype.fieldOffset(name)
	if !ok {
		panic(fmt.Sprintf("ndarray: no field %q in %s", name, a.dtype))
	}
	a.setScalarAt(i*a.dtype.ItemSize()+off, f.DType, v)
}

// FieldString returns the named fixed-width string column of element i,
// with trailing NULs stripped.
func (a *Array) FieldString(i int, name string) string {
	off, f, ok := a.dtype.fieldOffset(name)
	if !ok || f.DType.Kind != String {
		panic(fmt.Sprintf("ndarray: no string field %q in %s", name, a.dtype))
	}
	start := i*a.dtype.ItemSize() + off
	raw := a.data[start : start+f.DType.Size]
	return string(bytes.TrimRight(raw, "\x00"))
}

// SetFieldString stores s into the named fixed-width string column,
// truncating or NUL-padding to the declared width.
func (a *Array) SetFieldString(i int, name string, s string) {
	off, f, ok := a.dtype.fieldOffset(name)
	if !ok || f.DType.Kind != String {
		panic(fmt.Sprintf("ndarray: no string field %q in %s", name, a.dtype))
	}
	start := i*a.dtype.ItemSize() + off
	dst := a.data[start : start+f.DType.Size]
	for j := range dst {
		dst[j] = 0
	}
	copy(dst, s)
}
