package ndarray

import (
	"fmt"
	"strings"
)

// GentleCast converts a to the target dtype. When a already conforms the
// original array is returned unchanged so callers never pay for a copy they
// do not need. Numeric kinds convert elementwise; record dtypes convert
// column by column, matching names case-insensitively.
func GentleCast(a *Array, dt DType) (*Array, error) {
	if a == nil {
		return nil, nil
	}
	if a.dtype.Equal(dt) {
		return a, nil
	}
	if a.dtype.IsRecord() != dt.IsRecord() {
		return nil, fmt.Errorf("ndarray: cannot cast %s to %s", a.dtype, dt)
	}
	out := New(dt, a.shape...)
	if !dt.IsRecord() {
		if dt.Kind == String || a.dtype.Kind == String {
			return nil, fmt.Errorf("ndarray: cannot cast %s to %s", a.dtype, dt)
		}
		for i := 0; i < a.Len(); i++ {
			out.SetFloat(i, a.Float(i))
		}
		return out, nil
	}
	for _, f := range dt.Fields {
		srcOff, srcField, ok := a.dtype.fieldOffset(f.Name)
		if !ok {
			return nil, fmt.Errorf("ndarray: source has no field %q", f.Name)
		}
		dstOff, _, _ := dt.fieldOffset(f.Name)
		if err := castColumn(a, out, srcOff, dstOff, srcField.DType, f.DType); err != nil {
			return nil, fmt.Errorf("ndarray: field %q: %w", f.Name, err)
		}
	}
	return out, nil
}

func castColumn(src, dst *Array, srcOff, dstOff int, from, to DType) error {
	srcItem := src.dtype.ItemSize()
	dstItem := dst.dtype.ItemSize()
	switch {
	case from.Kind == String && to.Kind == String:
		for i := 0; i < src.Len(); i++ {
			s := src.data[i*srcItem+srcOff : i*srcItem+srcOff+from.Size]
			d := dst.data[i*dstItem+dstOff : i*dstItem+dstOff+to.Size]
			copy(d, strings.TrimRight(string(s), "\x00"))
		}
	case from.Kind != String && to.Kind != String:
		for i := 0; i < src.Len(); i++ {
			v := src.scalarAt(i*srcItem+srcOff, from)
			dst.setScalarAt(i*dstItem+dstOff, to, v)
		}
	default:
		return fmt.Errorf("cannot convert %s to %s", from, to)
	}
	return nil
}

// CheckNDim verifies the dimensionality constraints a schema fragment may
// impose. Zero values mean unconstrained.
func CheckNDim(a *Array, ndim, maxNDim int) error {
	if ndim > 0 && a.NDim() != ndim {
		return fmt.Errorf("ndarray: array has %d dimensions, needs %d", a.NDim(), ndim)
	}
	if maxNDim > 0 && a.NDim() > maxNDim {
		return fmt.Errorf("ndarray: array has %d dimensions, at most %d allowed", a.NDim(), maxNDim)
	}
	return nil
}
