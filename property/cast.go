package property

import (
	"math"

	"github.com/obsforge/datamodel/codec"
	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/schema"
)

// Context supplies the shape information default synthesis needs. Shape
// reports the shape of the model's primary array, or the shape hint the
// model was constructed with when no primary array is stored yet; nil when
// neither exists.
type Context interface {
	PrimaryArrayName() string
	Shape() []int
}

// Cast converts a user-supplied value into its storable form, enforcing the
// descriptor's constraints. Array fields are gently cast: a conforming
// array is returned unchanged, a non-conforming one is converted into a
// fresh array. Scalar fields run through their format codec and the schema
// validator. Read-only enforcement is the caller's job; Cast only shapes
// the value.
func (d *Descriptor) Cast(v any) (any, error) {
	if d.AdHoc {
		return v, nil
	}
	if d.IsData() {
		return d.castArray(v)
	}
	if d.Format != "" {
		if conv, ok := codec.Lookup(d.Format); ok {
			basic, err := conv.ToBasic(v)
			if err != nil {
				return nil, withPath(err, d.DottedPath())
			}
			v = basic
		}
	}
	v = normalizeScalar(v)
	for _, n := range d.validators() {
		if err := schema.ValidateInstance(n, v); err != nil {
			return nil, withPath(err, d.DottedPath())
		}
	}
	return v, nil
}

func (d *Descriptor) castArray(v any) (any, error) {
	arr, ok := v.(*ndarray.Array)
	if !ok {
		return nil, dmerr.New(dmerr.CodeValidation, d.DottedPath(), "array field requires *ndarray.Array, got %T", v)
	}
	if d.HasDType {
		cast, err := ndarray.GentleCast(arr, d.DType)
		if err != nil {
			return nil, dmerr.Wrap(dmerr.CodeValidation, d.DottedPath(), err, "array does not fit the field")
		}
		arr = cast
	}
	if err := ndarray.CheckNDim(arr, d.NDim, d.MaxNDim); err != nil {
		return nil, dmerr.Wrap(dmerr.CodeValidation, d.DottedPath(), err, "array does not fit the field")
	}
	return arr, nil
}

// Decode converts a stored basic value to its native form via the field's
// format codec. Fields without a codec pass through.
func (d *Descriptor) Decode(v any) (any, error) {
	if d.AdHoc || d.Format == "" {
		return v, nil
	}
	conv, ok := codec.Lookup(d.Format)
	if !ok {
		return v, nil
	}
	out, err := conv.FromBasic(v)
	if err != nil {
		return nil, withPath(err, d.DottedPath())
	}
	return out, nil
}

// SynthesizeDefault builds the value a field assumes when nothing is
// stored. Array fields always synthesize: the schema default is only the
// fill value, the shape comes from the primary array (trimmed to the
// field's own dimensionality) and falls back to a zero-length array of the
// declared rank when no shape is known. Record-dtype fields synthesize a
// zero-length table. Scalar fields yield the literal default deep-copied,
// list fields an empty list, everything else nil. The result is freshly
// allocated on every call.
func (d *Descriptor) SynthesizeDefault(ctx Context) (any, error) {
	if !d.IsData() {
		if d.HasDefault {
			return deepCopyDefault(d.Default), nil
		}
		if d.Kind == schema.KindArray {
			return []any{}, nil
		}
		return nil, nil
	}
	if !d.HasDType {
		return nil, nil
	}
	rank := d.NDim
	if rank == 0 {
		rank = d.MaxNDim
	}
	if rank == 0 {
		rank = 1
	}
	if d.DType.IsRecord() {
		return ndarray.New(d.DType, make([]int, rank)...), nil
	}
	fill := 0.0
	if d.HasDefault {
		fill = toFloat(d.Default)
	}
	var shape []int
	if ctx != nil {
		shape = ctx.Shape()
	}
	switch {
	case shape == nil:
		shape = make([]int, rank)
	case ctx.PrimaryArrayName() == d.DottedPath():
		// The primary array takes the model's shape whole.
	case d.NDim > 0:
		if len(shape) < d.NDim {
			return nil, dmerr.New(dmerr.CodeValidation, d.DottedPath(),
				"primary shape %v has fewer than %d dimensions", shape, d.NDim)
		}
		shape = shape[len(shape)-d.NDim:]
	case d.MaxNDim > 0 && len(shape) > d.MaxNDim:
		shape = shape[len(shape)-d.MaxNDim:]
	}
	return ndarray.Full(d.DType, fill, shape...), nil
}

func deepCopyDefault(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopyDefault(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopyDefault(val)
		}
		return out
	default:
		return v
	}
}

// normalizeScalar folds the integer and float widths a caller may hand in
// onto the two numeric types storage carries.
func normalizeScalar(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func withPath(err error, path string) error {
	if issues, ok := dmerr.AsIssues(err); ok {
		for i := range issues {
			if issues[i].Path == "" {
				issues[i].Path = path
			} else {
				issues[i].Path = path + "." + issues[i].Path
			}
		}
		return issues
	}
	return err
}
