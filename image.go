package datamodel

import (
	"github.com/obsforge/datamodel/dqflags"
	"github.com/obsforge/datamodel/ndarray"
)

// ImageModel is a model of 2-D science data with associated quality and
// error arrays. Its primary array is "data".
type ImageModel struct {
	*Model
}

func imageOptions(opts *Options) *Options {
	out := &Options{PrimaryArray: "data"}
	if opts != nil {
		out.Loader = opts.Loader
		out.Shape = opts.Shape
	}
	return out
}

// NewImageModel creates an empty in-memory image model.
func NewImageModel(opts *Options) (*ImageModel, error) {
	m, err := New(ImageSchema, imageOptions(opts))
	if err != nil {
		return nil, err
	}
	return &ImageModel{m}, nil
}

// ImageFromShape creates an image model whose arrays default to the given
// shape.
func ImageFromShape(shape []int, opts *Options) (*ImageModel, error) {
	o := imageOptions(opts)
	o.Shape = shape
	return NewImageModel(o)
}

// ImageFromArray creates an image model around an existing science array.
func ImageFromArray(data *ndarray.Array, opts *Options) (*ImageModel, error) {
	im, err := NewImageModel(opts)
	if err != nil {
		return nil, err
	}
	if err := im.Set("data", data); err != nil {
		im.Close()
		return nil, err
	}
	return im, nil
}

// OpenImage reads an image model from a container file.
func OpenImage(path string, opts *Options) (*ImageModel, error) {
	m, err := Open(path, ImageSchema, imageOptions(opts))
	if err != nil {
		return nil, err
	}
	return &ImageModel{m}, nil
}

// Data returns the science array.
func (im *ImageModel) Data() (*ndarray.Array, error) { return im.GetArray("data") }

// DQ returns the data-quality array.
func (im *ImageModel) DQ() (*ndarray.Array, error) { return im.GetArray("dq") }

// Err returns the error array.
func (im *ImageModel) Err() (*ndarray.Array, error) { return im.GetArray("err") }

// MaskModel is a model of a data-quality mask plus the table defining what
// each mask bit means in this file. Its primary array is "dq".
type MaskModel struct {
	*Model
}

func maskOptions(opts *Options) *Options {
	out := &Options{PrimaryArray: "dq"}
	if opts != nil {
		out.Loader = opts.Loader
		out.Shape = opts.Shape
	}
	return out
}

// NewMaskModel creates an empty in-memory mask model.
func NewMaskModel(opts *Options) (*MaskModel, error) {
	m, err := New(MaskSchema, maskOptions(opts))
	if err != nil {
		return nil, err
	}
	return &MaskModel{m}, nil
}

// OpenMask reads a mask model from a container file.
func OpenMask(path string, opts *Options) (*MaskModel, error) {
	m, err := Open(path, MaskSchema, maskOptions(opts))
	if err != nil {
		return nil, err
	}
	return &MaskModel{m}, nil
}

// DQ returns the mask array in the file's own flag layout.
func (mm *MaskModel) DQ() (*ndarray.Array, error) { return mm.GetArray("dq") }

// DQDef returns the table defining the file's flag layout.
func (mm *MaskModel) DQDef() (*ndarray.Array, error) { return mm.GetArray("dq_def") }

// DynamicMask returns the mask translated to the canonical flag layout.
// Without definition rows, the stored mask is assumed canonical already.
func (mm *MaskModel) DynamicMask() (*ndarray.Array, error) {
	dq, err := mm.DQ()
	if err != nil {
		return nil, err
	}
	def, err := mm.DQDef()
	if err != nil {
		return nil, err
	}
	return dqflags.DynamicMask(dq, def, dqflags.Pixel)
}
