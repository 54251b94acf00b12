package datamodel

import "github.com/obsforge/datamodel/ndarray"

// RampModel is a model of 4-D up-the-ramp readout data with per-pixel and
// per-group quality arrays. Its primary array is "data".
type RampModel struct {
	*Model
}

func rampOptions(opts *Options) *Options {
	out := &Options{PrimaryArray: "data"}
	if opts != nil {
		out.Loader = opts.Loader
		out.Shape = opts.Shape
	}
	return out
}

// NewRampModel creates an empty in-memory ramp model.
func NewRampModel(opts *Options) (*RampModel, error) {
	m, err := New(RampSchema, rampOptions(opts))
	if err != nil {
		return nil, err
	}
	return &RampModel{m}, nil
}

// RampFromShape creates a ramp model whose arrays default to the given
// shape. The pixel quality array takes the trailing two dimensions.
func RampFromShape(shape []int, opts *Options) (*RampModel, error) {
	o := rampOptions(opts)
	o.Shape = shape
	return NewRampModel(o)
}

// OpenRamp reads a ramp model from a container file.
func OpenRamp(path string, opts *Options) (*RampModel, error) {
	m, err := Open(path, RampSchema, rampOptions(opts))
	if err != nil {
		return nil, err
	}
	return &RampModel{m}, nil
}

// Data returns the science data cube.
func (rm *RampModel) Data() (*ndarray.Array, error) { return rm.GetArray("data") }

// PixelDQ returns the 2-D quality array shared by all planes.
func (rm *RampModel) PixelDQ() (*ndarray.Array, error) { return rm.GetArray("pixeldq") }

// GroupDQ returns the per-group quality cube.
func (rm *RampModel) GroupDQ() (*ndarray.Array, error) { return rm.GetArray("groupdq") }

// Err returns the error cube.
func (rm *RampModel) Err() (*ndarray.Array, error) { return rm.GetArray("err") }
