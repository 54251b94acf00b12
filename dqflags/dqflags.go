// Package dqflags holds the canonical data-quality flag assignments and
// the translation from per-file flag layouts to the canonical one.
package dqflags

import (
	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/ndarray"
)

// Pixel maps flag mnemonics to their canonical bit values.
var Pixel = map[string]uint32{
	"GOOD":             0,
	"DO_NOT_USE":       1 << 0,
	"SATURATED":        1 << 1,
	"JUMP_DET":         1 << 2,
	"DROPOUT":          1 << 3,
	"RESERVED_1":       1 << 4,
	"RESERVED_2":       1 << 5,
	"RESERVED_3":       1 << 6,
	"RESERVED_4":       1 << 7,
	"UNRELIABLE":       1 << 8,
	"NON_SCIENCE":      1 << 9,
	"DEAD":             1 << 10,
	"HOT":              1 << 11,
	"WARM":             1 << 12,
	"LOW_QE":           1 << 13,
	"RC":               1 << 14,
	"TELEGRAPH":        1 << 15,
	"NONLINEAR":        1 << 16,
	"BAD_REF_PIX":      1 << 17,
	"NO_FLAT":          1 << 18,
	"NO_GAIN":          1 << 19,
	"NO_LIN_CORR":      1 << 20,
	"NO_SAT_CHECK":     1 << 21,
	"UNRELIABLE_BIAS":  1 << 22,
	"UNRELIABLE_DARK":  1 << 23,
	"UNRELIABLE_SLOPE": 1 << 24,
	"UNRELIABLE_FLAT":  1 << 25,
	"OPEN":             1 << 26,
	"ADJ_OPEN":         1 << 27,
	"UNRELIABLE_RESET": 1 << 28,
	"MSA_FAILED_OPEN":  1 << 29,
	"OTHER_BAD_PIXEL":  1 << 30,
}

// DynamicMask translates a mask expressed in a file-local flag layout into
// the canonical layout. Each row of def names one flag: VALUE is the bit
// value the file uses, NAME its mnemonic. An element of the result carries
// the canonical value of every flag whose file bit is set; mnemonics
// outside the canonical table contribute nothing.
func DynamicMask(dq *ndarray.Array, def *ndarray.Array, flags map[string]uint32) (*ndarray.Array, error) {
	if dq == nil {
		return nil, dmerr.New(dmerr.CodeAttributeMissing, "dq", "no mask to translate")
	}
	if def == nil || !def.DType().IsRecord() || def.Len() == 0 {
		return dq, nil
	}
	if flags == nil {
		flags = Pixel
	}
	type pair struct{ file, canonical uint32 }
	var table []pair
	for i := 0; i < def.Len(); i++ {
		name := def.FieldString(i, "NAME")
		canonical, ok := flags[name]
		if !ok || canonical == 0 {
			continue
		}
		fileValue := uint32(def.FieldFloat(i, "VALUE"))
		if fileValue == 0 {
			continue
		}
		table = append(table, pair{file: fileValue, canonical: canonical})
	}
	out := ndarray.New(ndarray.Of(ndarray.Uint32), dq.Shape()...)
	for i := 0; i < dq.Len(); i++ {
		raw := uint32(dq.Uint(i))
		var v uint32
		for _, p := range table {
			if raw&p.file != 0 {
				v |= p.canonical
			}
		}
		out.SetUint(i, uint64(v))
	}
	return out, nil
}
