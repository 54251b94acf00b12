package codec

import (
	"github.com/goccy/go-json"

	dmerr "github.com/obsforge/datamodel/errors"
)

// blob carries opaque structured values for schema fragments typed
// "pickle". The basic form is the value's JSON text, so any container can
// store it without knowing its shape.
type blob struct{}

func (blob) Name() string { return "blob" }
func (blob) Tag() string  { return "http://obsforge.io/formats/blob" }

func (blob) ToBasic(v any) (any, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeValidation, "", err, "value cannot be serialized")
	}
	return string(text), nil
}

func (blob) FromBasic(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, dmerr.Wrap(dmerr.CodeValidation, "", err, "stored blob is not valid")
	}
	return out, nil
}
