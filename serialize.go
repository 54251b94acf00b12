package datamodel

import (
	"io"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/schema"
	"github.com/obsforge/datamodel/storage"
)

// WriteJSON writes the model's scalar fields as an indented JSON document.
// Array payloads stay in the container; only metadata travels.
func (m *Model) WriteJSON(w io.Writer) error {
	text, err := json.MarshalIndent(m.ToTree(), "", "    ")
	if err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "metadata cannot be serialized")
	}
	if _, err := w.Write(append(text, '\n')); err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "write failed")
	}
	return nil
}

// WriteYAML writes the model's scalar fields as a YAML document.
func (m *Model) WriteYAML(w io.Writer) error {
	text, err := yaml.Marshal(m.ToTree())
	if err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "metadata cannot be serialized")
	}
	if _, err := w.Write(text); err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "write failed")
	}
	return nil
}

// OpenDocument reads a metadata-only text document (JSON or YAML, sniffed
// from the content) into an in-memory model. Text documents cannot carry
// array payloads; array fields start out absent.
func OpenDocument(path, schemaURL string, opts *Options) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeStorageIO, "", err, "cannot read %s", path)
	}
	doc, err := schema.DecodeDocument(data)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeStorageIO, "", err, "cannot decode %s", path)
	}
	tree, ok := foldNumbers(schema.Plain(doc)).(map[string]any)
	if !ok {
		return nil, dmerr.New(dmerr.CodeStorageIO, "", "%s does not hold an object document", path)
	}
	return FromStorage(storage.NewTree(tree), schemaURL, opts)
}

// foldNumbers collapses json.Number values left by ordered decoding onto
// the two numeric types storage carries.
func foldNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, x := range t {
			t[i] = foldNumbers(x)
		}
		return t
	case map[string]any:
		for k, x := range t {
			t[k] = foldNumbers(x)
		}
		return t
	default:
		return v
	}
}
