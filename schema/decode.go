package schema

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Obj is an order-preserving mapping decoded from a JSON or YAML document.
// Property order matters: it drives iteration order of compiled fields and
// the placement of comment cards on save.
type Obj struct {
	keys []string
	vals map[string]any
}

// NewObj returns an empty ordered mapping.
func NewObj() *Obj {
	return &Obj{vals: map[string]any{}}
}

func (o *Obj) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *Obj) Set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *Obj) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in document order.
func (o *Obj) Keys() []string { return o.keys }

func (o *Obj) Len() int { return len(o.keys) }

// DecodeDocument decodes a JSON or YAML document, sniffing the format from
// the first non-space byte.
func DecodeDocument(data []byte) (any, error) {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return DecodeJSON(bytes.NewReader(data))
		default:
			return DecodeYAML(data)
		}
	}
	return nil, fmt.Errorf("empty document")
}

// DecodeJSON builds an ordered value tree from a JSON stream.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONValue(dec, tok)
}

func decodeJSONValue(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}

func decodeJSONObject(dec *json.Decoder) (*Obj, error) {
	obj := NewObj()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		vtok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeJSONValue(dec, vtok)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
}

func decodeJSONArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return arr, nil
		}
		val, err := decodeJSONValue(dec, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
}

// DecodeYAML builds an ordered value tree from a YAML document.
func DecodeYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		return decodeYAMLNode(root.Content[0])
	}
	return decodeYAMLNode(&root)
}

func decodeYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		obj := NewObj()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, err
			}
			val, err := decodeYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := decodeYAMLNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.AliasNode:
		return decodeYAMLNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		switch t := v.(type) {
		case int:
			return int64(t), nil
		default:
			return v, nil
		}
	}
}

// Plain converts an ordered tree into plain Go values (map[string]any,
// []any, scalars) suitable for the external validator and for JSON/YAML
// encoders. Order is lost; use it only where order does not matter.
func Plain(v any) any {
	switch t := v.(type) {
	case *Obj:
		m := make(map[string]any, t.Len())
		for _, k := range t.keys {
			m[k] = Plain(t.vals[k])
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = Plain(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Plain(val)
		}
		return out
	default:
		return v
	}
}
