package schema

import (
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	dmerr "github.com/obsforge/datamodel/errors"
)

// metaSchema is a draft-4 derivative whose simpleTypes enum additionally
// admits the engine's "data" and "pickle" kinds and whose property schemas
// accept the layout attributes (fits_hdu, fits_keyword, datatype, ndim,
// max_ndim, readonly). Every loaded schema document must satisfy it.
const metaSchema = `{
    "id": "internal://schemas/meta",
    "$schema": "http://json-schema.org/draft-04/schema#",
    "type": ["object", "boolean"],
    "definitions": {
        "schemaArray": {
            "type": "array",
            "minItems": 1,
            "items": {"$ref": "#"}
        },
        "simpleTypes": {
            "enum": ["array", "boolean", "integer", "null", "number", "object", "string", "data", "pickle"]
        },
        "stringArray": {
            "type": "array",
            "items": {"type": "string"},
            "minItems": 1,
            "uniqueItems": true
        }
    },
    "properties": {
        "id": {"type": "string"},
        "$schema": {"type": "string"},
        "$ref": {"type": "string"},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "default": {},
        "multipleOf": {"type": "number", "minimum": 0, "exclusiveMinimum": true},
        "maximum": {"type": "number"},
        "exclusiveMaximum": {"type": "boolean"},
        "minimum": {"type": "number"},
        "exclusiveMinimum": {"type": "boolean"},
        "maxLength": {"type": "integer", "minimum": 0},
        "minLength": {"type": "integer", "minimum": 0},
        "pattern": {"type": "string", "format": "regex"},
        "additionalItems": {"anyOf": [{"type": "boolean"}, {"$ref": "#"}]},
        "items": {"anyOf": [{"$ref": "#"}, {"$ref": "#/definitions/schemaArray"}]},
        "maxItems": {"type": "integer", "minimum": 0},
        "minItems": {"type": "integer", "minimum": 0},
        "uniqueItems": {"type": "boolean"},
        "maxProperties": {"type": "integer", "minimum": 0},
        "minProperties": {"type": "integer", "minimum": 0},
        "required": {"$ref": "#/definitions/stringArray"},
        "additionalProperties": {"anyOf": [{"type": "boolean"}, {"$ref": "#"}]},
        "definitions": {"type": "object", "additionalProperties": {"$ref": "#"}},
        "properties": {"type": "object", "additionalProperties": {"$ref": "#"}},
        "patternProperties": {"type": "object", "additionalProperties": {"$ref": "#"}},
        "dependencies": {
            "type": "object",
            "additionalProperties": {"anyOf": [{"$ref": "#"}, {"$ref": "#/definitions/stringArray"}]}
        },
        "enum": {"type": "array", "minItems": 1},
        "type": {
            "anyOf": [
                {"$ref": "#/definitions/simpleTypes"},
                {
                    "type": "array",
                    "items": {"$ref": "#/definitions/simpleTypes"},
                    "minItems": 1,
                    "uniqueItems": true
                }
            ]
        },
        "format": {"type": "string"},
        "allOf": {"$ref": "#/definitions/schemaArray"},
        "anyOf": {"$ref": "#/definitions/schemaArray"},
        "oneOf": {"$ref": "#/definitions/schemaArray"},
        "not": {"$ref": "#"},
        "readonly": {"type": "boolean"},
        "fits_hdu": {"type": "string"},
        "fits_keyword": {"type": "string"},
        "ndim": {"type": "integer", "minimum": 0},
        "max_ndim": {"type": "integer", "minimum": 0},
        "datatype": {
            "anyOf": [
                {"type": "string"},
                {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {"type": "string"},
                            "datatype": {"type": "string"},
                            "shape": {"type": "array", "items": {"type": "integer"}}
                        },
                        "required": ["datatype"]
                    }
                }
            ]
        }
    }
}`

var (
	metaOnce     sync.Once
	metaCompiled *jsonschema.Schema
	metaErr      error
)

func compiledMeta() (*jsonschema.Schema, error) {
	metaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft4
		if err := c.AddResource("internal://schemas/meta", strings.NewReader(metaSchema)); err != nil {
			metaErr = err
			return
		}
		metaCompiled, metaErr = c.Compile("internal://schemas/meta")
	})
	return metaCompiled, metaErr
}

// validateMeta checks a decoded schema document against the meta-schema.
func validateMeta(tree any) error {
	m, err := compiledMeta()
	if err != nil {
		return err
	}
	inst, err := toJSONValue(tree)
	if err != nil {
		return err
	}
	return m.Validate(inst)
}

// instanceSchemas caches one compiled validator per schema node. Nodes are
// immutable after load, so the projection never goes stale.
var instanceSchemas sync.Map // *Node -> *jsonschema.Schema

// ValidateInstance checks a basic (JSON-compatible) value against the
// constraints a schema node carries. Array payloads never pass through
// here; the projection treats "data" fragments as opaque.
func ValidateInstance(n *Node, value any) error {
	compiled, err := instanceSchema(n)
	if err != nil {
		return dmerr.Wrap(dmerr.CodeSchemaInvalid, "", err, "schema fragment cannot be compiled for validation")
	}
	inst, err := toJSONValue(value)
	if err != nil {
		return dmerr.Wrap(dmerr.CodeValidation, "", err, "value is not representable as a document")
	}
	if err := compiled.Validate(inst); err != nil {
		return validationIssues(err)
	}
	return nil
}

func instanceSchema(n *Node) (*jsonschema.Schema, error) {
	if cached, ok := instanceSchemas.Load(n); ok {
		return cached.(*jsonschema.Schema), nil
	}
	projected := projectFragment(deepCopyValue(n.Raw()))
	text, err := json.Marshal(Plain(projected))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft4
	const id = "internal://fragment"
	if err := c.AddResource(id, strings.NewReader(string(text))); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(id)
	if err != nil {
		return nil, err
	}
	instanceSchemas.Store(n, compiled)
	return compiled, nil
}

// projectFragment rewrites a schema tree into plain draft-4: fragments
// typed "data" become accept-anything, "pickle" loses its type, and
// embedded $schema markers are dropped.
func projectFragment(tree any) any {
	obj, ok := tree.(*Obj)
	if !ok {
		if list, ok := tree.([]any); ok {
			for i, v := range list {
				list[i] = projectFragment(v)
			}
		}
		return tree
	}
	if t, ok := obj.Get("type"); ok {
		switch tv := t.(type) {
		case string:
			if tv == KindData {
				return NewObj()
			}
			if tv == KindPickle {
				obj.Delete("type")
			}
		case []any:
			kept := tv[:0]
			for _, alt := range tv {
				s, _ := alt.(string)
				if s == KindData {
					return NewObj()
				}
				if s != KindPickle {
					kept = append(kept, alt)
				}
			}
			if len(kept) == 0 {
				obj.Delete("type")
			} else {
				obj.Set("type", kept)
			}
		}
	}
	obj.Delete("$schema")
	obj.Delete("id")
	for _, k := range obj.Keys() {
		if k == "enum" || k == "default" {
			continue
		}
		v, _ := obj.Get(k)
		obj.Set(k, projectFragment(v))
	}
	return obj
}

// toJSONValue normalizes a value to the types the validator understands,
// with numbers carried as json.Number so integer checks stay exact.
func toJSONValue(v any) (any, error) {
	text, err := json.Marshal(Plain(v))
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(strings.NewReader(string(text)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func validationIssues(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return dmerr.Wrap(dmerr.CodeValidation, "", err, "validation failed")
	}
	var issues dmerr.Issues
	for _, leaf := range leafCauses(verr) {
		issues = append(issues, dmerr.Issue{
			Path:    pointerToDotted(leaf.InstanceLocation),
			Code:    dmerr.CodeValidation,
			Message: leaf.Message,
			Cause:   leaf,
		})
	}
	return issues
}

func leafCauses(v *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(v.Causes) == 0 {
		return []*jsonschema.ValidationError{v}
	}
	var out []*jsonschema.ValidationError
	for _, c := range v.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}

func pointerToDotted(ptr string) string {
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}
