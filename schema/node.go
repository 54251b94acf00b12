// Package schema loads, resolves and compiles the declarative field schemas
// that drive the datamodel engine.
//
// The vocabulary is draft-4 JSON Schema extended with two domain leaf kinds
// (`data` for numeric arrays, `pickle` for opaque blobs) and the physical
// location attributes fits_hdu / fits_keyword / ndim / max_ndim / datatype.
package schema

import (
	"fmt"
	"strings"
)

// Field kinds, as spelled in schema documents.
const (
	KindObject  = "object"
	KindArray   = "array"
	KindString  = "string"
	KindNumber  = "number"
	KindInteger = "integer"
	KindBoolean = "boolean"
	KindNull    = "null"
	KindData    = "data"
	KindPickle  = "pickle"
)

// Node is one compiled schema fragment. Nodes form a tree; object nodes own
// named children in document order, array nodes own one item schema or a
// positional list of them. The raw fragment is retained so the external
// validator sees exactly what the document said.
type Node struct {
	Kind        string   // primary type, "" when unset
	Types       []string // populated when "type" was a list
	Title       string
	Description string
	Default     any
	HasDefault  bool
	Format      string
	ReadOnly    bool

	Properties []Property
	AddlProps  *bool // nil when unset (permitted)
	Items      *Node
	TupleItems []*Node
	AllOf      []*Node
	AnyOf      []*Node

	// Physical-location hints and array constraints.
	FITSHDU     string
	FITSKeyword string
	Datatype    any // raw datatype spec, see ndarray.ParseDType
	NDim        int // 0 = unconstrained
	MaxNDim     int

	raw *Obj // original fragment, refs resolved
}

// Property is a named child of an object node.
type Property struct {
	Name string
	Node *Node
}

// ParseFragment compiles a decoded ordered tree into a Node.
func ParseFragment(v any) (*Node, error) {
	obj, ok := v.(*Obj)
	if !ok {
		return nil, fmt.Errorf("schema fragment must be a mapping, got %T", v)
	}
	return parseNode(obj)
}

func parseNode(o *Obj) (*Node, error) {
	n := &Node{raw: o}
	for _, key := range o.Keys() {
		val, _ := o.Get(key)
		var err error
		switch key {
		case "type":
			switch t := val.(type) {
			case string:
				n.Kind = t
			case []any:
				for _, x := range t {
					s, ok := x.(string)
					if !ok {
						return nil, fmt.Errorf("type list must hold strings")
					}
					n.Types = append(n.Types, s)
				}
				if len(n.Types) > 0 {
					n.Kind = n.Types[0]
				}
			default:
				return nil, fmt.Errorf("invalid type attribute %T", val)
			}
		case "title":
			n.Title, _ = val.(string)
		case "description":
			n.Description, _ = val.(string)
		case "default":
			n.Default = Plain(val)
			n.HasDefault = true
		case "format":
			n.Format, _ = val.(string)
		case "readonly":
			n.ReadOnly, _ = val.(bool)
		case "properties":
			props, ok := val.(*Obj)
			if !ok {
				return nil, fmt.Errorf("properties must be a mapping")
			}
			for _, name := range props.Keys() {
				sub, _ := props.Get(name)
				child, err := ParseFragment(sub)
				if err != nil {
					return nil, fmt.Errorf("property %q: %w", name, err)
				}
				n.Properties = append(n.Properties, Property{Name: name, Node: child})
			}
		case "additionalProperties":
			if b, ok := val.(bool); ok {
				n.AddlProps = &b
			}
		case "items":
			switch t := val.(type) {
			case *Obj:
				n.Items, err = parseNode(t)
			case []any:
				for i, x := range t {
					sub, perr := ParseFragment(x)
					if perr != nil {
						return nil, fmt.Errorf("items[%d]: %w", i, perr)
					}
					n.TupleItems = append(n.TupleItems, sub)
				}
			default:
				return nil, fmt.Errorf("invalid items attribute %T", val)
			}
		case "allOf":
			n.AllOf, err = parseNodeList(val, "allOf")
		case "anyOf":
			n.AnyOf, err = parseNodeList(val, "anyOf")
		case "fits_hdu":
			switch t := val.(type) {
			case string:
				n.FITSHDU = t
			case int64:
				if t == 0 {
					n.FITSHDU = "PRIMARY"
				} else {
					return nil, fmt.Errorf("numeric fits_hdu must be 0")
				}
			}
		case "fits_keyword":
			n.FITSKeyword, _ = val.(string)
		case "datatype":
			n.Datatype = Plain(val)
		case "ndim":
			n.NDim = asInt(val)
		case "max_ndim":
			n.MaxNDim = asInt(val)
		}
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func parseNodeList(val any, attr string) ([]*Node, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", attr)
	}
	out := make([]*Node, 0, len(list))
	for i, x := range list {
		sub, err := ParseFragment(x)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", attr, i, err)
		}
		out = append(out, sub)
	}
	return out, nil
}

func asInt(v any) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	}
	return 0
}

// Raw exposes the underlying ordered fragment.
func (n *Node) Raw() *Obj { return n.raw }

// IsObjectLike reports whether the node owns named children, directly or
// through combinators.
func (n *Node) IsObjectLike() bool {
	return n.Kind == KindObject || len(n.AllOf) > 0 || len(n.AnyOf) > 0
}

// PropertyNode finds the child schema for a named property, descending into
// allOf/anyOf branches. Returns nil when no branch declares the name.
func (n *Node) PropertyNode(name string) *Node {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node
		}
	}
	for _, branch := range n.AllOf {
		if sub := branch.PropertyNode(name); sub != nil {
			return sub
		}
	}
	for _, branch := range n.AnyOf {
		if sub := branch.PropertyNode(name); sub != nil {
			return sub
		}
	}
	return nil
}

// ItemNode returns the item schema for index i: the positional schema for
// tuple-like arrays, the homogeneous item schema otherwise. Returns nil for
// out-of-range positional indices and undeclared items.
func (n *Node) ItemNode(i int) *Node {
	if len(n.TupleItems) > 0 {
		if i < len(n.TupleItems) {
			return n.TupleItems[i]
		}
		return nil
	}
	return n.Items
}

// AllowsAdditional reports whether ad-hoc children are permitted beneath an
// object node. Unset means permitted.
func (n *Node) AllowsAdditional() bool {
	if n.AddlProps != nil && !*n.AddlProps {
		return false
	}
	for _, branch := range n.AllOf {
		if !branch.AllowsAdditional() {
			return false
		}
	}
	return true
}

// Walk visits every schema location depth-first, expanding combinators the
// way the engine does (allOf/anyOf branches share their parent's path).
func Walk(n *Node, fn func(n *Node, path string)) {
	walk(n, nil, fn)
}

func walk(n *Node, path []string, fn func(n *Node, path string)) {
	if len(n.AllOf)+len(n.AnyOf) > 0 {
		for _, b := range n.AllOf {
			walk(b, path, fn)
		}
		for _, b := range n.AnyOf {
			walk(b, path, fn)
		}
		return
	}
	fn(n, strings.Join(path, "."))
	for _, p := range n.Properties {
		walk(p.Node, append(path, p.Name), fn)
	}
}

// ElementsForHDU maps the dot-separated paths of fields placed in the named
// record to the header keywords they claim.
func ElementsForHDU(n *Node, hduName string) map[string]string {
	out := map[string]string{}
	Walk(n, func(sub *Node, path string) {
		hdu := sub.FITSHDU
		if hdu == "" {
			hdu = "PRIMARY"
		}
		if hdu == hduName && sub.FITSKeyword != "" {
			out[path] = sub.FITSKeyword
		}
	})
	return out
}

// FindKeyword lists the schema paths that bind the given header keyword.
func FindKeyword(n *Node, keyword string) []string {
	var paths []string
	Walk(n, func(sub *Node, path string) {
		if strings.HasPrefix(path, "_extra_fits") {
			return
		}
		if sub.FITSKeyword == keyword {
			paths = append(paths, path)
		}
	})
	return paths
}

// Match is one Search hit.
type Match struct {
	Path        string
	Description string
}

// Search scans titles, descriptions and paths for a substring,
// case-insensitively.
func Search(n *Node, substring string) []Match {
	substring = strings.ToLower(substring)
	var out []Match
	Walk(n, func(sub *Node, path string) {
		hit := strings.Contains(strings.ToLower(sub.Title), substring) ||
			strings.Contains(strings.ToLower(sub.Description), substring) ||
			strings.Contains(strings.ToLower(path), substring)
		if !hit {
			return
		}
		desc := strings.TrimSpace(sub.Title)
		if sub.Description != "" {
			if desc != "" {
				desc += "\n\n"
			}
			desc += sub.Description
		}
		out = append(out, Match{Path: path, Description: desc})
	})
	return out
}

// ShortDoc returns the first line of the node's documentation, used for
// record comments.
func (n *Node) ShortDoc() string {
	doc := n.Title
	if doc == "" {
		doc = n.Description
	}
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		doc = doc[:i]
	}
	return doc
}
