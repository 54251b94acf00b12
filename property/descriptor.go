// Package property compiles a schema tree into a flat table of field
// descriptors and applies the conversion rules that sit between user values
// and storage: gentle casting of arrays, format codecs for scalars, default
// synthesis and read-only enforcement.
package property

import (
	"strings"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/schema"
)

// Descriptor is the compiled view of one addressable field.
type Descriptor struct {
	Name string   // final path segment
	Path []string // full path from the tree root

	Schema      *schema.Node
	Kind        string
	ReadOnly    bool
	Default     any
	HasDefault  bool
	Format      string
	Title       string
	Description string

	// Array constraints, meaningful when Kind is "data".
	DType    ndarray.DType
	HasDType bool
	NDim     int
	MaxNDim  int

	// Physical placement hints for container backends.
	FITSHDU     string
	FITSKeyword string

	// AdHoc marks a descriptor fabricated for a path the schema does not
	// model. Ad-hoc fields skip validation and casting.
	AdHoc bool

	// union holds every schema fragment declaring this path. Combinator
	// branches each contribute one; values must satisfy all of them.
	union []*schema.Node
}

// DottedPath renders the full path as "meta.observation.date".
func (d *Descriptor) DottedPath() string { return strings.Join(d.Path, ".") }

// IsData reports whether the field holds an n-dimensional array payload.
func (d *Descriptor) IsData() bool { return d.Kind == schema.KindData }

// ShortDoc returns the first line of title or description.
func (d *Descriptor) ShortDoc() string {
	doc := d.Title
	if doc == "" {
		doc = d.Description
	}
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		doc = doc[:i]
	}
	return doc
}

// Table is an ordered index of descriptors, one per schema leaf.
type Table struct {
	root   *schema.Node
	byPath map[string]*Descriptor
	order  []string
}

// Compile flattens a schema tree into a descriptor table. Leaves appear in
// document order; combinator branches contribute their leaves at the parent
// path.
func Compile(root *schema.Node) (*Table, error) {
	t := &Table{root: root, byPath: map[string]*Descriptor{}}
	var firstErr error
	schema.Walk(root, func(n *schema.Node, path string) {
		if path == "" || n.IsObjectLike() {
			return
		}
		d, err := describe(n, path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if prev, seen := t.byPath[path]; seen {
			d = prev.merge(d)
		} else {
			t.order = append(t.order, path)
		}
		t.byPath[path] = d
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return t, nil
}

func describe(n *schema.Node, path string) (*Descriptor, error) {
	parts := strings.Split(path, ".")
	d := &Descriptor{
		Name:        parts[len(parts)-1],
		Path:        parts,
		Schema:      n,
		Kind:        n.Kind,
		ReadOnly:    n.ReadOnly,
		Default:     n.Default,
		HasDefault:  n.HasDefault,
		Format:      n.Format,
		Title:       n.Title,
		Description: n.Description,
		NDim:        n.NDim,
		MaxNDim:     n.MaxNDim,
		FITSHDU:     n.FITSHDU,
		FITSKeyword: n.FITSKeyword,
	}
	if n.Datatype != nil {
		dt, err := ndarray.ParseDType(n.Datatype)
		if err != nil {
			return nil, dmerr.Wrap(dmerr.CodeSchemaInvalid, path, err, "bad datatype")
		}
		d.DType = dt
		d.HasDType = true
	}
	d.union = []*schema.Node{n}
	return d, nil
}

// merge layers a later combinator branch over an earlier descriptor for
// the same path. Attributes the later branch states win; everything it
// leaves unsaid carries over. Both fragments keep validating values.
func (d *Descriptor) merge(next *Descriptor) *Descriptor {
	out := *next
	out.union = append(append([]*schema.Node(nil), d.union...), next.union...)
	out.ReadOnly = d.ReadOnly || next.ReadOnly
	if !next.HasDefault {
		out.Default, out.HasDefault = d.Default, d.HasDefault
	}
	if !next.HasDType {
		out.DType, out.HasDType = d.DType, d.HasDType
	}
	if next.Kind == "" {
		out.Kind = d.Kind
	}
	if next.Format == "" {
		out.Format = d.Format
	}
	if next.Title == "" {
		out.Title = d.Title
	}
	if next.Description == "" {
		out.Description = d.Description
	}
	if next.NDim == 0 {
		out.NDim = d.NDim
	}
	if next.MaxNDim == 0 {
		out.MaxNDim = d.MaxNDim
	}
	if next.FITSHDU == "" {
		out.FITSHDU = d.FITSHDU
	}
	if next.FITSKeyword == "" {
		out.FITSKeyword = d.FITSKeyword
	}
	return &out
}

// validators returns every schema fragment a value for this field must
// satisfy.
func (d *Descriptor) validators() []*schema.Node {
	if len(d.union) > 0 {
		return d.union
	}
	if d.Schema != nil {
		return []*schema.Node{d.Schema}
	}
	return nil
}

// Root returns the schema tree the table was compiled from.
func (t *Table) Root() *schema.Node { return t.root }

// Lookup finds the descriptor for a dotted path. Paths the schema does not
// model get nothing; callers decide whether ad-hoc access is allowed.
func (t *Table) Lookup(path string) (*Descriptor, bool) {
	d, ok := t.byPath[path]
	return d, ok
}

// Resolve returns the descriptor for a path, fabricating an ad-hoc one when
// the schema permits additional properties along the way.
func (t *Table) Resolve(path string) (*Descriptor, error) {
	if d, ok := t.byPath[path]; ok {
		return d, nil
	}
	parts := strings.Split(path, ".")
	node := t.root
	for _, part := range parts {
		if node == nil {
			break
		}
		child := node.PropertyNode(part)
		if child == nil {
			if !node.AllowsAdditional() {
				return nil, dmerr.New(dmerr.CodeNoSuchField, path, "schema does not define %q and forbids additions", path)
			}
			return &Descriptor{
				Name:  parts[len(parts)-1],
				Path:  parts,
				AdHoc: true,
			}, nil
		}
		node = child
	}
	if node == nil || node.IsObjectLike() {
		return nil, dmerr.New(dmerr.CodeNoSuchField, path, "%q does not address a leaf field", path)
	}
	return describe(node, path)
}

// Item returns the descriptor governing the elements of a list field.
func (t *Table) Item(path string) (*Descriptor, error) {
	d, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	if d.Schema == nil || d.Schema.Items == nil {
		return nil, dmerr.New(dmerr.CodeNoSuchField, path, "%q is not a list field", path)
	}
	return describe(d.Schema.Items, path)
}

// Descriptors returns all compiled descriptors in document order.
func (t *Table) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.byPath[p])
	}
	return out
}

// DataNames returns the names of top-level array-valued fields in document
// order.
func (t *Table) DataNames() []string {
	var names []string
	for _, p := range t.order {
		d := t.byPath[p]
		if d.IsData() && len(d.Path) == 1 {
			names = append(names, d.Name)
		}
	}
	return names
}
