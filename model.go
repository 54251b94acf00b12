package datamodel

import (
	"time"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/schema"
	"github.com/obsforge/datamodel/storage"
)

// Built-in schema identifiers.
const (
	CoreSchema  = "internal://schemas/core.schema.yaml"
	ImageSchema = "internal://schemas/image.schema.yaml"
	MaskSchema  = "internal://schemas/mask.schema.yaml"
	RampSchema  = "internal://schemas/ramp.schema.yaml"
)

// Options tune model construction. The zero value is usable.
type Options struct {
	// Loader resolves schema references. Defaults to the process-wide
	// loader with its shared cache.
	Loader *schema.Loader

	// Shape seeds default synthesis for array fields before a primary
	// array exists.
	Shape []int

	// PrimaryArray overrides the name of the primary array. Defaults to
	// the first array field the schema declares.
	PrimaryArray string
}

func (o *Options) loader() *schema.Loader {
	if o != nil && o.Loader != nil {
		return o.Loader
	}
	return schema.DefaultLoader
}

// Model binds a compiled schema to a storage backend.
type Model struct {
	node  *schema.Node
	table *property.Table
	store storage.Storage

	loader    *schema.Loader
	shapeHint []int
	primary   string
	ownsStore bool
}

// New creates an empty in-memory model for a schema.
func New(schemaURL string, opts *Options) (*Model, error) {
	return FromStorage(storage.NewTree(nil), schemaURL, opts)
}

// FromShape creates an in-memory model whose array fields default to the
// given shape.
func FromShape(schemaURL string, shape []int, opts *Options) (*Model, error) {
	o := &Options{Shape: shape}
	if opts != nil {
		o.Loader = opts.Loader
		o.PrimaryArray = opts.PrimaryArray
	}
	return New(schemaURL, o)
}

// FromArray creates an in-memory model around an existing primary array.
func FromArray(schemaURL string, arr *ndarray.Array, opts *Options) (*Model, error) {
	m, err := New(schemaURL, opts)
	if err != nil {
		return nil, err
	}
	if m.primary == "" {
		m.Close()
		return nil, dmerr.New(dmerr.CodeSchemaInvalid, "", "schema %s declares no array fields", schemaURL)
	}
	if err := m.Set(m.primary, arr); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Open reads a model from a container file.
func Open(path, schemaURL string, opts *Options) (*Model, error) {
	fs, err := fits.Open(path)
	if err != nil {
		return nil, err
	}
	if err := fs.LoadMetadata(); err != nil {
		fs.Close()
		return nil, err
	}
	m, err := FromStorage(fs, schemaURL, opts)
	if err != nil {
		fs.Close()
		return nil, err
	}
	if err := m.adoptExtraCards(fs); err != nil {
		fs.Close()
		return nil, err
	}
	return m, nil
}

// FromStorage binds a schema to an existing backend. The model takes
// ownership: Close closes the backend.
func FromStorage(store storage.Storage, schemaURL string, opts *Options) (*Model, error) {
	loader := opts.loader()
	node, err := loader.Load(schemaURL, "")
	if err != nil {
		return nil, err
	}
	table, err := property.Compile(node)
	if err != nil {
		return nil, err
	}
	m := &Model{
		node:      node,
		table:     table,
		store:     store,
		loader:    loader,
		ownsStore: true,
	}
	if opts != nil {
		m.shapeHint = append([]int(nil), opts.Shape...)
		m.primary = opts.PrimaryArray
	}
	if m.primary == "" {
		if names := table.DataNames(); len(names) > 0 {
			m.primary = names[0]
		}
	}
	return m, nil
}

// Schema returns the compiled schema tree.
func (m *Model) Schema() *schema.Node { return m.node }

// Storage returns the backend the model reads and writes through.
func (m *Model) Storage() storage.Storage { return m.store }

// Close releases the backend, unless this model shares it with the model
// it was derived from.
func (m *Model) Close() error {
	if !m.ownsStore {
		return nil
	}
	return m.store.Close()
}

// PrimaryArrayName names the array whose shape seeds default synthesis.
func (m *Model) PrimaryArrayName() string { return m.primary }

// Shape returns the shape of the primary array, the construction shape
// hint, or the backend's own notion of its payload shape.
func (m *Model) Shape() []int {
	if m.primary != "" {
		if d, ok := m.table.Lookup(m.primary); ok {
			if v, err := m.store.Get(d, storage.NoIndex); err == nil {
				if arr, ok := v.(*ndarray.Array); ok {
					return arr.Shape()
				}
			}
		}
	}
	if m.shapeHint != nil {
		return m.shapeHint
	}
	return m.store.Shape()
}

// Get reads a field by dotted path. When nothing is stored, the field's
// default is synthesized, stored and returned, so repeated reads observe
// the same value; scalar fields without a declared default read as nil.
func (m *Model) Get(path string) (any, error) {
	d, err := m.table.Resolve(path)
	if err != nil {
		return nil, err
	}
	v, err := m.store.Get(d, storage.NoIndex)
	if err == nil {
		return d.Decode(v)
	}
	if !dmerr.IsMissing(err) {
		return nil, err
	}
	def, derr := d.SynthesizeDefault(m)
	if derr != nil {
		return nil, derr
	}
	if def == nil {
		return nil, nil
	}
	if serr := m.store.Set(d, storage.NoIndex, def); serr != nil {
		return nil, serr
	}
	return d.Decode(def)
}

// GetArray reads an array field.
func (m *Model) GetArray(path string) (*ndarray.Array, error) {
	v, err := m.Get(path)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*ndarray.Array)
	if !ok {
		return nil, dmerr.New(dmerr.CodeValidation, path, "%s does not hold an array", path)
	}
	return arr, nil
}

// GetString reads a string field, returning "" when absent.
func (m *Model) GetString(path string) (string, error) {
	v, err := m.Get(path)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// Set writes a field by dotted path. The value is cast and validated
// first; on failure nothing is stored and any previous value survives.
func (m *Model) Set(path string, v any) error {
	d, err := m.table.Resolve(path)
	if err != nil {
		return err
	}
	if d.ReadOnly {
		return dmerr.New(dmerr.CodeReadOnly, path, "%s is read-only", path)
	}
	cast, err := d.Cast(v)
	if err != nil {
		return err
	}
	return m.store.Set(d, storage.NoIndex, cast)
}

// Delete removes a stored field. A subsequent Get resynthesizes the
// default.
func (m *Model) Delete(path string) error {
	d, err := m.table.Resolve(path)
	if err != nil {
		return err
	}
	if d.ReadOnly {
		return dmerr.New(dmerr.CodeReadOnly, path, "%s is read-only", path)
	}
	if err := m.store.Delete(d, storage.NoIndex); err != nil {
		if dmerr.IsMissing(err) {
			return dmerr.New(dmerr.CodeNoSuchField, path, "nothing stored for %s", path)
		}
		return err
	}
	return nil
}

// Exists reports whether a field has a stored value. Defaults do not
// count until a Get materializes them.
func (m *Model) Exists(path string) bool {
	d, err := m.table.Resolve(path)
	if err != nil {
		return false
	}
	return m.store.Exists(d, storage.NoIndex)
}

// Validate re-checks every stored scalar against the schema.
func (m *Model) Validate() error {
	var issues dmerr.Issues
	for _, d := range m.table.Descriptors() {
		if d.IsData() {
			continue
		}
		v, err := m.store.Get(d, storage.NoIndex)
		if err != nil {
			continue
		}
		if _, err := d.Cast(v); err != nil {
			if sub, ok := dmerr.AsIssues(err); ok {
				issues = append(issues, sub...)
			} else {
				issues = append(issues, dmerr.Issue{
					Path: d.DottedPath(), Code: dmerr.CodeValidation, Message: err.Error(), Cause: err,
				})
			}
		}
	}
	if len(issues) > 0 {
		return issues
	}
	return nil
}

// AddHistory appends one line to the model's history. History accumulates;
// nothing ever overwrites earlier lines.
func (m *Model) AddHistory(line string) {
	if fs, ok := m.store.(*fits.Storage); ok {
		fs.AddHistory(line)
		return
	}
	tree := m.treeStore().Tree()
	lines, _ := tree["history"].([]any)
	tree["history"] = append(lines, line)
}

// History returns the accumulated history lines in order.
func (m *Model) History() []string {
	if fs, ok := m.store.(*fits.Storage); ok {
		return fs.History()
	}
	var out []string
	if lines, ok := m.treeStore().Tree()["history"].([]any); ok {
		for _, l := range lines {
			if s, ok := l.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (m *Model) treeStore() *storage.Tree {
	if t, ok := m.store.(*storage.Tree); ok {
		return t
	}
	if fs, ok := m.store.(*fits.Storage); ok {
		return storage.NewTree(fs.Tree())
	}
	return storage.NewTree(nil)
}

// Save writes the model to a container file, stamping the creation date on
// first save and flushing unplaced metadata through the side channel.
// Re-saving an unchanged model reproduces the file byte for byte.
func (m *Model) Save(path string) error {
	if _, ok := m.table.Lookup("meta.date"); ok && !m.Exists("meta.date") {
		if err := m.Set("meta.date", time.Now().UTC()); err != nil {
			return err
		}
	}
	fs, err := m.containerStorage()
	if err != nil {
		return err
	}
	if err := fs.SaveMetadata(); err != nil {
		return err
	}
	return fs.WriteFile(path)
}

// containerStorage returns the backing container, building one from an
// in-memory tree when needed. Ad-hoc values the schema does not place ride
// along in the container's fallback tree.
func (m *Model) containerStorage() (*fits.Storage, error) {
	if fs, ok := m.store.(*fits.Storage); ok {
		return fs, nil
	}
	fs := fits.NewStorage()
	schema.MergeTree(fs.Tree(), m.treeStore().Tree())
	delete(fs.Tree(), "history")
	fsTree := storage.NewTree(fs.Tree())
	for _, d := range m.table.Descriptors() {
		v, err := m.store.Get(d, storage.NoIndex)
		if err != nil {
			continue
		}
		fsTree.Delete(d, storage.NoIndex)
		if err := fs.Set(d, storage.NoIndex, v); err != nil {
			return nil, err
		}
	}
	for _, line := range m.History() {
		fs.AddHistory(line)
	}
	return fs, nil
}
