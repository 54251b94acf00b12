package datamodel

import (
	"strings"

	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/schema"
	"github.com/obsforge/datamodel/storage"
)

// Item is one stored field produced by iteration.
type Item struct {
	Path  string
	Value any
}

// IterOpt tunes iteration.
type IterOpt struct {
	// IncludeArrays also yields array-valued fields.
	IncludeArrays bool
}

// Items returns every stored field in schema document order. Defaults that
// were never materialized do not appear.
func (m *Model) Items(opt IterOpt) []Item {
	var out []Item
	for _, d := range m.table.Descriptors() {
		if d.IsData() && !opt.IncludeArrays {
			continue
		}
		v, err := m.store.Get(d, storage.NoIndex)
		if err != nil {
			continue
		}
		out = append(out, Item{Path: d.DottedPath(), Value: v})
	}
	return out
}

// Keys returns the dotted paths of every stored field in document order.
func (m *Model) Keys(opt IterOpt) []string {
	items := m.Items(opt)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

// ToFlatMap renders the stored fields as a flat path-to-value map.
func (m *Model) ToFlatMap(opt IterOpt) map[string]any {
	out := map[string]any{}
	for _, it := range m.Items(opt) {
		out[it.Path] = it.Value
	}
	return out
}

// ToTree renders the stored scalar fields as a nested tree.
func (m *Model) ToTree() map[string]any {
	out := map[string]any{}
	for _, d := range m.table.Descriptors() {
		if d.IsData() {
			continue
		}
		v, err := m.store.Get(d, storage.NoIndex)
		if err != nil {
			continue
		}
		schema.PutValue(out, d.Path, v)
	}
	return out
}

// Update copies every stored scalar from another model into this one,
// overwriting matching fields. Captured extra-record fields bring their
// schema entry along. Other paths this model's schema neither declares nor
// permits are skipped, as are array payloads.
func (m *Model) Update(other *Model) error {
	for _, it := range other.Items(IterOpt{}) {
		d, err := m.table.Resolve(it.Path)
		if err != nil {
			if !strings.HasPrefix(it.Path, extraFitsPrefix+".") {
				continue
			}
			od, ok := other.table.Lookup(it.Path)
			if !ok || od.Schema == nil {
				continue
			}
			if aerr := m.AddSchemaEntry(it.Path, od.Schema); aerr != nil {
				return aerr
			}
			if d, err = m.table.Resolve(it.Path); err != nil {
				continue
			}
		}
		if d.ReadOnly {
			continue
		}
		if err := m.Set(it.Path, it.Value); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a deep copy. The copy never aliases the original: arrays,
// headers and tree values are all duplicated, and closing one model leaves
// the other intact.
func (m *Model) Copy() *Model {
	out := &Model{
		node:      m.node,
		table:     m.table,
		loader:    m.loader,
		shapeHint: append([]int(nil), m.shapeHint...),
		primary:   m.primary,
		ownsStore: true,
	}
	out.store = copyStorage(m.store)
	return out
}

// ShareStorage returns a model over the same backend, typically to view the
// data through a different schema. The returned model does not own the
// backend; closing it is a no-op.
func (m *Model) ShareStorage(schemaURL string) (*Model, error) {
	shared, err := FromStorage(m.store, schemaURL, &Options{Loader: m.loader})
	if err != nil {
		return nil, err
	}
	shared.ownsStore = false
	return shared, nil
}

func copyStorage(s storage.Storage) storage.Storage {
	switch t := s.(type) {
	case *fits.Storage:
		dup := fits.FromList(t.List().Copy())
		for k, v := range deepCopyTree(t.Tree()) {
			dup.Tree()[k] = v
		}
		return dup
	case *storage.Tree:
		return storage.NewTree(deepCopyTree(t.Tree()))
	default:
		return storage.NewTree(nil)
	}
}

func deepCopyTree(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopyTreeValue(v)
	}
	return out
}

func deepCopyTreeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyTree(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopyTreeValue(x)
		}
		return out
	case *ndarray.Array:
		return t.Copy()
	default:
		return v
	}
}
