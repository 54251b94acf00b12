package datamodel

import (
	"sort"
	"strings"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/hdu"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/schema"
)

// ExtendSchema layers a schema fragment onto the model's schema. A
// non-empty position nests the fragment at that dotted path. The combined
// schema must still accept every stored value; on failure the model keeps
// its previous schema.
func (m *Model) ExtendSchema(fragment any, position string) error {
	frag, err := m.compileFragment(fragment)
	if err != nil {
		return err
	}
	if position != "" {
		frag = schema.Nested(position, frag)
	}
	newRoot := schema.Extend(m.node, frag)
	newTable, err := property.Compile(newRoot)
	if err != nil {
		return err
	}
	oldRoot, oldTable := m.node, m.table
	m.node, m.table = newRoot, newTable
	if err := m.Validate(); err != nil {
		m.node, m.table = oldRoot, oldTable
		return dmerr.Wrap(dmerr.CodeValidation, position, err, "stored values do not satisfy the extended schema")
	}
	return nil
}

// AddSchemaEntry declares one new field at a dotted position.
func (m *Model) AddSchemaEntry(position string, fragment any) error {
	if position == "" {
		return dmerr.New(dmerr.CodeSchemaInvalid, "", "a schema entry needs a position")
	}
	return m.ExtendSchema(fragment, position)
}

func (m *Model) compileFragment(fragment any) (*schema.Node, error) {
	switch t := fragment.(type) {
	case *schema.Node:
		return t, nil
	case []byte:
		tree, err := schema.DecodeDocument(t)
		if err != nil {
			return nil, dmerr.Wrap(dmerr.CodeSchemaInvalid, "", err, "fragment does not parse")
		}
		return m.loader.Compile(tree, "")
	case string:
		return m.compileFragment([]byte(t))
	default:
		return m.loader.Compile(fragment, "")
	}
}

// FindKeyword returns the dotted paths of every field stored under a
// container keyword.
func (m *Model) FindKeyword(keyword string) []string {
	return schema.FindKeyword(m.node, keyword)
}

// SearchSchema finds schema entries whose path or documentation mentions a
// substring, case-insensitively.
func (m *Model) SearchSchema(substring string) []schema.Match {
	return schema.Search(m.node, substring)
}

// GetFitsHeader builds the header of the named record from the model's
// current values. Fields the schema maps to the record but which hold no
// value appear with the absent-value sentinel.
func (m *Model) GetFitsHeader(hduName string) *hdu.Header {
	elems := schema.ElementsForHDU(m.node, hduName)
	h := &hdu.Header{}
	for _, d := range m.table.Descriptors() {
		keyword, ok := elems[d.DottedPath()]
		if !ok {
			continue
		}
		v, err := m.Get(d.DottedPath())
		if err != nil || v == nil {
			h.Set(keyword, hdu.Missing, d.ShortDoc())
			continue
		}
		if basic, cerr := d.Cast(v); cerr == nil {
			v = basic
		}
		h.Set(keyword, v, d.ShortDoc())
	}
	return h
}

// extraFitsPrefix is the subtree unmodeled container cards are preserved
// under.
const extraFitsPrefix = "_extra_fits"

// adoptExtraCards extends the schema with the container cards no field
// claims and stores them under _extra_fits.<record>.header, so they
// survive schema-driven round trips.
func (m *Model) adoptExtraCards(fs *fits.Storage) error {
	claimed := map[string]bool{}
	for _, d := range m.table.Descriptors() {
		if d.FITSKeyword == "" {
			continue
		}
		name := d.FITSHDU
		if name == "" {
			name = fits.PrimaryName
		}
		claimed[strings.ToUpper(name)+"/"+strings.ToUpper(d.FITSKeyword)] = true
	}
	extras := fs.ExtraCards(func(hduName, keyword string) bool {
		return claimed[strings.ToUpper(hduName)+"/"+strings.ToUpper(keyword)]
	})
	if len(extras) == 0 {
		return nil
	}
	names := make([]string, 0, len(extras))
	for name := range extras {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cards := extras[name]
		frag := schema.NewObj()
		frag.Set("type", "array")
		node, err := m.loader.Compile(frag, "")
		if err != nil {
			return err
		}
		position := extraFitsPrefix + "." + name + ".header"
		if err := m.ExtendSchema(node, position); err != nil {
			return err
		}
		values := make([]any, len(cards))
		for i, c := range cards {
			values[i] = []any{c.Name, c.Value, c.Comment}
		}
		if err := m.Set(position, values); err != nil {
			return err
		}
	}
	return nil
}
