// Package fits is the container-backed storage backend. Values live in the
// record container according to the schema's placement hints: scalar fields
// become header cards of the named record, array fields become record
// payloads, and everything without a placement hint falls back to an
// in-memory tree that is persisted through the metadata side channel.
package fits

import (
	"io"
	"strings"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/hdu"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/storage"
)

// PrimaryName is the record every container starts with. It carries the
// global header; it never carries an array payload.
const PrimaryName = "PRIMARY"

// Storage keeps a model inside a record container.
type Storage struct {
	list *hdu.List
	tree *storage.Tree
	path string
}

// NewStorage returns an empty container with a primary record.
func NewStorage() *Storage {
	return &Storage{
		list: hdu.NewList(hdu.NewHDU(PrimaryName, 0)),
		tree: storage.NewTree(nil),
	}
}

// FromList wraps an existing record list.
func FromList(l *hdu.List) *Storage {
	s := &Storage{list: l, tree: storage.NewTree(nil)}
	s.Primary()
	return s
}

// Open reads a container file.
func Open(path string) (*Storage, error) {
	list, err := hdu.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := FromList(list)
	s.path = path
	return s, nil
}

// Path returns the file the container was opened from, if any.
func (s *Storage) Path() string { return s.path }

// List exposes the underlying records.
func (s *Storage) List() *hdu.List { return s.list }

// Tree exposes the fallback tree for values without a container placement.
func (s *Storage) Tree() map[string]any { return s.tree.Tree() }

// Primary returns the primary record, creating it when absent.
func (s *Storage) Primary() *hdu.HDU {
	if h, ok := s.list.Lookup(PrimaryName, 0); ok {
		return h
	}
	h := hdu.NewHDU(PrimaryName, 0)
	s.list.Insert(0, h)
	return h
}

// Write serializes the container.
func (s *Storage) Write(w io.Writer) error { return s.list.Write(w) }

// WriteFile serializes the container to a path.
func (s *Storage) WriteFile(path string) error { return s.list.WriteFile(path) }

func (s *Storage) Close() error { return s.tree.Close() }

// Shape reports the shape of the first image payload, which is the primary
// array for every container written by this engine.
func (s *Storage) Shape() []int {
	for _, h := range s.list.All() {
		if h.Kind == hdu.KindImage && h.Data != nil {
			return h.Data.Shape()
		}
	}
	return nil
}

// placement classifies where a descriptor's value lives.
type placement int

const (
	inTree placement = iota
	inHeader
	inPayload
)

func place(d *property.Descriptor) (placement, string) {
	if d.IsData() && d.FITSHDU != "" {
		return inPayload, d.FITSHDU
	}
	if d.FITSKeyword != "" {
		name := d.FITSHDU
		if name == "" {
			name = PrimaryName
		}
		return inHeader, name
	}
	return inTree, ""
}

// lookupHDU resolves a record for an access. A non-negative index selects
// the repetition with version index+1; index 0 additionally matches an
// unversioned record so a single unnumbered repetition reads as a
// one-element list.
func (s *Storage) lookupHDU(name string, index int) (*hdu.HDU, bool) {
	if index == storage.NoIndex {
		return s.list.Lookup(name, 0)
	}
	if h, ok := s.list.Lookup(name, index+1); ok {
		return h, true
	}
	if index == 0 {
		for _, h := range s.list.All() {
			if strings.EqualFold(h.Name, name) && h.Ver == 0 {
				return h, true
			}
		}
	}
	return nil, false
}

func (s *Storage) Exists(d *property.Descriptor, index int) bool {
	_, err := s.Get(d, index)
	return err == nil
}

func (s *Storage) Get(d *property.Descriptor, index int) (any, error) {
	kind, name := place(d)
	switch kind {
	case inTree:
		return s.tree.Get(d, index)
	case inHeader:
		h, ok := s.lookupHDU(name, index)
		if !ok {
			return nil, missing(d)
		}
		v, ok := h.Header.Get(d.FITSKeyword)
		if !ok {
			return nil, missing(d)
		}
		return v, nil
	default:
		h, ok := s.lookupHDU(name, index)
		if !ok || h.Data == nil {
			// The first repetition of an indexed data record is assumed to
			// exist; its absence is structural, not an unset optional.
			if index == 0 {
				return nil, dmerr.New(dmerr.CodeMissingPrimaryRecord, d.DottedPath(),
					"container has no %q record for %s", name, d.DottedPath())
			}
			return nil, missing(d)
		}
		return h.Data, nil
	}
}

func (s *Storage) Set(d *property.Descriptor, index int, v any) error {
	kind, name := place(d)
	switch kind {
	case inTree:
		return s.tree.Set(d, index, v)
	case inHeader:
		h := s.ensureHDU(name, index)
		if h.Header.Has(d.FITSKeyword) {
			h.Header.Set(d.FITSKeyword, v, "")
		} else {
			h.Header.Set(d.FITSKeyword, v, d.ShortDoc())
		}
		return nil
	default:
		return s.setPayload(d, name, index, v)
	}
}

func (s *Storage) setPayload(d *property.Descriptor, name string, index int, v any) error {
	if strings.EqualFold(name, PrimaryName) {
		return dmerr.New(dmerr.CodeValidation, d.DottedPath(), "array data cannot live in the primary record")
	}
	arr, ok := v.(*ndarray.Array)
	if !ok {
		return dmerr.New(dmerr.CodeValidation, d.DottedPath(), "payload requires *ndarray.Array, got %T", v)
	}
	h := s.ensureHDU(name, index)
	wantTable := arr.DType().IsRecord()
	if h.Kind != hdu.KindNone && (h.Kind == hdu.KindTable) != wantTable {
		h = s.migrateHDU(h)
	}
	h.SetData(arr)
	return nil
}

// migrateHDU replaces a record whose payload kind no longer matches,
// carrying over the cards the container does not maintain itself.
func (s *Storage) migrateHDU(old *hdu.HDU) *hdu.HDU {
	fresh := hdu.NewHDU(old.Name, old.Ver)
	for _, c := range old.Header.Cards() {
		if !hdu.IsBuiltinKeyword(c.Name) {
			fresh.Header.Append(c.Name, c.Value, c.Comment)
		}
	}
	i := s.list.Index(old.Name, old.Ver)
	s.list.Remove(i)
	s.list.Insert(i, fresh)
	return fresh
}

// ensureHDU finds or creates the record an access targets. Indexed
// accesses create the repetition with version index+1.
func (s *Storage) ensureHDU(name string, index int) *hdu.HDU {
	if h, ok := s.lookupHDU(name, index); ok {
		return h
	}
	ver := 0
	if index != storage.NoIndex {
		ver = index + 1
	}
	h := hdu.NewHDU(name, ver)
	s.list.Append(h)
	return h
}

func (s *Storage) Delete(d *property.Descriptor, index int) error {
	kind, name := place(d)
	switch kind {
	case inTree:
		return s.tree.Delete(d, index)
	case inHeader:
		h, ok := s.lookupHDU(name, index)
		if !ok || !h.Header.Has(d.FITSKeyword) {
			return missing(d)
		}
		h.Header.Delete(d.FITSKeyword)
		return nil
	default:
		h, ok := s.lookupHDU(name, index)
		if !ok {
			return missing(d)
		}
		i := s.list.Index(h.Name, h.Ver)
		s.list.Remove(i)
		return nil
	}
}

// AddHistory appends one history line to the primary header.
func (s *Storage) AddHistory(line string) {
	s.Primary().Header.AddHistory(line)
}

// History returns the primary header's accumulated history lines.
func (s *Storage) History() []string {
	return s.Primary().Header.History()
}

// Header returns the header of the named record.
func (s *Storage) Header(name string) (*hdu.Header, bool) {
	h, ok := s.list.Lookup(name, 0)
	if !ok {
		return nil, false
	}
	return &h.Header, true
}

// ExtraCards returns, per record, the cards the schema does not model:
// everything that is not structural, not commentary and not claimed by the
// known predicate. Records repeat under their bare name.
func (s *Storage) ExtraCards(known func(hduName, keyword string) bool) map[string][]hdu.Card {
	out := map[string][]hdu.Card{}
	for _, h := range s.list.All() {
		for _, c := range h.Header.Cards() {
			if hdu.IsBuiltinKeyword(c.Name) || c.Name == hdu.KeyHistory || c.Name == hdu.KeyComment {
				continue
			}
			if known != nil && known(h.Name, c.Name) {
				continue
			}
			out[h.Name] = append(out[h.Name], c)
		}
	}
	return out
}

func missing(d *property.Descriptor) error {
	return dmerr.New(dmerr.CodeAttributeMissing, d.DottedPath(), "no value stored for %s", d.DottedPath())
}
