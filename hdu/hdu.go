package hdu

import (
	"strings"

	"github.com/obsforge/datamodel/ndarray"
)

// Payload kinds.
const (
	KindNone  = "none"
	KindImage = "image"
	KindTable = "table"
)

// HDU is one record: a name, a 1-based version for repeated names, a card
// header and an optional payload. Image payloads hold scalar arrays, table
// payloads hold record arrays.
type HDU struct {
	Name   string
	Ver    int
	Header Header
	Kind   string
	Data   *ndarray.Array
}

// NewHDU returns an empty record with no payload.
func NewHDU(name string, ver int) *HDU {
	return &HDU{Name: name, Ver: ver, Kind: KindNone}
}

// SetData installs a payload, classifying it as table or image by dtype.
func (h *HDU) SetData(a *ndarray.Array) {
	h.Data = a
	switch {
	case a == nil:
		h.Kind = KindNone
	case a.DType().IsRecord():
		h.Kind = KindTable
	default:
		h.Kind = KindImage
	}
}

// Copy returns a deep copy of the record.
func (h *HDU) Copy() *HDU {
	out := &HDU{Name: h.Name, Ver: h.Ver, Header: *h.Header.Copy(), Kind: h.Kind}
	if h.Data != nil {
		out.Data = h.Data.Copy()
	}
	return out
}

// List is an ordered collection of records. Name lookup is
// case-insensitive. Version 0 matches the first record with the name
// regardless of its version.
type List struct {
	hdus []*HDU
}

// NewList returns a list seeded with the given records.
func NewList(hdus ...*HDU) *List {
	return &List{hdus: hdus}
}

func (l *List) Len() int { return len(l.hdus) }

// At returns the record at a position.
func (l *List) At(i int) *HDU { return l.hdus[i] }

// All returns the backing slice in order. Callers must not mutate it.
func (l *List) All() []*HDU { return l.hdus }

// Index returns the position of the record matching name and version, or
// -1.
func (l *List) Index(name string, ver int) int {
	for i, h := range l.hdus {
		if strings.EqualFold(h.Name, name) && (ver == 0 || h.Ver == ver) {
			return i
		}
	}
	return -1
}

// Lookup finds a record by name and version.
func (l *List) Lookup(name string, ver int) (*HDU, bool) {
	if i := l.Index(name, ver); i >= 0 {
		return l.hdus[i], true
	}
	return nil, false
}

// Append adds a record at the end.
func (l *List) Append(h *HDU) { l.hdus = append(l.hdus, h) }

// Insert places a record at position i.
func (l *List) Insert(i int, h *HDU) {
	l.hdus = append(l.hdus, nil)
	copy(l.hdus[i+1:], l.hdus[i:])
	l.hdus[i] = h
}

// Remove deletes the record at position i.
func (l *List) Remove(i int) {
	l.hdus = append(l.hdus[:i], l.hdus[i+1:]...)
}

// Delete removes the record matching name and version, reporting whether
// anything was removed.
func (l *List) Delete(name string, ver int) bool {
	i := l.Index(name, ver)
	if i < 0 {
		return false
	}
	l.Remove(i)
	return true
}

// MaxVer returns the highest version among records with the given name.
func (l *List) MaxVer(name string) int {
	max := 0
	for _, h := range l.hdus {
		if strings.EqualFold(h.Name, name) && h.Ver > max {
			max = h.Ver
		}
	}
	return max
}

// Copy returns a deep copy of the list.
func (l *List) Copy() *List {
	out := &List{hdus: make([]*HDU, len(l.hdus))}
	for i, h := range l.hdus {
		out.hdus[i] = h.Copy()
	}
	return out
}
