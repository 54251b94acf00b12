package fits

import (
	"strings"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/hdu"
)

// ListProxy presents the repetitions of one record name as a list. Element
// i is the record with version i+1; versions stay contiguous from 1, so
// inserting or deleting renumbers the repetitions that follow.
type ListProxy struct {
	s    *Storage
	name string
}

// ListProxy returns a proxy over the repetitions of a record name.
func (s *Storage) ListProxy(name string) *ListProxy {
	return &ListProxy{s: s, name: name}
}

// Len counts elements by probing versions upward from 1. A single
// unversioned record counts as one element.
func (p *ListProxy) Len() int {
	n := 0
	for {
		if _, ok := p.s.lookupHDU(p.name, n); !ok {
			return n
		}
		n++
	}
}

// HDU returns the record backing element i.
func (p *ListProxy) HDU(i int) (*hdu.HDU, bool) {
	return p.s.lookupHDU(p.name, i)
}

// Append adds a new element at the end and returns its record.
func (p *ListProxy) Append() *hdu.HDU {
	h := hdu.NewHDU(p.name, p.Len()+1)
	p.s.list.Append(h)
	return h
}

// Insert places a new element at position i, shifting the versions of every
// later repetition up by one.
func (p *ListProxy) Insert(i int) (*hdu.HDU, error) {
	n := p.Len()
	if i < 0 || i > n {
		return nil, dmerr.New(dmerr.CodeStorageIO, "", "insert position %d outside list of %d elements", i, n)
	}
	p.numberVersions()
	for _, h := range p.s.list.All() {
		if strings.EqualFold(h.Name, p.name) && h.Ver >= i+1 {
			h.Ver++
		}
	}
	fresh := hdu.NewHDU(p.name, i+1)
	if at := p.position(i); at >= 0 {
		p.s.list.Insert(at, fresh)
	} else {
		p.s.list.Append(fresh)
	}
	return fresh, nil
}

// Delete removes element i, shifting the versions of every later
// repetition down by one.
func (p *ListProxy) Delete(i int) error {
	h, ok := p.s.lookupHDU(p.name, i)
	if !ok {
		return dmerr.New(dmerr.CodeAttributeMissing, "", "no element %d in list %s", i, p.name)
	}
	p.s.list.Remove(p.s.list.Index(h.Name, h.Ver))
	for _, rest := range p.s.list.All() {
		if strings.EqualFold(rest.Name, p.name) && rest.Ver > i+1 {
			rest.Ver--
		}
	}
	return nil
}

// numberVersions promotes an unversioned record of the list's name to
// version 1, so version shifting cannot strand it behind a numbered
// element. Reading already treats such a record as element 0.
func (p *ListProxy) numberVersions() {
	if _, ok := p.s.list.Lookup(p.name, 1); ok {
		return
	}
	for _, h := range p.s.list.All() {
		if strings.EqualFold(h.Name, p.name) && h.Ver == 0 {
			h.Ver = 1
			return
		}
	}
}

// position returns the list index where the element with version i+1
// should sit: directly before the repetition that now holds that version,
// or -1 to append.
func (p *ListProxy) position(i int) int {
	for at, h := range p.s.list.All() {
		if strings.EqualFold(h.Name, p.name) && h.Ver > i+1 {
			return at
		}
	}
	return -1
}
