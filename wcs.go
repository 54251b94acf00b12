package datamodel

import (
	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/hdu"
)

// WCS is the boundary for coordinate transforms: anything constructible
// from a record's header cards and serializable back to cards. The engine
// carries the cards; interpreting them is the transform library's job.
type WCS interface {
	Cards() []hdu.Card
}

// WCSCards returns the named record's header cards, from which a
// coordinate transform can be constructed. Tree-backed models synthesize
// the header from schema-claimed fields.
func (m *Model) WCSCards(hduName string) []hdu.Card {
	if fs, ok := m.store.(*fits.Storage); ok {
		if h, ok := fs.Header(hduName); ok {
			return h.Cards()
		}
		return nil
	}
	return m.GetFitsHeader(hduName).Cards()
}

// SetWCS writes a coordinate transform's cards onto the named record's
// header. Only container-backed models carry headers.
func (m *Model) SetWCS(hduName string, w WCS) error {
	fs, ok := m.store.(*fits.Storage)
	if !ok {
		return dmerr.New(dmerr.CodeStorageIO, "", "coordinate transforms need a container backend")
	}
	h, ok := fs.Header(hduName)
	if !ok {
		return dmerr.New(dmerr.CodeStorageIO, "", "no record named %s", hduName)
	}
	for _, c := range w.Cards() {
		h.Set(c.Name, c.Value, c.Comment)
	}
	return nil
}
