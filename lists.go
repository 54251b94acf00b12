package datamodel

import (
	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/storage"
)

// Indexed access to list fields. On a container backend a list field's
// elements live in repeated records whose versions stay contiguous from 1;
// inserting or deleting an element renumbers the repetitions that follow.

func (m *Model) listItem(path string) (*property.Descriptor, error) {
	return m.table.Item(path)
}

// ListLen reports how many elements a list field holds.
func (m *Model) ListLen(path string) (int, error) {
	d, err := m.listItem(path)
	if err != nil {
		return 0, err
	}
	if fs, ok := m.store.(*fits.Storage); ok && d.FITSHDU != "" {
		return fs.ListProxy(d.FITSHDU).Len(), nil
	}
	v, err := m.store.Get(d, storage.NoIndex)
	if err != nil {
		if dmerr.IsMissing(err) {
			return 0, nil
		}
		return 0, err
	}
	list, _ := v.([]any)
	return len(list), nil
}

// GetAt reads element i of a list field.
func (m *Model) GetAt(path string, i int) (any, error) {
	d, err := m.listItem(path)
	if err != nil {
		return nil, err
	}
	v, err := m.store.Get(d, i)
	if err != nil {
		return nil, err
	}
	return d.Decode(v)
}

// SetAt writes element i of a list field. The element must already exist
// or directly follow the last one, so versions stay contiguous.
func (m *Model) SetAt(path string, i int, v any) error {
	d, err := m.listItem(path)
	if err != nil {
		return err
	}
	n, err := m.ListLen(path)
	if err != nil {
		return err
	}
	if i < 0 || i > n {
		return dmerr.New(dmerr.CodeStorageIO, path, "index %d outside list of %d elements", i, n)
	}
	cast, err := d.Cast(v)
	if err != nil {
		return err
	}
	return m.store.Set(d, i, cast)
}

// AppendTo adds an element at the end of a list field.
func (m *Model) AppendTo(path string, v any) error {
	n, err := m.ListLen(path)
	if err != nil {
		return err
	}
	return m.SetAt(path, n, v)
}

// InsertAt places an element at position i, shifting later elements up.
func (m *Model) InsertAt(path string, i int, v any) error {
	d, err := m.listItem(path)
	if err != nil {
		return err
	}
	cast, err := d.Cast(v)
	if err != nil {
		return err
	}
	if fs, ok := m.store.(*fits.Storage); ok && d.FITSHDU != "" {
		if _, err := fs.ListProxy(d.FITSHDU).Insert(i); err != nil {
			return err
		}
		return m.store.Set(d, i, cast)
	}
	return m.spliceTree(d, i, cast, true)
}

// DeleteAt removes element i, shifting later elements down.
func (m *Model) DeleteAt(path string, i int) error {
	d, err := m.listItem(path)
	if err != nil {
		return err
	}
	if fs, ok := m.store.(*fits.Storage); ok && d.FITSHDU != "" {
		return fs.ListProxy(d.FITSHDU).Delete(i)
	}
	return m.store.Delete(d, i)
}

func (m *Model) spliceTree(d *property.Descriptor, i int, v any, insert bool) error {
	cur, err := m.store.Get(d, storage.NoIndex)
	if err != nil && !dmerr.IsMissing(err) {
		return err
	}
	list, _ := cur.([]any)
	if i < 0 || i > len(list) {
		return dmerr.New(dmerr.CodeStorageIO, d.DottedPath(), "index %d outside list of %d elements", i, len(list))
	}
	if insert {
		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = v
	}
	return m.store.Set(d, storage.NoIndex, list)
}
