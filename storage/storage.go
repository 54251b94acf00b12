// Package storage defines the backend contract a model reads and writes
// through, plus the in-memory tree backend every model can fall back to.
//
// A backend addresses values by descriptor, optionally with a list index.
// Backends never validate; the property layer has already shaped the value
// by the time it arrives here.
package storage

import (
	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/property"
)

// NoIndex marks a non-indexed access.
const NoIndex = -1

// Storage is one backend. Get returns an attribute_missing error when
// nothing is stored; Set and Delete report read-only or I/O conditions.
type Storage interface {
	Exists(d *property.Descriptor, index int) bool
	Get(d *property.Descriptor, index int) (any, error)
	Set(d *property.Descriptor, index int, v any) error
	Delete(d *property.Descriptor, index int) error

	// Shape reports the shape of the backend's payload when it can be
	// known without loading it, nil otherwise.
	Shape() []int

	Close() error
}

// Tree stores values in a nested map keyed by path segments. It is the
// default backend for models created without a container.
type Tree struct {
	tree map[string]any
}

// NewTree wraps an existing nested tree, or an empty one when nil.
func NewTree(tree map[string]any) *Tree {
	if tree == nil {
		tree = map[string]any{}
	}
	return &Tree{tree: tree}
}

// Tree exposes the underlying nested map for serialization.
func (s *Tree) Tree() map[string]any { return s.tree }

func (s *Tree) Exists(d *property.Descriptor, index int) bool {
	_, err := s.Get(d, index)
	return err == nil
}

func (s *Tree) Get(d *property.Descriptor, index int) (any, error) {
	cursor := any(s.tree)
	for _, part := range d.Path {
		m, ok := cursor.(map[string]any)
		if !ok {
			return nil, missing(d)
		}
		cursor, ok = m[part]
		if !ok {
			return nil, missing(d)
		}
	}
	if index == NoIndex {
		return cursor, nil
	}
	list, ok := cursor.([]any)
	if !ok || index < 0 || index >= len(list) {
		return nil, missing(d)
	}
	return list[index], nil
}

func (s *Tree) Set(d *property.Descriptor, index int, v any) error {
	parent := s.tree
	for _, part := range d.Path[:len(d.Path)-1] {
		next, ok := parent[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			parent[part] = next
		}
		parent = next
	}
	leaf := d.Path[len(d.Path)-1]
	if index == NoIndex {
		parent[leaf] = v
		return nil
	}
	list, _ := parent[leaf].([]any)
	switch {
	case index >= 0 && index < len(list):
		list[index] = v
	case index == len(list):
		list = append(list, v)
	default:
		return dmerr.New(dmerr.CodeStorageIO, d.DottedPath(), "index %d outside list of %d elements", index, len(list))
	}
	parent[leaf] = list
	return nil
}

func (s *Tree) Delete(d *property.Descriptor, index int) error {
	parent := s.tree
	for _, part := range d.Path[:len(d.Path)-1] {
		next, ok := parent[part].(map[string]any)
		if !ok {
			return missing(d)
		}
		parent = next
	}
	leaf := d.Path[len(d.Path)-1]
	if index == NoIndex {
		if _, ok := parent[leaf]; !ok {
			return missing(d)
		}
		delete(parent, leaf)
		return nil
	}
	list, ok := parent[leaf].([]any)
	if !ok || index < 0 || index >= len(list) {
		return missing(d)
	}
	parent[leaf] = append(list[:index], list[index+1:]...)
	return nil
}

func (s *Tree) Shape() []int { return nil }

func (s *Tree) Close() error { return nil }

func missing(d *property.Descriptor) error {
	return dmerr.New(dmerr.CodeAttributeMissing, d.DottedPath(), "no value stored for %s", d.DottedPath())
}
