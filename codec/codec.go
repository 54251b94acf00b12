// Package codec converts between native Go values and their basic document
// representation. Converters are selected by the "format" attribute a schema
// fragment carries, or by their canonical tag URL.
package codec

import (
	"sync"
)

// Converter translates one value format in both directions. ToBasic renders
// a native value as a document-compatible value (string, number, bool, map,
// slice); FromBasic reverses it.
type Converter interface {
	Name() string
	Tag() string
	ToBasic(v any) (any, error)
	FromBasic(v any) (any, error)
}

var (
	mu     sync.RWMutex
	byName = map[string]Converter{}
	byTag  = map[string]Converter{}
)

// Register installs a converter, replacing any previous converter with the
// same name or tag.
func Register(c Converter) {
	mu.Lock()
	defer mu.Unlock()
	byName[c.Name()] = c
	byTag[c.Tag()] = c
}

// Lookup finds a converter by format name or canonical tag.
func Lookup(key string) (Converter, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if c, ok := byName[key]; ok {
		return c, true
	}
	c, ok := byTag[key]
	return c, ok
}

func init() {
	Register(fitsDate{})
	Register(fitsTime{})
	Register(fitsDateTime{})
	Register(blob{})
}
