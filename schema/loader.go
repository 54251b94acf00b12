package schema

import (
	"embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	dmerr "github.com/obsforge/datamodel/errors"
)

//go:embed schemas/*.schema.yaml
var builtinFS embed.FS

// InternalScheme prefixes the built-in schemas shipped with the engine,
// e.g. internal://schemas/image.schema.yaml.
const InternalScheme = "internal://"

// Loader resolves schema identifiers to compiled trees. Loaded trees are
// cached by resolved absolute location for the lifetime of the loader and
// shared: repeated loads return the identical *Node, so schema trees are
// immutable singletons after first load.
type Loader struct {
	// Client performs networked fetches. Defaults to http.DefaultClient.
	Client *http.Client

	mu       sync.Mutex
	cache    map[string]*Node
	inFlight map[string]bool
}

// NewLoader returns a loader with an empty cache.
func NewLoader() *Loader {
	return &Loader{
		cache:    map[string]*Node{},
		inFlight: map[string]bool{},
	}
}

// DefaultLoader is the process-wide loader used by the model façade when no
// loader is injected. Its cache lives until process teardown; tests that
// need isolation construct their own Loader.
var DefaultLoader = NewLoader()

// Load resolves and compiles a schema through the process-wide loader.
func Load(schemaURL, baseURL string) (*Node, error) {
	return DefaultLoader.Load(schemaURL, baseURL)
}

// Load resolves schemaURL against baseURL, fetches and decodes the document,
// substitutes every $ref with the referenced subtree, validates the result
// against the meta-schema and caches it. A reference cycle is a fatal
// configuration error.
func (l *Loader) Load(schemaURL, baseURL string) (*Node, error) {
	resolved, frag := splitFragment(resolveLocation(schemaURL, baseURL))
	key := resolved + "#" + frag

	l.mu.Lock()
	if n, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return n, nil
	}
	if l.inFlight[key] {
		l.mu.Unlock()
		return nil, dmerr.New(dmerr.CodeSchemaLoad, "", "schema reference cycle through %s", resolved)
	}
	l.inFlight[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inFlight, key)
		l.mu.Unlock()
	}()

	data, err := l.fetch(resolved)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeSchemaLoad, "", err, "cannot fetch schema %s", resolved)
	}
	tree, err := DecodeDocument(data)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeSchemaLoad, "", err, "cannot parse schema %s", resolved)
	}
	if frag != "" {
		tree, err = resolvePointer(tree, frag)
		if err != nil {
			return nil, dmerr.Wrap(dmerr.CodeSchemaLoad, "", err, "bad fragment in %s", key)
		}
	}
	tree, err = l.resolveRefs(tree, resolved)
	if err != nil {
		return nil, err
	}
	if err := validateMeta(tree); err != nil {
		return nil, dmerr.Wrap(dmerr.CodeSchemaInvalid, "", err, "schema %s fails meta-schema validation", resolved)
	}
	node, err := ParseFragment(tree)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeSchemaInvalid, "", err, "schema %s cannot be compiled", resolved)
	}

	l.mu.Lock()
	l.cache[key] = node
	l.mu.Unlock()
	return node, nil
}

// Compile validates and compiles an in-memory fragment (already decoded)
// without caching, resolving refs relative to baseURL.
func (l *Loader) Compile(tree any, baseURL string) (*Node, error) {
	tree, err := l.resolveRefs(tree, baseURL)
	if err != nil {
		return nil, err
	}
	if err := validateMeta(tree); err != nil {
		return nil, dmerr.Wrap(dmerr.CodeSchemaInvalid, "", err, "schema fails meta-schema validation")
	}
	return ParseFragment(tree)
}

func (l *Loader) resolveRefs(tree any, base string) (any, error) {
	switch t := tree.(type) {
	case *Obj:
		if ref, ok := t.Get("$ref"); ok {
			refStr, ok := ref.(string)
			if !ok {
				return nil, dmerr.New(dmerr.CodeSchemaLoad, "", "$ref must be a string")
			}
			sub, err := l.Load(refStr, base)
			if err != nil {
				return nil, err
			}
			return sub.Raw(), nil
		}
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			nv, err := l.resolveRefs(v, base)
			if err != nil {
				return nil, err
			}
			t.Set(k, nv)
		}
		return t, nil
	case []any:
		for i, v := range t {
			nv, err := l.resolveRefs(v, base)
			if err != nil {
				return nil, err
			}
			t[i] = nv
		}
		return t, nil
	default:
		return tree, nil
	}
}

func (l *Loader) fetch(location string) ([]byte, error) {
	switch {
	case strings.HasPrefix(location, InternalScheme):
		return builtinFS.ReadFile(strings.TrimPrefix(location, InternalScheme))
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(location)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", location, resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		return os.ReadFile(location)
	}
}

// resolveLocation joins a possibly-relative schema identifier with the URL
// of the referencing document. A baseURL ending in "/" is treated as a
// directory; otherwise resolution is relative to its parent.
func resolveLocation(ref, base string) string {
	if strings.HasPrefix(ref, InternalScheme) ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		filepath.IsAbs(ref) {
		return ref
	}
	if base == "" {
		return InternalScheme + "schemas/" + ref
	}
	if strings.HasPrefix(base, InternalScheme) {
		rel := strings.TrimPrefix(base, InternalScheme)
		if !strings.HasSuffix(rel, "/") {
			rel = path.Dir(rel) + "/"
		}
		return InternalScheme + path.Join(rel, ref)
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := u.Parse(ref)
		if err != nil {
			return ref
		}
		return r.String()
	}
	if strings.HasSuffix(base, string(filepath.Separator)) || strings.HasSuffix(base, "/") {
		return filepath.Join(base, ref)
	}
	return filepath.Join(filepath.Dir(base), ref)
}

func splitFragment(location string) (string, string) {
	if i := strings.IndexByte(location, '#'); i >= 0 {
		return location[:i], strings.TrimPrefix(location[i+1:], "/")
	}
	return location, ""
}

// resolvePointer walks a slash-separated JSON pointer through an ordered
// tree.
func resolvePointer(tree any, pointer string) (any, error) {
	cur := tree
	for _, part := range strings.Split(pointer, "/") {
		if part == "" {
			continue
		}
		obj, ok := cur.(*Obj)
		if !ok {
			return nil, fmt.Errorf("pointer segment %q does not address a mapping", part)
		}
		next, ok := obj.Get(part)
		if !ok {
			return nil, fmt.Errorf("pointer segment %q not found", part)
		}
		cur = next
	}
	return cur, nil
}
