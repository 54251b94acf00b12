package schema

// MergeTree merges elements of tree b into tree a, recursing through
// mappings and deep-copying everything taken from b. Used when layering the
// metadata side-channel beneath schema-mapped values.
func MergeTree(a, b map[string]any) map[string]any {
	if a == nil {
		a = map[string]any{}
	}
	for key, val := range b {
		if bm, ok := val.(map[string]any); ok {
			if am, ok := a[key].(map[string]any); ok {
				a[key] = MergeTree(am, bm)
				continue
			}
			a[key] = MergeTree(nil, bm)
			continue
		}
		a[key] = deepCopyValue(val)
	}
	return a
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return MergeTree(nil, t)
	case *Obj:
		out := NewObj()
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out.Set(k, deepCopyValue(val))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopyValue(x)
		}
		return out
	default:
		return v
	}
}

// PutValue places a value at the given path inside a nested tree, creating
// intermediate mappings as needed.
func PutValue(tree map[string]any, path []string, value any) {
	cursor := tree
	for _, part := range path[:len(path)-1] {
		next, ok := cursor[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cursor[part] = next
		}
		cursor = next
	}
	cursor[path[len(path)-1]] = value
}

// Extend combines two schemas under an allOf combinator: the result accepts
// only instances valid against both. The raw fragment is synthesized so the
// external validator sees the union.
func Extend(base, extra *Node) *Node {
	raw := NewObj()
	var parts []any
	if base.raw != nil {
		parts = append(parts, base.raw)
	}
	if extra.raw != nil {
		parts = append(parts, extra.raw)
	}
	raw.Set("allOf", parts)
	return &Node{AllOf: []*Node{base, extra}, raw: raw}
}

// Nested wraps a fragment in object schemas so it sits at the given
// dot-separated position, mirroring how a model places one new entry deep in
// its tree.
func Nested(position string, frag *Node) *Node {
	parts := splitPath(position)
	node := frag
	for i := len(parts) - 1; i >= 0; i-- {
		props := NewObj()
		props.Set(parts[i], node.raw)
		raw := NewObj()
		raw.Set("type", "object")
		raw.Set("properties", props)
		node = &Node{
			Kind:       KindObject,
			Properties: []Property{{Name: parts[i], Node: node}},
			raw:        raw,
		}
	}
	return node
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '.' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
