package fits

import (
	"github.com/goccy/go-json"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/hdu"
	"github.com/obsforge/datamodel/ndarray"
)

// MetadataRecord is the reserved record that carries the metadata side
// channel: every tree value without a container placement, serialized as a
// document and stored as a byte payload. Models must not address it
// directly.
const MetadataRecord = "METADATA"

// SaveMetadata serializes the fallback tree into the side channel,
// replacing any previous payload. An empty tree removes the record.
func (s *Storage) SaveMetadata() error {
	s.list.Delete(MetadataRecord, 0)
	tree := pruneEmpty(s.tree.Tree())
	if len(tree) == 0 {
		return nil
	}
	text, err := json.Marshal(tree)
	if err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "metadata tree cannot be serialized")
	}
	arr := ndarray.New(ndarray.Of(ndarray.Uint8), len(text))
	copy(arr.Bytes(), text)
	h := hdu.NewHDU(MetadataRecord, 0)
	h.SetData(arr)
	s.list.Append(h)
	return nil
}

// pruneEmpty drops subtrees with no values left, so moving every value
// into records leaves nothing to serialize.
func pruneEmpty(tree map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range tree {
		if sub, ok := v.(map[string]any); ok {
			if pruned := pruneEmpty(sub); len(pruned) > 0 {
				out[k] = pruned
			}
			continue
		}
		out[k] = v
	}
	return out
}

// LoadMetadata restores the fallback tree from the side channel. A missing
// record leaves the tree empty.
func (s *Storage) LoadMetadata() error {
	h, ok := s.list.Lookup(MetadataRecord, 0)
	if !ok || h.Data == nil {
		return nil
	}
	var tree map[string]any
	if err := json.Unmarshal(h.Data.Bytes(), &tree); err != nil {
		return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "metadata record is not a valid document")
	}
	dst := s.tree.Tree()
	for k, v := range tree {
		dst[k] = v
	}
	return nil
}
