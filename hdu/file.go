package hdu

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/goccy/go-json"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/ndarray"
)

// The container file layout: a 4-byte magic, a little-endian uint32 record
// count, then per record a length-prefixed JSON header block followed by a
// length-prefixed raw payload. Header blocks serialize with fixed field
// order and payloads are the array's flat little-endian bytes, so writing
// an unchanged list reproduces the input byte for byte.
var magic = [4]byte{'D', 'M', 'C', '1'}

type fileRecord struct {
	Name  string   `json:"name"`
	Ver   int      `json:"ver"`
	Kind  string   `json:"kind"`
	DType any      `json:"dtype,omitempty"`
	Shape []int    `json:"shape,omitempty"`
	Cards [][3]any `json:"cards"`
}

// Write serializes the list.
func (l *List) Write(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return ioErr(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(l.Len())); err != nil {
		return ioErr(err)
	}
	for _, h := range l.hdus {
		rec := fileRecord{Name: h.Name, Ver: h.Ver, Kind: h.Kind}
		if h.Data != nil {
			rec.DType = dtypeSpec(h.Data.DType())
			rec.Shape = h.Data.Shape()
		}
		rec.Cards = make([][3]any, len(h.Header.cards))
		for i, c := range h.Header.cards {
			rec.Cards[i] = [3]any{c.Name, c.Value, c.Comment}
		}
		block, err := json.Marshal(rec)
		if err != nil {
			return ioErr(err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(block))); err != nil {
			return ioErr(err)
		}
		if _, err := w.Write(block); err != nil {
			return ioErr(err)
		}
		var payload []byte
		if h.Data != nil {
			payload = h.Data.Bytes()
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(payload))); err != nil {
			return ioErr(err)
		}
		if _, err := w.Write(payload); err != nil {
			return ioErr(err)
		}
	}
	return nil
}

// Read deserializes a list.
func Read(r io.Reader) (*List, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, ioErr(err)
	}
	if got != magic {
		return nil, dmerr.New(dmerr.CodeStorageIO, "", "not a container file (bad magic %q)", got[:])
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ioErr(err)
	}
	list := NewList()
	for i := uint32(0); i < count; i++ {
		var blockLen uint32
		if err := binary.Read(r, binary.LittleEndian, &blockLen); err != nil {
			return nil, ioErr(err)
		}
		block := make([]byte, blockLen)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, ioErr(err)
		}
		var rec fileRecord
		dec := json.NewDecoder(bytes.NewReader(block))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, ioErr(err)
		}
		var payloadLen uint64
		if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
			return nil, ioErr(err)
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, ioErr(err)
		}
		h := &HDU{Name: rec.Name, Ver: rec.Ver, Kind: rec.Kind}
		for _, c := range rec.Cards {
			name, _ := c[0].(string)
			comment, _ := c[2].(string)
			h.Header.Append(name, plainNumber(c[1]), comment)
		}
		if rec.Kind != KindNone {
			dt, err := ndarray.ParseDType(plainNumber(rec.DType))
			if err != nil {
				return nil, dmerr.Wrap(dmerr.CodeStorageIO, "", err, "record %s has a bad dtype", rec.Name)
			}
			arr, err := ndarray.Wrap(dt, rec.Shape, payload)
			if err != nil {
				return nil, dmerr.Wrap(dmerr.CodeStorageIO, "", err, "record %s has a bad payload", rec.Name)
			}
			h.Data = arr
		}
		list.Append(h)
	}
	return list, nil
}

// WriteFile writes the list to a path.
func (l *List) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ioErr(err)
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return err
	}
	return ioErr(f.Close())
}

// ReadFile reads a list from a path.
func ReadFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(err)
	}
	defer f.Close()
	return Read(f)
}

// dtypeSpec renders a dtype in the form ParseDType accepts.
func dtypeSpec(dt ndarray.DType) any {
	if !dt.IsRecord() {
		return dt.String()
	}
	cols := make([]any, len(dt.Fields))
	for i, f := range dt.Fields {
		cols[i] = map[string]any{"name": f.Name, "datatype": f.DType.String()}
	}
	return cols
}

// plainNumber folds json.Number values (and containers holding them) onto
// int64 or float64.
func plainNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, x := range t {
			t[i] = plainNumber(x)
		}
		return t
	case map[string]any:
		for k, x := range t {
			t[k] = plainNumber(x)
		}
		return t
	default:
		return v
	}
}

func ioErr(err error) error {
	if err == nil {
		return nil
	}
	return dmerr.Wrap(dmerr.CodeStorageIO, "", err, "container I/O failed")
}
