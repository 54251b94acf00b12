package fits_test

import (
	"testing"

	"github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/fits"
	"github.com/obsforge/datamodel/hdu"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/schema"
	"github.com/obsforge/datamodel/storage"
)

func descriptorFor(t *testing.T, doc, path string) *property.Descriptor {
	t.Helper()
	tree, err := schema.DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	node, err := schema.ParseFragment(tree)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table, err := property.Compile(node)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	d, err := table.Resolve(path)
	if err != nil {
		t.Fatalf("resolve %s: %v", path, err)
	}
	return d
}

const scalarDoc = `
type: object
properties:
  meta:
    type: object
    properties:
      telescope: {type: string, title: Telescope, fits_keyword: TELESCOP}
      note: {type: string}
`

const arrayDoc = `
type: object
properties:
  data: {type: data, fits_hdu: SCI, datatype: float32}
  bad: {type: data, fits_hdu: PRIMARY, datatype: float32}
`

func TestKeywordSetAndGet(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, scalarDoc, "meta.telescope")

	if err := s.Set(d, storage.NoIndex, "JWST"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.Get(d, storage.NoIndex)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "JWST" {
		t.Fatalf("want JWST, got %v", v)
	}
	if got := s.Primary().Header.Comment("TELESCOP"); got != "Telescope" {
		t.Fatalf("first set must carry the doc comment, got %q", got)
	}

	if err := s.Set(d, storage.NoIndex, "HST"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got := s.Primary().Header.Comment("TELESCOP"); got != "Telescope" {
		t.Fatalf("overwrite must keep the comment, got %q", got)
	}
}

func TestUnplacedValueFallsBackToTree(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, scalarDoc, "meta.note")
	if err := s.Set(d, storage.NoIndex, "hello"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := s.Primary().Header.Get("NOTE"); ok {
		t.Fatal("unplaced value must not touch headers")
	}
	v, err := s.Get(d, storage.NoIndex)
	if err != nil || v != "hello" {
		t.Fatalf("want hello, got %v (%v)", v, err)
	}
}

func TestMissingValueIsAttributeMissing(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, scalarDoc, "meta.telescope")
	_, err := s.Get(d, storage.NoIndex)
	if !errors.HasCode(err, errors.CodeAttributeMissing) {
		t.Fatalf("want attribute_missing, got %v", err)
	}
}

func TestPayloadRejectsPrimaryRecord(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, arrayDoc, "bad")
	arr := ndarray.New(ndarray.Of(ndarray.Float32), 2, 2)
	if err := s.Set(d, storage.NoIndex, arr); err == nil {
		t.Fatal("array data must not land in the primary record")
	}
}

func TestPayloadKindMigrationKeepsCustomCards(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, arrayDoc, "data")
	img := ndarray.New(ndarray.Of(ndarray.Float32), 2, 2)
	if err := s.Set(d, storage.NoIndex, img); err != nil {
		t.Fatalf("set image: %v", err)
	}
	sci, _ := s.List().Lookup("SCI", 0)
	sci.Header.Set("BUNIT", "DN/s", "units")
	sci.Header.Set("NAXIS", int64(2), "")

	table := ndarray.New(ndarray.Record(
		ndarray.Field{Name: "x", DType: ndarray.Of(ndarray.Float64)},
	), 1)
	if err := s.Set(d, storage.NoIndex, table); err != nil {
		t.Fatalf("set table: %v", err)
	}
	sci, _ = s.List().Lookup("SCI", 0)
	if sci.Kind != hdu.KindTable {
		t.Fatalf("want table record after migration, got %s", sci.Kind)
	}
	if _, ok := sci.Header.Get("BUNIT"); !ok {
		t.Fatal("migration must keep non-structural cards")
	}
	if sci.Header.Has("NAXIS") {
		t.Fatal("migration must drop structural cards")
	}
}

func TestListProxyVersionsStayContiguous(t *testing.T) {
	s := fits.NewStorage()
	p := s.ListProxy("CAL")
	p.Append().Header.Set("STEP", "one", "")
	p.Append().Header.Set("STEP", "two", "")
	p.Append().Header.Set("STEP", "three", "")
	if p.Len() != 3 {
		t.Fatalf("want 3 elements, got %d", p.Len())
	}

	if err := p.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("want 2 elements after delete, got %d", p.Len())
	}
	h, ok := p.HDU(1)
	if !ok {
		t.Fatal("element 1 must exist after renumbering")
	}
	if v, _ := h.Header.Get("STEP"); v != "three" {
		t.Fatalf("element formerly at version 3 must now be version 2, got %v", v)
	}
	if h.Ver != 2 {
		t.Fatalf("want version 2, got %d", h.Ver)
	}
}

func TestListProxyInsertShiftsUp(t *testing.T) {
	s := fits.NewStorage()
	p := s.ListProxy("CAL")
	p.Append().Header.Set("STEP", "one", "")
	p.Append().Header.Set("STEP", "three", "")
	mid, err := p.Insert(1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	mid.Header.Set("STEP", "two", "")

	want := []string{"one", "two", "three"}
	if p.Len() != 3 {
		t.Fatalf("want 3 elements, got %d", p.Len())
	}
	for i, w := range want {
		h, _ := p.HDU(i)
		if v, _ := h.Header.Get("STEP"); v != w {
			t.Fatalf("element %d: want %s, got %v", i, w, v)
		}
	}
}

func TestMetadataSideChannelRoundTrip(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, scalarDoc, "meta.note")
	if err := s.Set(d, storage.NoIndex, "survives"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SaveMetadata(); err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	reloaded := fits.FromList(s.List().Copy())
	if err := reloaded.LoadMetadata(); err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	v, err := reloaded.Get(d, storage.NoIndex)
	if err != nil || v != "survives" {
		t.Fatalf("want survives, got %v (%v)", v, err)
	}
}

func TestAbsentFirstPayloadIsStructural(t *testing.T) {
	s := fits.NewStorage()
	d := descriptorFor(t, arrayDoc, "data")

	_, err := s.Get(d, 0)
	if !errors.HasCode(err, errors.CodeMissingPrimaryRecord) {
		t.Fatalf("want missing_primary_record at index 0, got %v", err)
	}
	if !errors.IsMissing(err) {
		t.Fatalf("structural absence must still read as missing, got %v", err)
	}

	if _, err := s.Get(d, 1); !errors.HasCode(err, errors.CodeAttributeMissing) {
		t.Fatalf("want attribute_missing past index 0, got %v", err)
	}
}

func TestListProxyInsertNumbersUnversionedRecord(t *testing.T) {
	s := fits.NewStorage()
	lone := hdu.NewHDU("CAL", 0)
	lone.Header.Set("STEP", "one", "")
	s.List().Append(lone)

	p := s.ListProxy("CAL")
	if p.Len() != 1 {
		t.Fatalf("unversioned record must read as one element, got %d", p.Len())
	}

	first, err := p.Insert(0)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	first.Header.Set("STEP", "zero", "")

	if p.Len() != 2 {
		t.Fatalf("want 2 elements after insert, got %d", p.Len())
	}
	want := []string{"zero", "one"}
	for i, w := range want {
		h, ok := p.HDU(i)
		if !ok {
			t.Fatalf("element %d must exist", i)
		}
		if v, _ := h.Header.Get("STEP"); v != w {
			t.Fatalf("element %d: want %s, got %v", i, w, v)
		}
	}
	if lone.Ver != 2 {
		t.Fatalf("former unversioned record must be renumbered to 2, got %d", lone.Ver)
	}
}
