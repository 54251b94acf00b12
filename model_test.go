package datamodel_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	datamodel "github.com/obsforge/datamodel"
	"github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/hdu"
	"github.com/obsforge/datamodel/ndarray"
)

func writeSchema(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.schema.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const cubeDoc = `
type: object
properties:
  data: {type: data, datatype: float32, default: 0.0}
  dq: {type: data, datatype: uint32, default: 0, ndim: 2}
`

func TestDefaultShapeFollowsPrimaryArray(t *testing.T) {
	m, err := datamodel.New(writeSchema(t, cubeDoc), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()

	cube := ndarray.New(ndarray.Of(ndarray.Float32), 10, 20, 30)
	if err := m.Set("data", cube); err != nil {
		t.Fatalf("set data: %v", err)
	}

	dq, err := m.GetArray("dq")
	if err != nil {
		t.Fatalf("get dq: %v", err)
	}
	shape := dq.Shape()
	if len(shape) != 2 || shape[0] != 20 || shape[1] != 30 {
		t.Fatalf("2-D default must take the trailing dims of the 3-D primary, got %v", shape)
	}
	if dq.DType().Kind != ndarray.Uint32 {
		t.Fatalf("want uint32 default, got %v", dq.DType())
	}

	again, err := m.GetArray("dq")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again != dq {
		t.Fatal("a materialized default must be stored, not rebuilt")
	}
}

func TestDefaultSynthesisIsDeterministic(t *testing.T) {
	path := writeSchema(t, cubeDoc)
	build := func() *ndarray.Array {
		m, err := datamodel.New(path, nil)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		defer m.Close()
		if err := m.Set("data", ndarray.New(ndarray.Of(ndarray.Float32), 4, 6)); err != nil {
			t.Fatalf("set: %v", err)
		}
		dq, err := m.GetArray("dq")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		return dq
	}
	if !ndarray.Equal(build(), build()) {
		t.Fatal("identical models must synthesize identical defaults")
	}
}

func TestSetIsTransactional(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()

	if err := m.Set("meta.instrument.name", "MIRI"); err != nil {
		t.Fatalf("set: %v", err)
	}
	err = m.Set("meta.instrument.name", "BOGUS")
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	v, err := m.Get("meta.instrument.name")
	if err != nil || v != "MIRI" {
		t.Fatalf("failed set must leave the old value, got %v (%v)", v, err)
	}
}

func TestReadOnlyField(t *testing.T) {
	doc := "type: object\nproperties:\n  meta:\n    type: object\n    properties:\n      id: {type: string, readonly: true}\n"
	m, err := datamodel.New(writeSchema(t, doc), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.Set("meta.id", "x"); !errors.HasCode(err, errors.CodeReadOnly) {
		t.Fatalf("want read_only, got %v", err)
	}
}

func TestUnknownFieldRespectsAdditionalProperties(t *testing.T) {
	closed := "type: object\nadditionalProperties: false\nproperties:\n  name: {type: string}\n"
	m, err := datamodel.New(writeSchema(t, closed), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.Set("bogus", 1); !errors.HasCode(err, errors.CodeNoSuchField) {
		t.Fatalf("want no_such_field, got %v", err)
	}

	open, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer open.Close()
	if err := open.Set("meta.ad_hoc_note", "kept"); err != nil {
		t.Fatalf("ad-hoc set on an open schema: %v", err)
	}
	v, err := open.Get("meta.ad_hoc_note")
	if err != nil || v != "kept" {
		t.Fatalf("want kept, got %v (%v)", v, err)
	}
}

func TestCopyNeverAliases(t *testing.T) {
	im, err := datamodel.ImageFromShape([]int{4, 4}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer im.Close()
	if err := im.Set("meta.telescope", "JWST"); err != nil {
		t.Fatalf("set: %v", err)
	}
	orig, err := im.Data()
	if err != nil {
		t.Fatalf("data: %v", err)
	}

	dup := im.Copy()
	defer dup.Close()
	copied, err := dup.GetArray("data")
	if err != nil {
		t.Fatalf("copied data: %v", err)
	}
	copied.SetFloat(0, 99)
	if err := dup.Set("meta.telescope", "HST"); err != nil {
		t.Fatalf("set on copy: %v", err)
	}

	if orig.Float(0) == 99 {
		t.Fatal("copy must not alias the original's arrays")
	}
	if v, _ := im.Get("meta.telescope"); v != "JWST" {
		t.Fatalf("copy must not touch the original's metadata, got %v", v)
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.dmc")
	second := filepath.Join(dir, "second.dmc")

	im, err := datamodel.NewImageModel(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer im.Close()

	data := ndarray.New(ndarray.Of(ndarray.Float32), 2, 3)
	for i := 0; i < data.Len(); i++ {
		data.SetFloat(i, float64(i))
	}
	if err := im.Set("data", data); err != nil {
		t.Fatalf("set data: %v", err)
	}
	if err := im.Set("meta.telescope", "JWST"); err != nil {
		t.Fatalf("set telescope: %v", err)
	}
	im.AddHistory("created by round-trip test")

	if err := im.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := datamodel.OpenImage(first, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer loaded.Close()

	got, err := loaded.Data()
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if !ndarray.Equal(got, data) {
		t.Fatal("data array changed across save/open")
	}
	if v, _ := loaded.Get("meta.telescope"); v != "JWST" {
		t.Fatalf("want JWST, got %v", v)
	}
	if h := loaded.History(); len(h) != 1 || h[0] != "created by round-trip test" {
		t.Fatalf("history lost: %v", h)
	}

	if err := loaded.Save(second); err != nil {
		t.Fatalf("resave: %v", err)
	}
	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("resaving an unchanged model must be byte identical")
	}
}

func TestUnmodeledCardsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.dmc")

	im, err := datamodel.NewImageModel(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer im.Close()
	if err := im.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A third party adds a card no schema models.
	addForeignCard(t, path, "XWAVECAL", "v1.2.3")

	loaded, err := datamodel.OpenImage(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer loaded.Close()
	v, err := loaded.Get("_extra_fits.PRIMARY.header")
	if err != nil {
		t.Fatalf("extra cards not adopted: %v", err)
	}
	cards, ok := v.([]any)
	if !ok || len(cards) != 1 {
		t.Fatalf("want one preserved card, got %v", v)
	}
	card := cards[0].([]any)
	if card[0] != "XWAVECAL" || card[1] != "v1.2.3" {
		t.Fatalf("card mangled: %v", card)
	}
}

func addForeignCard(t *testing.T, path, name, value string) {
	t.Helper()
	list, err := hdu.ReadFile(path)
	if err != nil {
		t.Fatalf("read container: %v", err)
	}
	primary, ok := list.Lookup("PRIMARY", 0)
	if !ok {
		t.Fatal("no primary record")
	}
	primary.Header.Set(name, value, "added outside the schema")
	if err := list.WriteFile(path); err != nil {
		t.Fatalf("write container: %v", err)
	}
}

func TestHistoryAccumulates(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	m.AddHistory("first")
	m.AddHistory("second")
	h := m.History()
	if len(h) != 2 || h[0] != "first" || h[1] != "second" {
		t.Fatalf("history must accumulate in order, got %v", h)
	}
}

func TestExtendSchemaRevertsOnConflict(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.Set("meta.telescope", "JWST"); err != nil {
		t.Fatalf("set: %v", err)
	}
	err = m.ExtendSchema("type: integer\n", "meta.telescope")
	if err == nil {
		t.Fatal("extension conflicting with stored values must fail")
	}
	if err := m.Set("meta.telescope", "HST"); err != nil {
		t.Fatalf("schema must be reverted after a failed extension: %v", err)
	}
}

func TestAddSchemaEntryValidatesNewField(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.AddSchemaEntry("meta.pi_name", "type: string\ntitle: Principal investigator\n"); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if err := m.Set("meta.pi_name", "A. Researcher"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Set("meta.pi_name", 42); !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("new entry must validate, got %v", err)
	}
}

func TestUpdateCopiesScalars(t *testing.T) {
	src, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer src.Close()
	if err := src.Set("meta.telescope", "JWST"); err != nil {
		t.Fatal(err)
	}
	if err := src.Set("meta.instrument.name", "NIRSPEC"); err != nil {
		t.Fatal(err)
	}

	dst, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer dst.Close()
	if err := dst.Update(src); err != nil {
		t.Fatalf("update: %v", err)
	}
	if v, _ := dst.Get("meta.instrument.name"); v != "NIRSPEC" {
		t.Fatalf("want NIRSPEC, got %v", v)
	}
}

func TestListOperations(t *testing.T) {
	doc := "type: object\nproperties:\n  cal_logs:\n    type: array\n    items: {type: string}\n"
	m, err := datamodel.New(writeSchema(t, doc), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()

	for _, s := range []string{"one", "three"} {
		if err := m.AppendTo("cal_logs", s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := m.InsertAt("cal_logs", 1, "two"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	n, err := m.ListLen("cal_logs")
	if err != nil || n != 3 {
		t.Fatalf("want 3 elements, got %d (%v)", n, err)
	}
	for i, want := range []string{"one", "two", "three"} {
		v, err := m.GetAt("cal_logs", i)
		if err != nil || v != want {
			t.Fatalf("element %d: want %s, got %v (%v)", i, want, v, err)
		}
	}
	if err := m.DeleteAt("cal_logs", 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v, _ := m.GetAt("cal_logs", 1); v != "three" {
		t.Fatalf("after delete, want three at index 1, got %v", v)
	}
}

func TestGetFitsHeaderUsesSentinelForAbsent(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.Set("meta.telescope", "JWST"); err != nil {
		t.Fatal(err)
	}
	h := m.GetFitsHeader("PRIMARY")
	if v, ok := h.Get("TELESCOP"); !ok || v != "JWST" {
		t.Fatalf("want TELESCOP=JWST, got %v", v)
	}
	if _, ok := h.Get("INSTRUME"); ok {
		t.Fatal("absent field must read as missing")
	}
	if !h.Has("INSTRUME") {
		t.Fatal("absent field must still emit a sentinel card")
	}
}

func TestFindKeywordAndSearch(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	paths := m.FindKeyword("TARG_RA")
	if len(paths) != 1 || paths[0] != "meta.target.ra" {
		t.Fatalf("want meta.target.ra, got %v", paths)
	}
	matches := m.SearchSchema("telescope")
	found := false
	for _, match := range matches {
		if match.Path == "meta.telescope" {
			found = true
		}
	}
	if !found {
		t.Fatalf("search missed meta.telescope: %v", matches)
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()
	if err := m.Set("meta.origin", "OBSFORGE"); err != nil {
		t.Fatal(err)
	}
	var jsonOut, yamlOut bytes.Buffer
	if err := m.WriteJSON(&jsonOut); err != nil {
		t.Fatalf("json: %v", err)
	}
	if err := m.WriteYAML(&yamlOut); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !bytes.Contains(jsonOut.Bytes(), []byte("OBSFORGE")) {
		t.Fatalf("json output missing value: %s", jsonOut.String())
	}
	if !bytes.Contains(yamlOut.Bytes(), []byte("OBSFORGE")) {
		t.Fatalf("yaml output missing value: %s", yamlOut.String())
	}
}

func TestMaskDynamicMask(t *testing.T) {
	mm, err := datamodel.NewMaskModel(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer mm.Close()

	dq := ndarray.FromUint32s([]int{2, 2}, []uint32{1, 2, 3, 0})
	if err := mm.Set("dq", dq); err != nil {
		t.Fatalf("set dq: %v", err)
	}

	def := ndarray.New(ndarray.Record(
		ndarray.Field{Name: "BIT", DType: ndarray.Of(ndarray.Uint32)},
		ndarray.Field{Name: "VALUE", DType: ndarray.Of(ndarray.Uint32)},
		ndarray.Field{Name: "NAME", DType: ndarray.StringType(40)},
	), 2)
	def.SetFieldFloat(0, "BIT", 0)
	def.SetFieldFloat(0, "VALUE", 1)
	def.SetFieldString(0, "NAME", "DEAD")
	def.SetFieldFloat(1, "BIT", 1)
	def.SetFieldFloat(1, "VALUE", 2)
	def.SetFieldString(1, "NAME", "SATURATED")
	if err := mm.Set("dq_def", def); err != nil {
		t.Fatalf("set dq_def: %v", err)
	}

	mask, err := mm.DynamicMask()
	if err != nil {
		t.Fatalf("dynamic mask: %v", err)
	}
	dead := uint64(1 << 10)
	saturated := uint64(1 << 1)
	want := []uint64{dead, saturated, dead | saturated, 0}
	for i, w := range want {
		if mask.Uint(i) != w {
			t.Fatalf("element %d: want %d, got %d", i, w, mask.Uint(i))
		}
	}
}

func TestRampDefaultShapes(t *testing.T) {
	rm, err := datamodel.RampFromShape([]int{2, 3, 4, 5}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rm.Close()

	pdq, err := rm.PixelDQ()
	if err != nil {
		t.Fatalf("pixeldq: %v", err)
	}
	if got := pdq.Shape(); len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("want pixeldq shape [4 5], got %v", got)
	}
	if pdq.DType().Kind != ndarray.Uint32 {
		t.Fatalf("want uint32 pixeldq, got %v", pdq.DType())
	}

	gdq, err := rm.GroupDQ()
	if err != nil {
		t.Fatalf("groupdq: %v", err)
	}
	if got := gdq.Shape(); len(got) != 4 || got[0] != 2 || got[3] != 5 {
		t.Fatalf("want groupdq shape [2 3 4 5], got %v", got)
	}
	if gdq.DType().Kind != ndarray.Uint8 {
		t.Fatalf("want uint8 groupdq, got %v", gdq.DType())
	}
}

func TestFromArraySetsPrimary(t *testing.T) {
	sci := ndarray.Full(ndarray.Of(ndarray.Float32), 7, 3, 3)
	m, err := datamodel.FromArray(datamodel.ImageSchema, sci, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	if m.PrimaryArrayName() != "data" {
		t.Fatalf("want primary array data, got %q", m.PrimaryArrayName())
	}
	got, err := m.GetArray("data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ndarray.Equal(sci, got) {
		t.Fatal("stored array must match the input")
	}
}

func TestDeleteAbsentFieldFails(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	err = m.Delete("meta.telescope")
	if !errors.HasCode(err, errors.CodeNoSuchField) {
		t.Fatalf("want no_such_field, got %v", err)
	}
	if err := m.Set("meta.telescope", "JWST"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Delete("meta.telescope"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Exists("meta.telescope") {
		t.Fatal("deleted field must not exist")
	}
}

func TestPrimaryArrayDefaultsToEmpty(t *testing.T) {
	im, err := datamodel.NewImageModel(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer im.Close()

	data, err := im.Data()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := data.Shape(); len(got) != 2 || got[0] != 0 || got[1] != 0 {
		t.Fatalf("want empty 2-D default for the primary array, got %v", got)
	}
}

func TestOpenDocumentRoundTrip(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()
	if err := m.Set("meta.telescope", "JWST"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Set("meta.target.ra", 83.82); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, write := range []func(*datamodel.Model, string) error{
		func(m *datamodel.Model, path string) error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return m.WriteJSON(f)
		},
		func(m *datamodel.Model, path string) error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return m.WriteYAML(f)
		},
	} {
		path := filepath.Join(t.TempDir(), "meta.txt")
		if err := write(m, path); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := datamodel.OpenDocument(path, datamodel.CoreSchema, nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		tel, err := got.GetString("meta.telescope")
		if err != nil || tel != "JWST" {
			t.Fatalf("want telescope JWST, got %q, %v", tel, err)
		}
		ra, err := got.Get("meta.target.ra")
		if err != nil || ra != 83.82 {
			t.Fatalf("want ra 83.82, got %v, %v", ra, err)
		}
		got.Close()
	}
}

type cardWCS []hdu.Card

func (w cardWCS) Cards() []hdu.Card { return w }

func TestSetWCSWritesHeaderCards(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	w := cardWCS{{Name: "CRVAL1", Value: 83.82, Comment: "reference value"}}
	if err := m.SetWCS("PRIMARY", w); !errors.HasCode(err, errors.CodeStorageIO) {
		t.Fatalf("tree-backed model must reject transforms, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.dmc")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := datamodel.Open(path, datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer got.Close()
	if err := got.SetWCS("PRIMARY", w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, c := range got.WCSCards("PRIMARY") {
		if c.Name == "CRVAL1" && c.Value == 83.82 {
			found = true
		}
	}
	if !found {
		t.Fatal("transform card must land on the record header")
	}
}

func TestUnsetScalarReadsAsNil(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()

	v, err := m.Get("meta.telescope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("scalar without a declared default must read as nil, got %v", v)
	}
}

func TestFreshMaskSynthesizesEmptyDQDef(t *testing.T) {
	mm, err := datamodel.NewMaskModel(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer mm.Close()

	def, err := mm.DQDef()
	if err != nil {
		t.Fatalf("dq_def: %v", err)
	}
	if !def.DType().IsRecord() || def.Len() != 0 {
		t.Fatalf("want zero-row definition table, got len=%d dtype=%v", def.Len(), def.DType())
	}

	if err := mm.Set("dq", ndarray.FromUint32s([]int{1, 2}, []uint32{5, 0})); err != nil {
		t.Fatalf("set dq: %v", err)
	}
	mask, err := mm.DynamicMask()
	if err != nil {
		t.Fatalf("dynamic mask: %v", err)
	}
	if mask.Uint(0) != 5 || mask.Uint(1) != 0 {
		t.Fatalf("empty definition table must keep the stored mask, got %v %v", mask.Uint(0), mask.Uint(1))
	}
}

func TestExtensionKeepsBaseConstraints(t *testing.T) {
	m, err := datamodel.New(datamodel.CoreSchema, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Close()

	if err := m.ExtendSchema("type: string\n", "meta.instrument.name"); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if err := m.Set("meta.instrument.name", "BOGUS"); !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("extension must not relax the base enum, got %v", err)
	}
	if err := m.Set("meta.instrument.name", "MIRI"); err != nil {
		t.Fatalf("value satisfying all declarations must pass: %v", err)
	}
}
