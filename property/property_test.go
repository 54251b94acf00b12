package property_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	dmerr "github.com/obsforge/datamodel/errors"
	"github.com/obsforge/datamodel/ndarray"
	"github.com/obsforge/datamodel/property"
	"github.com/obsforge/datamodel/schema"
)

const testDoc = `
type: object
properties:
  data:
    type: data
    fits_hdu: SCI
    datatype: float32
    ndim: 2
    default: 0.0
  meta:
    type: object
    additionalProperties: false
    properties:
      telescope:
        title: Telescope used
        type: string
        fits_keyword: TELESCOP
        readonly: true
      instrument:
        type: object
        properties:
          name:
            type: string
            enum: [MIRI, NIRCAM]
            fits_keyword: INSTRUME
      date:
        type: string
        format: fits-date-time
        fits_keyword: DATE
  cal_logs:
    type: array
    items:
      type: string
additionalProperties: false
`

func mustTable(t *testing.T, doc string) *property.Table {
	t.Helper()
	tree, err := schema.DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	node, err := schema.ParseFragment(tree)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tbl, err := property.Compile(node)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return tbl
}

type fakeContext struct {
	primary string
	shape   []int
}

func (c fakeContext) PrimaryArrayName() string { return c.primary }
func (c fakeContext) Shape() []int             { return c.shape }

func TestCompileOrdersLeaves(t *testing.T) {
	tbl := mustTable(t, testDoc)
	var paths []string
	for _, d := range tbl.Descriptors() {
		paths = append(paths, d.DottedPath())
	}
	want := []string{"data", "meta.telescope", "meta.instrument.name", "meta.date", "cal_logs"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("descriptor order mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorAttributes(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, ok := tbl.Lookup("data")
	if !ok {
		t.Fatal("data descriptor missing")
	}
	if !d.IsData() || !d.HasDType || d.DType.Kind != ndarray.Float32 {
		t.Fatalf("data misdescribed: kind=%q dtype=%v", d.Kind, d.DType)
	}
	if d.NDim != 2 || !d.HasDefault || d.FITSHDU != "SCI" {
		t.Fatalf("data constraints misdescribed: ndim=%d default=%v hdu=%q", d.NDim, d.HasDefault, d.FITSHDU)
	}
	tel, _ := tbl.Lookup("meta.telescope")
	if !tel.ReadOnly || tel.FITSKeyword != "TELESCOP" {
		t.Fatalf("meta.telescope misdescribed: readonly=%v keyword=%q", tel.ReadOnly, tel.FITSKeyword)
	}
}

func TestResolveRejectsUnknownOnClosedSchema(t *testing.T) {
	tbl := mustTable(t, testDoc)
	_, err := tbl.Resolve("meta.bogus")
	if !dmerr.HasCode(err, dmerr.CodeNoSuchField) {
		t.Fatalf("want no_such_field, got %v", err)
	}
}

func TestResolveFabricatesAdHocOnOpenSchema(t *testing.T) {
	open := "type: object\nproperties:\n  meta:\n    type: object\n    properties: {}\n"
	tbl := mustTable(t, open)
	d, err := tbl.Resolve("meta.extra_note")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.AdHoc {
		t.Fatal("want ad-hoc descriptor for unmodeled path on open schema")
	}
	v, err := d.Cast("anything goes")
	if err != nil || v != "anything goes" {
		t.Fatalf("ad-hoc cast must pass through, got %v, %v", v, err)
	}
}

func TestItemDescribesListElements(t *testing.T) {
	tbl := mustTable(t, testDoc)
	item, err := tbl.Item("cal_logs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Kind != schema.KindString {
		t.Fatalf("want string items, got %q", item.Kind)
	}
	if _, err := tbl.Item("meta.telescope"); !dmerr.HasCode(err, dmerr.CodeNoSuchField) {
		t.Fatalf("scalar field must not yield an item descriptor, got %v", err)
	}
}

func TestCastNormalizesScalarWidths(t *testing.T) {
	open := "type: object\nproperties:\n  n:\n    type: integer\n"
	tbl := mustTable(t, open)
	d, _ := tbl.Lookup("n")
	v, err := d.Cast(int32(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := v.(int64); !ok || got != 7 {
		t.Fatalf("want int64(7), got %T %v", v, v)
	}
}

func TestCastRejectsEnumViolationWithPath(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("meta.instrument.name")
	_, err := d.Cast("HUBBLE")
	if !dmerr.HasCode(err, dmerr.CodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	iss, _ := dmerr.AsIssues(err)
	if iss[0].Path != "meta.instrument.name" {
		t.Fatalf("want issue path meta.instrument.name, got %q", iss[0].Path)
	}
}

func TestCastRunsFormatCodec(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("meta.date")
	v, err := d.Cast(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "2024-03-01T12:30:00" {
		t.Fatalf("want formatted timestamp, got %v", v)
	}
	back, err := d.Decode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := back.(time.Time); !ok {
		t.Fatalf("want time.Time from decode, got %T", back)
	}
}

func TestCastArrayEnforcesDimensionality(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("data")
	cube := ndarray.Full(ndarray.Of(ndarray.Float32), 1.0, 2, 3, 4)
	if _, err := d.Cast(cube); !dmerr.HasCode(err, dmerr.CodeValidation) {
		t.Fatalf("3-D array must be rejected for a 2-D field, got %v", err)
	}
	plane := ndarray.Full(ndarray.Of(ndarray.Float32), 1.0, 3, 4)
	v, err := d.Cast(plane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != any(plane) {
		t.Fatal("conforming array must be returned unchanged")
	}
}

func TestSynthesizeDefaultTakesTrailingDims(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("data")
	v, err := d.SynthesizeDefault(fakeContext{primary: "other", shape: []int{10, 20, 30}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr := v.(*ndarray.Array)
	if diff := cmp.Diff([]int{20, 30}, arr.Shape()); diff != "" {
		t.Fatalf("default shape mismatch (-want +got):\n%s", diff)
	}
	if arr.Float(0) != 0 {
		t.Fatalf("want zero fill, got %v", arr.Float(0))
	}
}

func TestSynthesizeDefaultPrimaryTakesShapeWhole(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("data")
	v, err := d.SynthesizeDefault(fakeContext{primary: "data", shape: []int{20, 30}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr := v.(*ndarray.Array)
	if diff := cmp.Diff([]int{20, 30}, arr.Shape()); diff != "" {
		t.Fatalf("default shape mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeDefaultWithoutShapeSource(t *testing.T) {
	tbl := mustTable(t, testDoc)
	d, _ := tbl.Lookup("data")

	for _, primary := range []string{"data", "other"} {
		v, err := d.SynthesizeDefault(fakeContext{primary: primary})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		arr, ok := v.(*ndarray.Array)
		if !ok {
			t.Fatalf("array field must default to an empty array, got %T", v)
		}
		if diff := cmp.Diff([]int{0, 0}, arr.Shape()); diff != "" {
			t.Fatalf("default shape mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSynthesizeDefaultRecordTableIsEmpty(t *testing.T) {
	doc := `
type: object
properties:
  dq_def:
    type: data
    datatype:
      - {name: BIT, datatype: uint32}
      - {name: NAME, datatype: string40}
`
	tbl := mustTable(t, doc)
	d, _ := tbl.Lookup("dq_def")
	v, err := d.SynthesizeDefault(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*ndarray.Array)
	if !ok {
		t.Fatalf("record field must default to an empty table, got %T", v)
	}
	if !arr.DType().IsRecord() || arr.Len() != 0 {
		t.Fatalf("want zero-row record table, got len=%d dtype=%v", arr.Len(), arr.DType())
	}
}

func TestSynthesizeDefaultScalarAndList(t *testing.T) {
	tbl := mustTable(t, testDoc)

	tel, _ := tbl.Lookup("meta.telescope")
	v, err := tel.SynthesizeDefault(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("scalar without a declared default must stay nil, got %v", v)
	}

	logs, _ := tbl.Lookup("cal_logs")
	v, err = logs.SynthesizeDefault(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := v.([]any); !ok || len(got) != 0 {
		t.Fatalf("list field must default to an empty list, got %T %v", v, v)
	}
}
