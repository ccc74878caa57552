package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/types"
)

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func TestWITSizes(t *testing.T) {
	tests := []struct {
		name  string
		typ   wit.Type
		size  uintptr
		align uintptr
	}{
		{"bool", wit.Bool{}, 1, 1},
		{"u16", wit.U16{}, 2, 2},
		{"char", wit.Char{}, 4, 4},
		{"s64", wit.S64{}, 8, 8},
		{"f32", wit.F32{}, 4, 4},
		{"string", wit.String{}, 8, 4},
		{"list", &wit.TypeDef{Kind: &wit.List{Type: wit.U64{}}}, 8, 4},
		{"empty record", &wit.TypeDef{Kind: &wit.Record{}}, 0, 1},
		{"enum small", &wit.TypeDef{Kind: &wit.Enum{Cases: make([]wit.EnumCase, 3)}}, 1, 1},
		{"enum large", &wit.TypeDef{Kind: &wit.Enum{Cases: make([]wit.EnumCase, 300)}}, 2, 2},
		{"flags 8", &wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 8)}}, 1, 1},
		{"flags 9", &wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 9)}}, 2, 2},
		{"flags 40", &wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 40)}}, 8, 8},
		{"flags 70", &wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 70)}}, 12, 4},
		{"option u8", &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}, 2, 1},
		{"option u32", &wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}}, 8, 4},
		{"option u64", &wit.TypeDef{Kind: &wit.Option{Type: wit.U64{}}}, 16, 8},
		{"result u32 string", &wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.String{}}}, 12, 4},
		{"result empty", &wit.TypeDef{Kind: &wit.Result{}}, 1, 1},
		{"tuple", &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}}}}, 16, 8},
		{"own", &wit.TypeDef{Kind: &wit.Own{}}, 4, 4},
		{"borrow", &wit.TypeDef{Kind: &wit.Borrow{}}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := FromWIT(tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			if l.Size() != tt.size || l.Align() != tt.align {
				t.Errorf("size/align = %d/%d, want %d/%d", l.Size(), l.Align(), tt.size, tt.align)
			}
			checkInvariants(t, l)
		})
	}
}

func TestWITRecord(t *testing.T) {
	rec := named("point", &wit.Record{Fields: []wit.Field{
		{Name: "a", Type: wit.U8{}},
		{Name: "b", Type: wit.U32{}},
		{Name: "c", Type: wit.U8{}},
	}})
	l, err := FromWIT(rec)
	if err != nil {
		t.Fatal(err)
	}
	if l.Name() != "point" {
		t.Errorf("Name = %q", l.Name())
	}
	want := []placed{{"a", 0, 1}, {"b", 4, 4}, {"c", 8, 1}}
	if diff := cmp.Diff(want, positions(l)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if l.Size() != 12 || l.Align() != 4 {
		t.Errorf("size/align = %d/%d", l.Size(), l.Align())
	}
}

func TestWITVariant(t *testing.T) {
	v := named("shape", &wit.Variant{Cases: []wit.Case{
		{Name: "dot", Type: wit.U8{}},
		{Name: "wide", Type: wit.U64{}},
		{Name: "none"},
	}})
	l, err := FromWIT(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []placed{{"tag", 0, 1}, {"payload", 8, 8}}
	if diff := cmp.Diff(want, positions(l)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if l.Size() != 16 || l.Align() != 8 {
		t.Errorf("size/align = %d/%d", l.Size(), l.Align())
	}

	payload, _ := l.Field("payload")
	u := payload.Type.(Nested).Layout
	if !u.IsUnion() {
		t.Fatal("payload is not a union")
	}
	if diff := cmp.Diff([]string{"dot", "wide"}, u.Names()); diff != "" {
		t.Errorf("payload cases (-want +got):\n%s", diff)
	}

	tagOnly, err := FromWIT(&wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{{Name: "a"}, {Name: "b"}}}})
	if err != nil {
		t.Fatal(err)
	}
	if tagOnly.Size() != 1 || tagOnly.NumFields() != 1 {
		t.Errorf("payload-less variant: size %d, %d fields", tagOnly.Size(), tagOnly.NumFields())
	}
}

func TestWITNestedAndCached(t *testing.T) {
	inner := named("inner", &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.F64{}},
	}})
	outer := named("outer", &wit.Record{Fields: []wit.Field{
		{Name: "tag", Type: wit.U8{}},
		{Name: "first", Type: inner},
		{Name: "second", Type: inner},
		{Name: "label", Type: wit.String{}},
	}})

	c := NewWITConverter()
	l, err := c.Layout(outer)
	if err != nil {
		t.Fatal(err)
	}
	want := []placed{{"tag", 0, 1}, {"first", 8, 8}, {"second", 16, 8}, {"label", 24, 8}}
	if diff := cmp.Diff(want, positions(l)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	first, _ := l.Field("first")
	second, _ := l.Field("second")
	if first.Type.(Nested).Layout != second.Type.(Nested).Layout {
		t.Error("type definition converted twice")
	}
}

func TestWITAlias(t *testing.T) {
	alias := named("size", wit.U32{})
	l, err := FromWIT(alias)
	if err != nil {
		t.Fatal(err)
	}
	if l.Name() != "size" || l.Size() != 4 {
		t.Errorf("alias layout %s", l)
	}
	if f, ok := l.Field("value"); !ok || f.Type.String() != "uint32" {
		t.Errorf("alias field = %+v", f)
	}
}

func TestWITErrors(t *testing.T) {
	if _, err := FromWIT(nil); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("nil type: %v", err)
	}
	if _, err := FromWIT(&wit.TypeDef{Kind: &wit.Resource{}}); errors.KindOf(err) != errors.KindUnsupported {
		t.Errorf("resource: %v", err)
	}
}

func TestWITConverterFor(t *testing.T) {
	tests := []struct {
		name  string
		reg   *types.Registry
		typ   wit.Type
		size  uintptr
		align uintptr
	}{
		{"amd64 string", types.AMD64, wit.String{}, 16, 8},
		{"amd64 list", types.AMD64, &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, 16, 8},
		{"amd64 result u32 string", types.AMD64, &wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.String{}}}, 24, 8},
		{"i386 string", types.I386, wit.String{}, 8, 4},
		{"i386 u64", types.I386, wit.U64{}, 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewWITConverterFor(tt.reg).Layout(tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			if l.Size() != tt.size || l.Align() != tt.align {
				t.Errorf("size/align = %d/%d, want %d/%d", l.Size(), l.Align(), tt.size, tt.align)
			}
			if l.Registry() != tt.reg {
				t.Errorf("registry = %s", l.Registry().Platform().Name)
			}
		})
	}

	if c := NewWITConverterFor(nil); c.reg != types.Host {
		t.Errorf("nil registry = %s, want host", c.reg.Platform().Name)
	}
}
