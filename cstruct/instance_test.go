package cstruct

import (
	"context"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/layout"
	"github.com/wippyai/ffi-memory/linear"
	"github.com/wippyai/ffi-memory/pointer"
	"github.com/wippyai/ffi-memory/types"
)

func newInstance(t *testing.T, l *layout.Layout, opts ...pointer.Option) *Instance {
	t.Helper()
	s, err := New(l, nil, opts...)
	if err != nil {
		t.Fatalf("New(%s): %v", l.Name(), err)
	}
	t.Cleanup(s.Free)
	return s
}

func mustGet(t *testing.T, s *Instance, name string) any {
	t.Helper()
	v, err := s.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return v
}

func mustSet(t *testing.T, s *Instance, name string, v any) {
	t.Helper()
	if err := s.Set(name, v); err != nil {
		t.Fatalf("Set(%s, %v): %v", name, v, err)
	}
}

func TestCharIntStruct(t *testing.T) {
	l := layout.NewBuilder(types.Host).Name("ci").Field("c", "char").Field("i", "int").MustBuild()
	if l.Size() != 8 {
		t.Fatalf("size = %d, want 8", l.Size())
	}
	s := newInstance(t, l)
	if !s.Owned() {
		t.Error("instance without backing must own its storage")
	}

	if got := mustGet(t, s, "c"); got != int8(0) {
		t.Errorf("fresh c = %v", got)
	}
	mustSet(t, s, "c", 'A')
	mustSet(t, s, "i", 123456)

	if got := mustGet(t, s, "c"); got != int8('A') {
		t.Errorf("c = %v", got)
	}
	if got := mustGet(t, s, "i"); got != int32(123456) {
		t.Errorf("i = %v", got)
	}
	if v, _ := s.Pointer().GetInt32(4); v != 123456 {
		t.Errorf("i stored at offset 4 = %d", v)
	}
	if off, _ := s.OffsetOf("i"); off != 4 {
		t.Errorf("OffsetOf(i) = %d", off)
	}

	vals, err := s.Values()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int8('A'), int32(123456)}, vals); diff != "" {
		t.Errorf("Values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "i"}, s.Members()); diff != "" {
		t.Errorf("Members (-want +got):\n%s", diff)
	}
	if got := s.String(); got != "ci{c: 65, i: 123456}" {
		t.Errorf("String = %q", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, s, "i"); got != int32(0) {
		t.Errorf("after Clear i = %v", got)
	}
}

func TestScalarConversions(t *testing.T) {
	l := layout.NewBuilder(types.Host).
		Name("mix").
		Field("b", "bool").
		Field("i8", "int8").
		Field("u8", "uint8").
		Field("u16", "ushort").
		Field("i64", "long_long").
		Field("u64", "uint64").
		Field("f", "float").
		Field("d", "double").
		MustBuild()
	s := newInstance(t, l)

	ok := []struct {
		field string
		in    any
		want  any
	}{
		{"b", true, true},
		{"i8", -128, int8(-128)},
		{"u8", uint(255), uint8(255)},
		{"u16", int64(65535), uint16(65535)},
		{"i64", int64(-1) << 62, int64(-1) << 62},
		{"u64", ^uint64(0), ^uint64(0)},
		{"f", 1.5, float32(1.5)},
		{"d", 3, float64(3)},
	}
	for _, tt := range ok {
		t.Run(tt.field, func(t *testing.T) {
			mustSet(t, s, tt.field, tt.in)
			if got := mustGet(t, s, tt.field); got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	bad := []struct {
		name  string
		field string
		in    any
		kind  errors.Kind
	}{
		{"int8 too large", "i8", 128, errors.KindOverflow},
		{"int8 too small", "i8", -129, errors.KindOverflow},
		{"uint8 negative", "u8", -1, errors.KindOverflow},
		{"uint16 too large", "u16", 65536, errors.KindOverflow},
		{"int64 from huge uint", "i64", ^uint64(0), errors.KindOverflow},
		{"float32 too large", "f", 1e40, errors.KindOverflow},
		{"string into int", "i8", "1", errors.KindTypeMismatch},
		{"float into int", "i8", 1.0, errors.KindTypeMismatch},
		{"int into bool", "b", 1, errors.KindTypeMismatch},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Set(tt.field, tt.in)
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("kind = %q (%v), want %q", got, err, tt.kind)
			}
		})
	}
}

func TestUnknownField(t *testing.T) {
	l := layout.NewBuilder(nil).Name("one").Field("a", "int").MustBuild()
	s := newInstance(t, l)
	if _, err := s.Get("b"); !errors.Is(err, errors.ErrUnknownField) {
		t.Errorf("Get: %v", err)
	}
	if err := s.Set("b", 1); !errors.Is(err, errors.ErrUnknownField) {
		t.Errorf("Set: %v", err)
	}
}

func TestCharArray(t *testing.T) {
	l := layout.NewBuilder(nil).Name("named").Array("name", "char", 8).Field("n", "int").MustBuild()
	s := newInstance(t, l)

	mustSet(t, s, "name", "abcdefghij")
	if got := mustGet(t, s, "name"); got != "abcdefgh" {
		t.Errorf("truncated name = %q", got)
	}

	mustSet(t, s, "name", []byte("hi"))
	if got := mustGet(t, s, "name"); got != "hi" {
		t.Errorf("name = %q", got)
	}
	raw, _ := s.Pointer().ReadBytes(8)
	if diff := cmp.Diff([]byte{'h', 'i', 0, 0, 0, 0, 0, 0}, raw); diff != "" {
		t.Errorf("padding (-want +got):\n%s", diff)
	}
	if err := s.Set("name", 42); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("int into char array: %v", err)
	}
}

func TestArrays(t *testing.T) {
	l := layout.NewBuilder(types.Host).
		Name("arrays").
		Array("v", "int16", 3).
		Array("flags", "bool", 2).
		Array("ptrs", "pointer", 2).
		MustBuild()
	s := newInstance(t, l)

	mustSet(t, s, "v", []int16{1, -2, 3})
	if diff := cmp.Diff([]int16{1, -2, 3}, mustGet(t, s, "v")); diff != "" {
		t.Errorf("v (-want +got):\n%s", diff)
	}
	mustSet(t, s, "v", []int{4, 5, 6})
	if diff := cmp.Diff([]int16{4, 5, 6}, mustGet(t, s, "v")); diff != "" {
		t.Errorf("v from []int (-want +got):\n%s", diff)
	}
	mustSet(t, s, "flags", [2]bool{true, false})
	if diff := cmp.Diff([]bool{true, false}, mustGet(t, s, "flags")); diff != "" {
		t.Errorf("flags (-want +got):\n%s", diff)
	}

	if err := s.Set("v", []int16{1, 2}); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("short array: %v", err)
	}
	if err := s.Set("v", []int{1, 2, 70000}); errors.KindOf(err) != errors.KindOverflow {
		t.Errorf("element overflow: %v", err)
	}
	if err := s.Set("v", 7); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("scalar into array: %v", err)
	}

	target, err := pointer.Allocate(4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Free()
	mustSet(t, s, "ptrs", []*pointer.Pointer{target.Pointer, nil})
	ptrs := mustGet(t, s, "ptrs").([]*pointer.Pointer)
	if ptrs[0].Address() != target.Address() || !ptrs[1].IsNull() {
		t.Errorf("ptrs = %v", ptrs)
	}
}

func TestNestedStructs(t *testing.T) {
	inner := layout.NewBuilder(types.Host).Name("inner").Field("c", "char").Field("i", "int").MustBuild()
	outer := layout.NewBuilder(types.Host).
		Name("outer").
		Field("a", "char").
		Nested("in", inner).
		ArrayOf("list", layout.Nested{Layout: inner}, 2).
		MustBuild()
	s := newInstance(t, outer)

	view := mustGet(t, s, "in").(*Instance)
	if view.Owned() {
		t.Error("nested view owns storage")
	}
	mustSet(t, view, "i", 77)
	if v, _ := s.Pointer().GetInt32(8); v != 77 {
		t.Errorf("write through nested view: parent sees %d", v)
	}

	src := newInstance(t, inner)
	mustSet(t, src, "c", 1)
	mustSet(t, src, "i", 2)
	mustSet(t, s, "in", src)
	if got := mustGet(t, view, "i"); got != int32(2) {
		t.Errorf("copied i = %v", got)
	}

	mustSet(t, s, "in", map[string]any{"c": 9, "i": 10})
	if got := mustGet(t, view, "c"); got != int8(9) {
		t.Errorf("map assigned c = %v", got)
	}
	if err := s.Set("in", map[string]any{"zz": 1}); !errors.Is(err, errors.ErrUnknownField) {
		t.Errorf("map with unknown key: %v", err)
	}

	other := layout.NewBuilder(types.Host).Name("other").Field("x", "char").MustBuild()
	if err := s.Set("in", newInstance(t, other)); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("mismatched struct: %v", err)
	}

	list := mustGet(t, s, "list").([]*Instance)
	if len(list) != 2 {
		t.Fatalf("len(list) = %d", len(list))
	}
	mustSet(t, list[1], "i", -5)
	off, _ := s.OffsetOf("list")
	if v, _ := s.Pointer().GetInt32(off + inner.Size() + 4); v != -5 {
		t.Errorf("list[1].i in parent = %d", v)
	}
	if err := list[0].Set("nope", 1); err == nil {
		t.Error("unknown field on array element accepted")
	} else if e, ok := err.(*errors.Error); !ok || len(e.Path) == 0 || e.Path[len(e.Path)-1] != "list[0]" {
		t.Errorf("path of element error = %v", err)
	}
}

func TestPointerFields(t *testing.T) {
	l := layout.NewBuilder(types.Host).
		Name("ptrs").
		Field("s", "string").
		Field("p", "pointer").
		FuncPtr("cb").
		MustBuild()
	s := newInstance(t, l)

	if got := mustGet(t, s, "s"); got != nil {
		t.Errorf("NULL string = %v", got)
	}

	str, err := pointer.Allocate(8)
	if err != nil {
		t.Fatal(err)
	}
	defer str.Free()
	_ = str.WriteString("hi")

	off, _ := s.OffsetOf("s")
	if err := s.Pointer().PutPointer(off, str.Pointer); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, s, "s"); got != "hi" {
		t.Errorf("string = %v", got)
	}
	if err := s.Set("s", "nope"); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("string field write: %v", err)
	}

	mustSet(t, s, "p", str)
	p := mustGet(t, s, "p").(*pointer.Pointer)
	if p.Address() != str.Address() {
		t.Errorf("p = %v, want %v", p, str)
	}
	mustSet(t, s, "p", nil)
	if p := mustGet(t, s, "p").(*pointer.Pointer); !p.IsNull() {
		t.Errorf("p after nil = %v", p)
	}

	mustSet(t, s, "cb", uintptr(0x1000))
	if cb := mustGet(t, s, "cb").(*pointer.Pointer); cb.Address() != 0x1000 {
		t.Errorf("cb = %v", cb)
	}
	if err := s.Set("cb", "fn"); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("string into callback: %v", err)
	}
}

func TestViews(t *testing.T) {
	l := layout.NewBuilder(types.Host).Name("pair").Field("a", "int").Field("b", "int").MustBuild()

	mp, err := pointer.Allocate(8)
	if err != nil {
		t.Fatal(err)
	}
	defer mp.Free()
	view, err := New(l, mp.Pointer)
	if err != nil {
		t.Fatal(err)
	}
	if view.Owned() {
		t.Error("view owns storage")
	}
	mustSet(t, view, "b", 3)
	if v, _ := mp.GetInt32(4); v != 3 {
		t.Errorf("b in backing memory = %d", v)
	}
	view.Free()
	if mp.Freed() {
		t.Error("freeing a view released the backing memory")
	}

	short, _ := mp.Slice(0, 4)
	if _, err := New(l, short); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("backing too small: %v", err)
	}

	null, err := New(l, pointer.Null)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := null.Get("b"); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("read through NULL: %v", err)
	}
}

func TestFreedInstance(t *testing.T) {
	l := layout.NewBuilder(nil).Name("x").Field("a", "int").MustBuild()
	s, err := New(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Free()
	s.Free()
	if _, err := s.Get("a"); !errors.Is(err, errors.ErrUseAfterFree) {
		t.Errorf("Get after Free: %v", err)
	}
}

func TestLinearInstance(t *testing.T) {
	ctx := context.Background()
	sp, err := linear.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sp.Close(ctx) })

	l := layout.NewBuilder(types.Wasm32).Name("node").Field("tag", "char").Field("next", "pointer").MustBuild()
	if l.Size() != 8 {
		t.Fatalf("wasm32 node size = %d", l.Size())
	}
	s := newInstance(t, l, pointer.WithSpace(sp))
	mustSet(t, s, "next", s.Pointer())
	if v, _ := s.Pointer().GetUint32(4); uintptr(v) != s.Pointer().Address() {
		t.Errorf("next = %#x, want %#x", v, s.Pointer().Address())
	}
	next := mustGet(t, s, "next").(*pointer.Pointer)
	if !next.Equal(pointer.New(sp, s.Pointer().Address())) {
		t.Errorf("next = %v", next)
	}
	if sp.LiveAllocations() != 1 {
		t.Errorf("LiveAllocations = %d", sp.LiveAllocations())
	}
}

func nestedViews(t *testing.T) (in, elem *Instance) {
	t.Helper()
	inner := layout.NewBuilder(types.Host).Name("inner").Field("c", "char").Field("i", "int").MustBuild()
	outer := layout.NewBuilder(types.Host).
		Name("outer").
		Nested("in", inner).
		ArrayOf("list", layout.Nested{Layout: inner}, 2).
		MustBuild()
	s, err := New(outer, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustSet(t, s, "in", map[string]any{"i": 41})
	list := mustGet(t, s, "list").([]*Instance)
	return mustGet(t, s, "in").(*Instance), list[1]
}

func TestViewsKeepOwnerAlive(t *testing.T) {
	in, elem := nestedViews(t)

	for range 20 {
		runtime.GC()
	}
	if in.keep.Freed() {
		t.Fatal("parent storage released while views were reachable")
	}
	if got := mustGet(t, in, "i"); got != int32(41) {
		t.Errorf("in.i = %v", got)
	}
	mustSet(t, elem, "i", 3)
	if got := mustGet(t, elem, "i"); got != int32(3) {
		t.Errorf("list[1].i = %v", got)
	}

	in.Free()
	if in.Owned() || in.keep.Freed() {
		t.Error("Free on a view released the parent")
	}
	in.keep.Free()
}

func TestPointerWidthMismatch(t *testing.T) {
	foreign := types.I386
	if types.Host.Platform().WordSize == 4 {
		foreign = types.AMD64
	}
	l := layout.NewBuilder(foreign).Name("p").Field("next", "pointer").MustBuild()

	if _, err := New(l, nil); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("allocated %s layout in host memory: %v", foreign.Platform().Name, err)
	}

	backing, err := pointer.Allocate(16)
	if err != nil {
		t.Fatal(err)
	}
	defer backing.Free()
	if _, err := New(l, backing.Pointer); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("view of %s layout on host memory: %v", foreign.Platform().Name, err)
	}

	ctx := context.Background()
	sp, err := linear.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sp.Close(ctx) })
	wide := layout.NewBuilder(types.AMD64).Name("w").Field("next", "pointer").MustBuild()
	if _, err := New(wide, nil, pointer.WithSpace(sp)); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("amd64 layout in linear memory: %v", err)
	}
	if sp.LiveAllocations() != 0 {
		t.Errorf("rejected instance leaked %d allocations", sp.LiveAllocations())
	}
}
