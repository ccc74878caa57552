package cstruct

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/layout"
	"github.com/wippyai/ffi-memory/pointer"
	"github.com/wippyai/ffi-memory/types"
)

// Instance reads and writes the fields of a layout through a pointer.
type Instance struct {
	layout *layout.Layout
	ptr    *pointer.Pointer
	owner  *pointer.MemoryPointer
	keep   *pointer.MemoryPointer // root allocation, held by views
	path   []string
}

// New returns an instance of l. With a nil backing pointer it allocates a
// zero-filled block of l.Size() bytes that the instance owns; opts are passed
// to the allocation. Otherwise the instance is a view on backing.
//
// The layout's pointer width must match the memory it lives in.
func New(l *layout.Layout, backing *pointer.Pointer, opts ...pointer.Option) (*Instance, error) {
	if l == nil {
		return nil, errors.Argument(errors.PhaseStruct, "nil layout")
	}
	if backing != nil {
		if err := checkWidth(l, backing.Memory()); err != nil {
			return nil, err
		}
		if n, ok := backing.Bound(); ok && n < l.Size() {
			return nil, errors.OutOfBounds(errors.PhaseStruct, 0, l.Size(), n)
		}
		return &Instance{layout: l, ptr: backing, path: []string{l.Name()}}, nil
	}

	all := append([]pointer.Option{pointer.WithAlign(max(l.Align(), 1))}, opts...)
	mp, err := pointer.Allocate(l.Size(), all...)
	if err != nil {
		return nil, err
	}
	if err := checkWidth(l, mp.Memory()); err != nil {
		mp.Free()
		return nil, err
	}
	return &Instance{layout: l, ptr: mp.Pointer, owner: mp, keep: mp, path: []string{l.Name()}}, nil
}

func checkWidth(l *layout.Layout, mem ffimemory.Memory) error {
	word := l.Registry().Platform().WordSize
	if word == mem.PointerSize() {
		return nil
	}
	return errors.New(errors.PhaseStruct, errors.KindArgument).
		Path(l.Name()).
		Detail("layout has %d-byte pointers, memory has %d-byte pointers", word, mem.PointerSize()).
		Build()
}

func (s *Instance) Layout() *layout.Layout {
	return s.layout
}

// Pointer returns the start of the instance's storage.
func (s *Instance) Pointer() *pointer.Pointer {
	return s.ptr
}

// Owned reports whether the instance allocated its own storage. Views of an
// owned instance report false.
func (s *Instance) Owned() bool {
	return s.owner != nil
}

// Free releases owned storage. It does nothing for views.
func (s *Instance) Free() {
	if s.owner != nil {
		s.owner.Free()
	}
}

// Members returns the field names in declaration order.
func (s *Instance) Members() []string {
	return s.layout.Names()
}

func (s *Instance) OffsetOf(name string) (uintptr, error) {
	return s.layout.OffsetOf(name)
}

// Values returns every field value in declaration order.
func (s *Instance) Values() ([]any, error) {
	out := make([]any, 0, s.layout.NumFields())
	for _, f := range s.layout.Fields() {
		v, err := s.Get(f.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Clear zeroes the whole instance.
func (s *Instance) Clear() error {
	defer runtime.KeepAlive(s.keep)
	return s.ptr.Clear(int(s.layout.Size()))
}

// Bytes copies the raw storage.
func (s *Instance) Bytes() ([]byte, error) {
	defer runtime.KeepAlive(s.keep)
	return s.ptr.ReadBytes(int(s.layout.Size()))
}

func (s *Instance) field(name string) (layout.Field, *pointer.Pointer, []string, error) {
	f, ok := s.layout.Field(name)
	if !ok {
		return f, nil, nil, errors.UnknownField(errors.PhaseStruct, s.path, name)
	}
	if s.ptr.IsNull() {
		return f, nil, nil, errors.NullPointer(errors.PhaseStruct, "struct "+s.layout.Name())
	}
	p, err := s.ptr.Slice(f.Offset, f.Size())
	if err != nil {
		return f, nil, nil, err
	}
	path := append(append([]string(nil), s.path...), name)
	return f, p, path, nil
}

// Get reads a field.
//
// Scalars come back as the matching Go type (int32 for int, float64 for
// double, and so on). Pointers and callbacks come back as *pointer.Pointer.
// A string field returns the C string it points to, or nil for NULL. A char
// array returns its contents up to the first NUL. A nested struct returns an
// *Instance sharing this instance's storage. Other arrays return a slice of
// the element type: []*Instance for structs and []*pointer.Pointer for
// pointers and strings.
func (s *Instance) Get(name string) (any, error) {
	f, p, path, err := s.field(name)
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s.keep)
	return get(p, f.Type, path, s.keep)
}

// Set writes a field.
//
// Integers are range checked against the field type. A char array accepts a
// string or []byte, truncated to the array length and NUL padded. Other
// arrays need a slice of exactly the declared length. A nested struct accepts
// an *Instance of the same size, copied byte for byte, or a map of field
// values. String fields are read-only.
func (s *Instance) Set(name string, v any) error {
	f, p, path, err := s.field(name)
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s.keep)
	return set(p, f.Type, v, path)
}

// get decodes typ at p. Views it returns hold keep.
func get(p *pointer.Pointer, typ layout.TypeSpec, path []string, keep *pointer.MemoryPointer) (any, error) {
	switch t := typ.(type) {
	case layout.Scalar:
		if t.Desc.Code == types.CodeCharArray {
			return getCharArray(p, 1)
		}
		return getScalar(p, t.Desc)
	case layout.FuncPtr:
		return value(p.ReadPointer())
	case layout.Nested:
		return &Instance{layout: t.Layout, ptr: p, keep: keep, path: path}, nil
	case layout.Array:
		return getArray(p, t, path, keep)
	}
	return nil, errors.Unsupported(errors.PhaseStruct, fmt.Sprintf("field type %T", typ))
}

func getCharArray(p *pointer.Pointer, n int) (string, error) {
	b, err := p.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

func getArray(p *pointer.Pointer, t layout.Array, path []string, keep *pointer.MemoryPointer) (any, error) {
	if t.IsCharArray() {
		return getCharArray(p, t.Count)
	}
	if s, ok := t.Elem.(layout.Scalar); ok {
		switch s.Desc.Code {
		case types.CodeBool:
			raw, err := p.ReadBytes(t.Count)
			if err != nil {
				return nil, err
			}
			out := make([]bool, len(raw))
			for i, b := range raw {
				out[i] = b != 0
			}
			return out, nil
		case types.CodeInt8:
			return value(pointer.GetArray[int8](p, 0, t.Count))
		case types.CodeUint8:
			return value(pointer.GetArray[uint8](p, 0, t.Count))
		case types.CodeInt16:
			return value(pointer.GetArray[int16](p, 0, t.Count))
		case types.CodeUint16:
			return value(pointer.GetArray[uint16](p, 0, t.Count))
		case types.CodeInt32:
			return value(pointer.GetArray[int32](p, 0, t.Count))
		case types.CodeUint32:
			return value(pointer.GetArray[uint32](p, 0, t.Count))
		case types.CodeInt64:
			return value(pointer.GetArray[int64](p, 0, t.Count))
		case types.CodeUint64:
			return value(pointer.GetArray[uint64](p, 0, t.Count))
		case types.CodeFloat32:
			return value(pointer.GetArray[float32](p, 0, t.Count))
		case types.CodeFloat64:
			return value(pointer.GetArray[float64](p, 0, t.Count))
		case types.CodePointer, types.CodeString:
			return value(p.GetPointerArray(0, t.Count))
		}
	}
	if _, ok := t.Elem.(layout.FuncPtr); ok {
		return value(p.GetPointerArray(0, t.Count))
	}

	size := t.Elem.Size()
	if n, ok := t.Elem.(layout.Nested); ok {
		out := make([]*Instance, t.Count)
		for i := range out {
			ep, err := p.Slice(uintptr(i)*size, size)
			if err != nil {
				return nil, err
			}
			out[i] = &Instance{layout: n.Layout, ptr: ep, keep: keep, path: index(path, i)}
		}
		return out, nil
	}

	out := make([]any, t.Count)
	for i := range out {
		ep, err := p.Slice(uintptr(i)*size, size)
		if err != nil {
			return nil, err
		}
		if out[i], err = get(ep, t.Elem, index(path, i), keep); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func set(p *pointer.Pointer, typ layout.TypeSpec, v any, path []string) error {
	switch t := typ.(type) {
	case layout.Scalar:
		if t.Desc.Code == types.CodeCharArray {
			return setCharArray(p, 1, v, path)
		}
		return putScalar(p, t.Desc, v, path)
	case layout.FuncPtr:
		addr, ok := address(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseStruct, path, fmt.Sprintf("%T", v), "callback")
		}
		return p.PutAddress(0, addr)
	case layout.Nested:
		return setNested(p, t.Layout, v, path)
	case layout.Array:
		if t.IsCharArray() {
			return setCharArray(p, t.Count, v, path)
		}
		return setArray(p, t, v, path)
	}
	return errors.Unsupported(errors.PhaseStruct, fmt.Sprintf("field type %T", typ))
}

func setCharArray(p *pointer.Pointer, n int, v any, path []string) error {
	var src []byte
	switch x := v.(type) {
	case string:
		src = []byte(x)
	case []byte:
		src = x
	default:
		return errors.TypeMismatch(errors.PhaseStruct, path, fmt.Sprintf("%T", v), "char_array")
	}
	buf := make([]byte, n)
	copy(buf, src)
	return p.WriteBytes(buf)
}

func setNested(p *pointer.Pointer, l *layout.Layout, v any, path []string) error {
	switch x := v.(type) {
	case *Instance:
		if x == nil || x.layout.Size() != l.Size() {
			return errors.TypeMismatch(errors.PhaseStruct, path, describe(x), "struct "+l.Name())
		}
		defer runtime.KeepAlive(x.keep)
		return pointer.Copy(p, x.ptr, l.Size())
	case map[string]any:
		view := &Instance{layout: l, ptr: p, path: path}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := view.Set(k, x[k]); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.TypeMismatch(errors.PhaseStruct, path, fmt.Sprintf("%T", v), "struct "+l.Name())
}

func setArray(p *pointer.Pointer, t layout.Array, v any, path []string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return errors.TypeMismatch(errors.PhaseStruct, path, fmt.Sprintf("%T", v), t.String())
	}
	if rv.Len() != t.Count {
		return errors.New(errors.PhaseStruct, errors.KindArgument).
			Path(path...).
			CType(t.String()).
			Value(rv.Len()).
			Detail("array needs exactly %d elements, got %d", t.Count, rv.Len()).
			Build()
	}
	size := t.Elem.Size()
	for i := 0; i < t.Count; i++ {
		ep, err := p.Slice(uintptr(i)*size, size)
		if err != nil {
			return err
		}
		if err := set(ep, t.Elem, rv.Index(i).Interface(), index(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func index(path []string, i int) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	if len(out) == 0 {
		return []string{"[" + strconv.Itoa(i) + "]"}
	}
	out[len(out)-1] += "[" + strconv.Itoa(i) + "]"
	return out
}

func describe(s *Instance) string {
	if s == nil {
		return "nil"
	}
	return "struct " + s.layout.Name()
}

func (s *Instance) String() string {
	var sb strings.Builder
	sb.WriteString(s.layout.Name())
	sb.WriteString("{")
	for i, f := range s.layout.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, err := s.Get(f.Name)
		if err != nil {
			fmt.Fprintf(&sb, "%s: <%v>", f.Name, errors.KindOf(err))
			continue
		}
		switch x := v.(type) {
		case string:
			fmt.Fprintf(&sb, "%s: %q", f.Name, x)
		default:
			fmt.Fprintf(&sb, "%s: %v", f.Name, x)
		}
	}
	sb.WriteString("}")
	return sb.String()
}
