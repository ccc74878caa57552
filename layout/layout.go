package layout

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/types"
)

// Field is a placed member of a layout.
type Field struct {
	Name   string
	Type   TypeSpec
	Offset uintptr
}

func (f Field) Size() uintptr  { return f.Type.Size() }
func (f Field) Align() uintptr { return f.Type.Align() }
func (f Field) End() uintptr   { return f.Offset + f.Type.Size() }

// FieldSpec declares a field. A nil Offset places the field by the C rules;
// a set Offset is used verbatim.
type FieldSpec struct {
	Name   string
	Type   TypeSpec
	Offset *uintptr
}

// Layout is the computed memory shape of a struct or union. It is immutable
// and safe to share.
type Layout struct {
	name   string
	reg    *types.Registry
	fields []Field
	index  map[string]int
	size   uintptr
	align  uintptr
	union  bool
}

func (l *Layout) Name() string              { return l.name }
func (l *Layout) Size() uintptr             { return l.size }
func (l *Layout) Align() uintptr            { return l.align }
func (l *Layout) IsUnion() bool             { return l.union }
func (l *Layout) NumFields() int            { return len(l.fields) }
func (l *Layout) Registry() *types.Registry { return l.reg }
func (l *Layout) FieldAt(i int) Field       { return l.fields[i] }

// Fields returns the fields in declaration order.
func (l *Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Names returns the field names in declaration order.
func (l *Layout) Names() []string {
	out := make([]string, len(l.fields))
	for i, f := range l.fields {
		out[i] = f.Name
	}
	return out
}

func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// OffsetOf returns the byte offset of a field.
func (l *Layout) OffsetOf(name string) (uintptr, error) {
	f, ok := l.Field(name)
	if !ok {
		return 0, errors.UnknownField(errors.PhaseLayout, []string{l.name}, name)
	}
	return f.Offset, nil
}

func (l *Layout) String() string {
	var sb strings.Builder
	kw := "struct"
	if l.union {
		kw = "union"
	}
	fmt.Fprintf(&sb, "%s %s (size %d, align %d) {\n", kw, l.name, l.size, l.align)
	for _, f := range l.fields {
		fmt.Fprintf(&sb, "  +%-4d %s %s; // %d bytes\n", f.Offset, f.Type, f.Name, f.Size())
	}
	sb.WriteString("}")
	return sb.String()
}

func alignUp(x, a uintptr) uintptr {
	if a <= 1 {
		return x
	}
	return (x + a - 1) / a * a
}

// Compute places fields by the platform C rules and returns the layout.
//
// Struct fields go at the next offset aligned for their type; union fields
// all go at offset 0. Explicit offsets are trusted as given, with a warning
// when misaligned or overlapping an earlier field. The size is the furthest
// field end rounded up to the largest field alignment.
func Compute(name string, reg *types.Registry, specs []FieldSpec, union bool) (*Layout, error) {
	if reg == nil {
		reg = types.Host
	}
	l := &Layout{
		name:   name,
		reg:    reg,
		fields: make([]Field, 0, len(specs)),
		index:  make(map[string]int, len(specs)),
		union:  union,
	}

	var cursor, end uintptr
	maxAlign := uintptr(1)

	for _, spec := range specs {
		typ, err := normalize(reg, l.name, spec)
		if err != nil {
			return nil, err
		}
		if _, dup := l.index[spec.Name]; dup {
			return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
				Path(name, spec.Name).
				Detail("duplicate field").
				Build()
		}

		size, align := typ.Size(), typ.Align()
		if align == 0 {
			align = 1
		}

		var off uintptr
		switch {
		case spec.Offset != nil:
			off = *spec.Offset
			if off%align != 0 {
				Logger().Warn("misaligned explicit offset",
					zap.String("layout", name),
					zap.String("field", spec.Name),
					zap.Uintptr("offset", off),
					zap.Uintptr("align", align))
			}
			if !union && off < cursor {
				Logger().Warn("explicit offset overlaps previous field",
					zap.String("layout", name),
					zap.String("field", spec.Name),
					zap.Uintptr("offset", off),
					zap.Uintptr("previous_end", cursor))
			}
		case union:
			off = 0
		default:
			off = alignUp(cursor, align)
		}

		if off+size < off {
			return nil, errors.Overflow(errors.PhaseLayout, []string{name, spec.Name}, off, "uintptr")
		}
		if !union {
			cursor = off + size
		}
		end = max(end, off+size)
		maxAlign = max(maxAlign, align)

		l.index[spec.Name] = len(l.fields)
		l.fields = append(l.fields, Field{Name: spec.Name, Type: typ, Offset: off})
	}

	l.align = maxAlign
	l.size = alignUp(end, maxAlign)
	return l, nil
}

// normalize validates a field spec and fills in platform defaults.
func normalize(reg *types.Registry, layout string, spec FieldSpec) (TypeSpec, error) {
	path := []string{layout, spec.Name}
	if spec.Name == "" {
		return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
			Path(layout).
			Detail("field without name").
			Build()
	}
	switch t := spec.Type.(type) {
	case nil:
		return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
			Path(path...).
			Detail("field without type").
			Build()
	case Scalar:
		if t.Desc.Code == types.CodeVoid || t.Desc.Size == 0 {
			return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
				Path(path...).
				CType(t.Desc.Name).
				Detail("field of zero-sized type").
				Build()
		}
		return t, nil
	case FuncPtr:
		if t.Desc.Size == 0 {
			t.Desc = reg.MustResolve("pointer")
		}
		return t, nil
	case Nested:
		if t.Layout == nil {
			return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
				Path(path...).
				Detail("nested layout is nil").
				Build()
		}
		return t, nil
	case Array:
		if t.Count < 0 {
			return nil, errors.New(errors.PhaseLayout, errors.KindArgument).
				Path(path...).
				Value(t.Count).
				Detail("negative array length").
				Build()
		}
		elem, err := normalize(reg, layout, FieldSpec{Name: spec.Name, Type: t.Elem})
		if err != nil {
			return nil, err
		}
		if es := elem.Size(); es != 0 && uint64(t.Count) > uint64(^uintptr(0)/es) {
			return nil, errors.Overflow(errors.PhaseLayout, path, t.Count, t.String())
		}
		return Array{Elem: elem, Count: t.Count}, nil
	}
	return nil, errors.Unsupported(errors.PhaseLayout, fmt.Sprintf("field type %T", spec.Type))
}
