package layout

import (
	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/types"
)

// Builder collects field declarations in order. Type names are resolved
// against the builder's registry; the first failure is kept and returned by
// Build.
//
//	point, err := layout.NewBuilder(types.Host).
//		Name("point").
//		Field("x", "int").
//		Field("y", "int").
//		Build()
type Builder struct {
	reg   *types.Registry
	name  string
	union bool
	specs []FieldSpec
	err   error
}

// NewBuilder starts a struct layout. A nil registry means types.Host.
func NewBuilder(reg *types.Registry) *Builder {
	if reg == nil {
		reg = types.Host
	}
	return &Builder{reg: reg}
}

// NewUnionBuilder starts a union layout.
func NewUnionBuilder(reg *types.Registry) *Builder {
	b := NewBuilder(reg)
	b.union = true
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Field adds a scalar field of the named registry type.
func (b *Builder) Field(name, typ string) *Builder {
	return b.scalar(name, typ, nil)
}

// FieldAt adds a scalar field at an explicit offset.
func (b *Builder) FieldAt(name, typ string, offset uintptr) *Builder {
	return b.scalar(name, typ, &offset)
}

// Array adds count elements of the named type. char and char_array
// elements make a C string buffer.
func (b *Builder) Array(name, elem string, count int) *Builder {
	if elem == "char" {
		elem = "char_array"
	}
	d, ok := b.resolve(elem)
	if !ok {
		return b
	}
	return b.Spec(FieldSpec{Name: name, Type: Array{Elem: Scalar{Desc: d}, Count: count}})
}

// ArrayOf adds count elements of an arbitrary type, such as a nested layout.
func (b *Builder) ArrayOf(name string, elem TypeSpec, count int) *Builder {
	return b.Spec(FieldSpec{Name: name, Type: Array{Elem: elem, Count: count}})
}

// Nested embeds l by value.
func (b *Builder) Nested(name string, l *Layout) *Builder {
	return b.Spec(FieldSpec{Name: name, Type: Nested{Layout: l}})
}

// FuncPtr adds a function pointer field.
func (b *Builder) FuncPtr(name string) *Builder {
	return b.Spec(FieldSpec{Name: name, Type: FuncPtr{Desc: b.reg.MustResolve("pointer")}})
}

// Spec adds a prepared field declaration.
func (b *Builder) Spec(fs FieldSpec) *Builder {
	if b.err == nil {
		b.specs = append(b.specs, fs)
	}
	return b
}

// Err returns the first declaration error, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) Build() (*Layout, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Compute(b.name, b.reg, b.specs, b.union)
}

// MustBuild is Build for declarations known to be valid.
func (b *Builder) MustBuild() *Layout {
	l, err := b.Build()
	if err != nil {
		panic(err)
	}
	return l
}

func (b *Builder) scalar(name, typ string, offset *uintptr) *Builder {
	d, ok := b.resolve(typ)
	if !ok {
		return b
	}
	return b.Spec(FieldSpec{Name: name, Type: Scalar{Desc: d}, Offset: offset})
}

func (b *Builder) resolve(typ string) (types.Descriptor, bool) {
	if b.err != nil {
		return types.Descriptor{}, false
	}
	d, err := b.reg.Resolve(typ)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Path = append([]string{b.name}, e.Path...)
		}
		b.err = err
		return types.Descriptor{}, false
	}
	return d, true
}
