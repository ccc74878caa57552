package layout

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/types"
)

// WITConverter builds canonical ABI layouts of WIT types. Converted type
// definitions are cached, so one converter should be reused for types from the
// same document.
type WITConverter struct {
	reg      *types.Registry
	cache    map[*wit.TypeDef]TypeSpec
	visiting map[*wit.TypeDef]bool
	slice    *Layout
}

// NewWITConverter returns a converter for the wasm32 canonical ABI.
func NewWITConverter() *WITConverter {
	return NewWITConverterFor(types.Wasm32)
}

// NewWITConverterFor lays WIT types out on reg. Sizes and alignments follow
// the canonical ABI rules with reg's pointer width, so string and list fields
// can be read through memory of that platform.
func NewWITConverterFor(reg *types.Registry) *WITConverter {
	if reg == nil {
		reg = types.Host
	}
	return &WITConverter{
		reg:      reg,
		cache:    make(map[*wit.TypeDef]TypeSpec),
		visiting: make(map[*wit.TypeDef]bool),
		slice: NewBuilder(reg).
			Name("slice").
			Field("ptr", "pointer").
			Field("len", "uint32").
			MustBuild(),
	}
}

// FromWIT returns the layout of t. Records, tuples, variants, options and
// results map to their own layout; any other type is wrapped in a one-field
// struct named after it.
func FromWIT(t wit.Type) (*Layout, error) {
	return NewWITConverter().Layout(t)
}

func (c *WITConverter) Layout(t wit.Type) (*Layout, error) {
	spec, err := c.Spec(t)
	if err != nil {
		return nil, err
	}
	if n, ok := spec.(Nested); ok {
		return n.Layout, nil
	}
	return Compute(witName(t), c.reg, []FieldSpec{{Name: "value", Type: spec}}, false)
}

// Spec returns the field type that stores t.
func (c *WITConverter) Spec(t wit.Type) (TypeSpec, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return c.scalar("bool"), nil
	case wit.U8:
		return c.scalar("uint8"), nil
	case wit.S8:
		return c.scalar("int8"), nil
	case wit.U16:
		return c.scalar("uint16"), nil
	case wit.S16:
		return c.scalar("int16"), nil
	case wit.U32, wit.Char:
		return c.scalar("uint32"), nil
	case wit.S32:
		return c.scalar("int32"), nil
	case wit.U64:
		return c.scalar("uint64"), nil
	case wit.S64:
		return c.scalar("int64"), nil
	case wit.F32:
		return c.scalar("float32"), nil
	case wit.F64:
		return c.scalar("float64"), nil
	case wit.String:
		return Nested{Layout: c.slice}, nil
	case *wit.TypeDef:
		return c.typeDef(typ)
	case nil:
		return nil, errors.Argument(errors.PhaseLayout, "nil WIT type")
	}
	return nil, errors.Unsupported(errors.PhaseLayout, fmt.Sprintf("WIT type %T", t))
}

func (c *WITConverter) scalar(name string) Scalar {
	return Scalar{Desc: c.reg.MustResolve(name)}
}

func (c *WITConverter) typeDef(td *wit.TypeDef) (TypeSpec, error) {
	if spec, ok := c.cache[td]; ok {
		return spec, nil
	}
	name := witName(td)
	if c.visiting[td] {
		return nil, errors.Cycle(errors.PhaseLayout, []string{name})
	}
	c.visiting[td] = true
	defer delete(c.visiting, td)

	var (
		spec TypeSpec
		err  error
	)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		specs := make([]FieldSpec, len(kind.Fields))
		for i, f := range kind.Fields {
			specs[i].Name = f.Name
			if specs[i].Type, err = c.Spec(f.Type); err != nil {
				return nil, err
			}
		}
		spec, err = c.nested(name, specs, false)
	case *wit.Tuple:
		specs := make([]FieldSpec, len(kind.Types))
		for i, et := range kind.Types {
			specs[i].Name = fmt.Sprintf("f%d", i)
			if specs[i].Type, err = c.Spec(et); err != nil {
				return nil, err
			}
		}
		spec, err = c.nested(name, specs, false)
	case *wit.List:
		spec = Nested{Layout: c.slice}
	case *wit.Enum:
		spec = c.discriminant(len(kind.Cases))
	case *wit.Flags:
		spec, err = c.flags(name, len(kind.Flags))
	case *wit.Variant:
		cases := make([]witCase, len(kind.Cases))
		for i, cs := range kind.Cases {
			cases[i] = witCase{name: cs.Name, typ: cs.Type}
		}
		spec, err = c.variant(name, cases)
	case *wit.Option:
		spec, err = c.variant(name, []witCase{{name: "none"}, {name: "some", typ: kind.Type}})
	case *wit.Result:
		spec, err = c.variant(name, []witCase{{name: "ok", typ: kind.OK}, {name: "err", typ: kind.Err}})
	case *wit.Own, *wit.Borrow:
		spec = c.scalar("uint32")
	case wit.Type:
		spec, err = c.Spec(kind)
	default:
		err = errors.Unsupported(errors.PhaseLayout, fmt.Sprintf("WIT kind %T", td.Kind))
	}
	if err != nil {
		return nil, err
	}
	c.cache[td] = spec
	return spec, nil
}

func (c *WITConverter) nested(name string, specs []FieldSpec, union bool) (TypeSpec, error) {
	l, err := Compute(name, c.reg, specs, union)
	if err != nil {
		return nil, err
	}
	return Nested{Layout: l}, nil
}

func (c *WITConverter) discriminant(cases int) Scalar {
	switch {
	case cases <= 1<<8:
		return c.scalar("uint8")
	case cases <= 1<<16:
		return c.scalar("uint16")
	}
	return c.scalar("uint32")
}

func (c *WITConverter) flags(name string, n int) (TypeSpec, error) {
	switch {
	case n == 0:
		return c.nested(name, nil, false)
	case n <= 8:
		return c.scalar("uint8"), nil
	case n <= 16:
		return c.scalar("uint16"), nil
	case n <= 32:
		return c.scalar("uint32"), nil
	case n <= 64:
		return c.scalar("uint64"), nil
	}
	return Array{Elem: c.scalar("uint32"), Count: (n + 31) / 32}, nil
}

type witCase struct {
	name string
	typ  wit.Type
}

// variant lays out a tag followed by a union of the case payloads.
func (c *WITConverter) variant(name string, cases []witCase) (TypeSpec, error) {
	if len(cases) == 0 {
		return c.nested(name, nil, false)
	}
	var payload []FieldSpec
	for _, cs := range cases {
		if cs.typ == nil {
			continue
		}
		spec, err := c.Spec(cs.typ)
		if err != nil {
			return nil, err
		}
		payload = append(payload, FieldSpec{Name: cs.name, Type: spec})
	}

	specs := []FieldSpec{{Name: "tag", Type: c.discriminant(len(cases))}}
	if len(payload) > 0 {
		u, err := Compute(name+".payload", c.reg, payload, true)
		if err != nil {
			return nil, err
		}
		specs = append(specs, FieldSpec{Name: "payload", Type: Nested{Layout: u}})
	}
	return c.nested(name, specs, false)
}

func witName(t wit.Type) string {
	if td, ok := t.(*wit.TypeDef); ok {
		if td.Name != nil {
			return *td.Name
		}
		switch td.Kind.(type) {
		case *wit.Record:
			return "record"
		case *wit.Tuple:
			return "tuple"
		case *wit.Variant:
			return "variant"
		case *wit.Option:
			return "option"
		case *wit.Result:
			return "result"
		case *wit.Enum:
			return "enum"
		case *wit.Flags:
			return "flags"
		case *wit.List:
			return "list"
		}
		return "type"
	}
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	}
	return "value"
}
