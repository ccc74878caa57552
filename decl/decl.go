package decl

import (
	"os"
	"sort"
	"strings"

	"go.bytecodealliance.org/wit"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/layout"
	"github.com/wippyai/ffi-memory/types"
)

// File is a parsed declaration file.
//
//	platform: amd64
//	types:
//	  point:
//	    fields:
//	      - {name: x, type: int}
//	      - {name: y, type: int}
//	  shape:
//	    fields:
//	      - {name: origin, type: point}
//	      - {name: label, type: char, count: 16}
//	      - {name: draw, type: callback}
//	  number:
//	    kind: union
//	    fields:
//	      - {name: i, type: long_long}
//	      - {name: d, type: double}
type File struct {
	Platform string              `yaml:"platform"`
	Types    map[string]TypeDecl `yaml:"types"`
}

type TypeDecl struct {
	Kind   string      `yaml:"kind"`
	Fields []FieldDecl `yaml:"fields"`
}

// FieldDecl declares one field. Type is a registry name, another declared
// type, "callback", or a WIT type written as "wit:<type>", laid out with the
// file's pointer width. A set Count makes the field an inline array.
type FieldDecl struct {
	Name   string  `yaml:"name"`
	Type   string  `yaml:"type"`
	Count  *int    `yaml:"count,omitempty"`
	Offset *uint64 `yaml:"offset,omitempty"`
}

const (
	KindStruct = "struct"
	KindUnion  = "union"
	callback   = "callback"
	witPrefix  = "wit:"
)

// Parse decodes a declaration file. JSON input is accepted as well.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.ParseFailed("declaration file", err)
	}
	return &f, nil
}

// Load reads, parses and resolves the declaration file at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecl, errors.KindInvalidData, err, "read "+path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Resolve(nil)
}

// Resolve computes every declared layout. A nil registry selects the file's
// platform. Types may refer to each other in any order; a type that contains
// itself by value is a cycle error.
func (f *File) Resolve(reg *types.Registry) (*Set, error) {
	if reg == nil {
		r, ok := types.ByName(f.Platform)
		if !ok {
			return nil, errors.New(errors.PhaseDecl, errors.KindArgument).
				Value(f.Platform).
				Detail("unknown platform %q", f.Platform).
				Build()
		}
		reg = r
	}

	r := &resolver{
		file:  f,
		reg:   reg,
		wit:   layout.NewWITConverterFor(reg),
		state: make(map[string]uint8, len(f.Types)),
		set:   newSet(reg),
	}
	for _, name := range r.sortedNames() {
		if _, err := r.visit(name, nil); err != nil {
			return nil, err
		}
	}
	return r.set, nil
}

type resolver struct {
	file  *File
	reg   *types.Registry
	wit   *layout.WITConverter
	state map[string]uint8 // 0 unseen, 1 visiting, 2 done
	set   *Set
}

func (r *resolver) sortedNames() []string {
	names := make([]string, 0, len(r.file.Types))
	for k := range r.file.Types {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *resolver) visit(name string, chain []string) (*layout.Layout, error) {
	chain = append(chain, name)
	switch r.state[name] {
	case 2:
		return r.set.layouts[name], nil
	case 1:
		return nil, errors.Cycle(errors.PhaseDecl, chain)
	}
	r.state[name] = 1

	td := r.file.Types[name]
	union := false
	switch td.Kind {
	case "", KindStruct:
	case KindUnion:
		union = true
	default:
		return nil, errors.New(errors.PhaseDecl, errors.KindArgument).
			Path(name).
			Value(td.Kind).
			Detail("kind must be struct or union").
			Build()
	}

	specs := make([]layout.FieldSpec, 0, len(td.Fields))
	for _, fd := range td.Fields {
		typ, err := r.fieldType(fd, chain)
		if err != nil {
			return nil, err
		}
		spec := layout.FieldSpec{Name: fd.Name, Type: typ}
		if fd.Offset != nil {
			off := uintptr(*fd.Offset)
			spec.Offset = &off
		}
		specs = append(specs, spec)
	}

	l, err := layout.Compute(name, r.reg, specs, union)
	if err != nil {
		return nil, err
	}
	r.state[name] = 2
	r.set.add(name, l)
	return l, nil
}

func (r *resolver) fieldType(fd FieldDecl, chain []string) (layout.TypeSpec, error) {
	elem, err := r.elemType(fd, chain)
	if err != nil {
		return nil, err
	}
	if fd.Count == nil {
		return elem, nil
	}
	if s, ok := elem.(layout.Scalar); ok && fd.Type == "char" {
		s.Desc = r.reg.MustResolve("char_array")
		elem = s
	}
	return layout.Array{Elem: elem, Count: *fd.Count}, nil
}

func (r *resolver) elemType(fd FieldDecl, chain []string) (layout.TypeSpec, error) {
	name := strings.TrimSpace(fd.Type)
	switch {
	case name == callback:
		return layout.FuncPtr{Desc: r.reg.MustResolve("pointer")}, nil
	case strings.HasPrefix(name, witPrefix):
		wt, err := wit.ParseType(strings.TrimPrefix(name, witPrefix))
		if err != nil {
			return nil, errors.New(errors.PhaseDecl, errors.KindUnknownType).
				Path(append(chain, fd.Name)...).
				Value(name).
				Cause(err).
				Build()
		}
		return r.wit.Spec(wt)
	}
	if _, ok := r.file.Types[name]; ok {
		l, err := r.visit(name, chain)
		if err != nil {
			return nil, err
		}
		return layout.Nested{Layout: l}, nil
	}
	d, err := r.reg.Resolve(name)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Phase = errors.PhaseDecl
			e.Path = append(append([]string(nil), chain...), fd.Name)
		}
		return nil, err
	}
	return layout.Scalar{Desc: d}, nil
}
