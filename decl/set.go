package decl

import (
	"fmt"
	"io"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/layout"
	"github.com/wippyai/ffi-memory/types"
)

// Set is a collection of named layouts computed for one registry.
type Set struct {
	reg     *types.Registry
	layouts map[string]*layout.Layout
	names   []string
}

func newSet(reg *types.Registry) *Set {
	return &Set{reg: reg, layouts: make(map[string]*layout.Layout)}
}

func (s *Set) add(name string, l *layout.Layout) {
	s.layouts[name] = l
	s.names = append(s.names, name)
}

func (s *Set) Registry() *types.Registry {
	return s.reg
}

func (s *Set) Layout(name string) (*layout.Layout, bool) {
	l, ok := s.layouts[name]
	return l, ok
}

// Lookup is Layout with an unknown-type error.
func (s *Set) Lookup(name string) (*layout.Layout, error) {
	if l, ok := s.layouts[name]; ok {
		return l, nil
	}
	return nil, errors.UnknownType(errors.PhaseDecl, name)
}

// Names returns layout names in resolution order: every layout comes after
// the layouts it embeds.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Set) Len() int {
	return len(s.names)
}

// LoadWIT reads a WIT document in the JSON form printed by
// `wasm-tools component wit --json` and returns the canonical ABI layout of
// every named type. Resources have no layout and are skipped. A name used by
// more than one interface is suffixed with #2, #3 and so on.
func LoadWIT(r io.Reader) (*Set, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.ParseFailed("WIT JSON", err)
	}
	return FromResolve(res)
}

// FromResolve builds layouts for the named types of a decoded WIT document.
func FromResolve(res *wit.Resolve) (*Set, error) {
	c := layout.NewWITConverter()
	set := newSet(types.Wasm32)
	for _, td := range res.TypeDefs {
		if td.Name == nil {
			continue
		}
		if _, ok := td.Kind.(*wit.Resource); ok {
			continue
		}
		l, err := c.Layout(td)
		if err != nil {
			return nil, err
		}
		name := *td.Name
		for i := 2; ; i++ {
			if _, taken := set.layouts[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s#%d", *td.Name, i)
		}
		set.add(name, l)
	}
	return set, nil
}
