package layout

import (
	"fmt"

	"github.com/wippyai/ffi-memory/types"
)

// TypeSpec is the type of one field. The set of implementations is closed:
// Scalar, Array, Nested and FuncPtr.
type TypeSpec interface {
	Size() uintptr
	Align() uintptr
	String() string
	sealed()
}

// Scalar is a registry type stored inline.
type Scalar struct {
	Desc types.Descriptor
}

// Array is Count consecutive elements. An array of char_array elements is a
// fixed-size C string buffer.
type Array struct {
	Elem  TypeSpec
	Count int
}

// Nested embeds another layout by value.
type Nested struct {
	Layout *Layout
}

// FuncPtr is a function pointer. A zero Desc takes the registry's pointer.
type FuncPtr struct {
	Desc types.Descriptor
}

func (Scalar) sealed()  {}
func (Array) sealed()   {}
func (Nested) sealed()  {}
func (FuncPtr) sealed() {}

func (s Scalar) Size() uintptr  { return s.Desc.Size }
func (s Scalar) Align() uintptr { return s.Desc.Align }
func (s Scalar) String() string { return s.Desc.Name }

func (a Array) Size() uintptr {
	if a.Elem == nil || a.Count <= 0 {
		return 0
	}
	return a.Elem.Size() * uintptr(a.Count)
}

func (a Array) Align() uintptr {
	if a.Elem == nil {
		return 1
	}
	return a.Elem.Align()
}

func (a Array) String() string {
	if a.Elem == nil {
		return fmt.Sprintf("?[%d]", a.Count)
	}
	return fmt.Sprintf("%s[%d]", a.Elem, a.Count)
}

// IsCharArray reports whether the array is a fixed-size C string buffer.
func (a Array) IsCharArray() bool {
	s, ok := a.Elem.(Scalar)
	return ok && s.Desc.Code == types.CodeCharArray
}

func (n Nested) Size() uintptr {
	if n.Layout == nil {
		return 0
	}
	return n.Layout.Size()
}

func (n Nested) Align() uintptr {
	if n.Layout == nil {
		return 1
	}
	return n.Layout.Align()
}

func (n Nested) String() string {
	if n.Layout == nil {
		return "struct ?"
	}
	kw := "struct"
	if n.Layout.IsUnion() {
		kw = "union"
	}
	if n.Layout.Name() == "" {
		return kw + " {...}"
	}
	return kw + " " + n.Layout.Name()
}

func (f FuncPtr) Size() uintptr  { return f.Desc.Size }
func (f FuncPtr) Align() uintptr { return f.Desc.Align }
func (FuncPtr) String() string   { return "callback" }
