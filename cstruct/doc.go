// Package cstruct reads and writes C structs in foreign memory.
//
// An Instance pairs a layout with a pointer. New either allocates and owns a
// zero-filled block or wraps an existing pointer as a view:
//
//	l := layout.NewBuilder(types.Host).Field("c", "char").Field("i", "int").MustBuild()
//	s, _ := cstruct.New(l, nil)
//	defer s.Free()
//	_ = s.Set("i", 42)
//	v, _ := s.Get("i") // int32(42)
//
// Nested structs and arrays of structs are returned as views that share the
// parent's storage, so writes through them are visible in the parent.
package cstruct
