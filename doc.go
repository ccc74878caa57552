// Package ffimemory provides typed access to foreign memory for Go programs.
//
// It covers the memory half of a foreign function interface: typed pointers over
// raw addresses, C struct and union layouts that agree with the platform ABI byte
// for byte, and an ownership model in which memory is freed explicitly or by the
// garbage collector when its owner becomes unreachable.
//
// # Architecture Overview
//
//	ffimemory/        Root package with the Memory, Allocator and Space interfaces
//	├── types/        Type registry: names to (code, size, alignment) per platform
//	├── pointer/      Pointer and MemoryPointer accessors, arithmetic, lifecycle
//	├── layout/       Struct and union layout engine, WIT canonical ABI layouts
//	├── cstruct/      Struct instances bound to a pointer and a layout
//	├── decl/         YAML/JSON and WIT JSON layout declaration files
//	├── native/       Process address space (Go heap or libc malloc)
//	├── linear/       WebAssembly linear memory address space backed by wazero
//	├── errors/       Structured error types
//	└── cmd/ffilayout Layout inspector CLI
//
// # Quick Start
//
//	l, err := layout.NewBuilder(types.Host).
//		Field("c", "char").
//		Field("i", "int").
//		Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := cstruct.New(l, nil) // owns a zeroed MemoryPointer
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Free()
//
//	_ = s.Set("i", 12345)
//	v, _ := s.Get("i") // int32(12345), stored at offset 4
//
// # Address Spaces
//
// A Pointer always belongs to a Memory. The native space addresses the Go
// process itself; the linear space addresses a WebAssembly module's memory,
// where addresses are 32-bit offsets and pointers are 4 bytes wide.
//
// # Thread Safety
//
// Type registries and layouts are immutable and safe for concurrent use.
// Reads and writes through pointers are not synchronized, matching C. The only
// race handled internally is explicit Free against the garbage collector's
// cleanup: exactly one of them releases the memory.
//
// # Ownership
//
// Only a MemoryPointer owns memory. Pointers derived from it by Offset, Slice
// or Index borrow it and must not outlive it; using one after the owner was
// freed fails with a use-after-free error instead of touching released memory.
package ffimemory
