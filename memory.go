package ffimemory

// Memory represents an address space that foreign memory lives in.
type Memory interface {
	// View returns a slice aliasing n bytes at addr. It reports false when the
	// range is not addressable in this space. The slice must not be retained.
	View(addr, n uintptr) ([]byte, bool)

	// PointerSize is the width in bytes of an address stored in this space.
	PointerSize() uintptr
}

// Allocator hands out blocks of a Memory.
type Allocator interface {
	Alloc(size, align uintptr) (uintptr, error)
	Free(addr, size, align uintptr)
}

// Space is a Memory that can also allocate.
type Space interface {
	Memory
	Allocator
}
