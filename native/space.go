package native

import (
	"sync"
	"unsafe"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/errors"
)

const (
	// DefaultMaxAlloc caps a single allocation.
	DefaultMaxAlloc = 1 << 30

	// minAddress is the first address View resolves. The page at zero is
	// never mapped, so offsets from NULL fail here instead of faulting.
	minAddress = 4096
)

type heap interface {
	alloc(size, align uintptr) (uintptr, error)
	free(addr uintptr) bool
	find(addr, n uintptr) ([]byte, bool)
}

// Space is the process address space.
type Space struct {
	heap     heap
	maxAlloc uintptr
	foreign  bool
}

var _ ffimemory.Space = (*Space)(nil)

type Option func(*Space)

// WithMaxAlloc sets the largest size a single Alloc accepts.
func WithMaxAlloc(n uintptr) Option {
	return func(s *Space) {
		s.maxAlloc = n
	}
}

// WithForeignAccess lets View dereference addresses outside the space's own
// allocations.
func WithForeignAccess() Option {
	return func(s *Space) {
		s.foreign = true
	}
}

func New(opts ...Option) *Space {
	s := &Space{
		heap:     newHeap(),
		maxAlloc: DefaultMaxAlloc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	defaultSpace     *Space
	defaultSpaceOnce sync.Once
)

// Default returns the shared process space.
func Default() *Space {
	defaultSpaceOnce.Do(func() {
		defaultSpace = New(WithForeignAccess())
	})
	return defaultSpace
}

func (s *Space) PointerSize() uintptr {
	return unsafe.Sizeof(uintptr(0))
}

func (s *Space) View(addr, n uintptr) ([]byte, bool) {
	if addr < minAddress || addr+n < addr {
		return nil, false
	}
	if b, ok := s.heap.find(addr, n); ok {
		return b, true
	}
	if !s.foreign && !rawHeap {
		return nil, false
	}
	if n == 0 {
		return []byte{}, true
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), true
}

func (s *Space) Alloc(size, align uintptr) (uintptr, error) {
	if size > s.maxAlloc {
		return 0, errors.OutOfMemory(size, align, nil)
	}
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	addr, err := s.heap.alloc(size, align)
	if err != nil {
		return 0, errors.OutOfMemory(size, align, err)
	}
	return addr, nil
}

func (s *Space) Free(addr, _, _ uintptr) {
	if addr == 0 {
		return
	}
	s.heap.free(addr)
}
