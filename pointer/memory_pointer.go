package pointer

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/native"
	"github.com/wippyai/ffi-memory/types"
)

// DefaultAlign is the alignment Allocate requests unless WithAlign is given.
const DefaultAlign = 8

// allocation is the state shared by a MemoryPointer and every pointer
// derived from it. It never references the MemoryPointer itself, so it can
// be handed to a runtime cleanup.
type allocation struct {
	space ffimemory.Allocator
	addr  uintptr
	size  uintptr
	align uintptr
	freed atomic.Bool
}

// release frees the block once. It reports whether this call did it.
func (a *allocation) release() bool {
	if !a.freed.CompareAndSwap(false, true) {
		return false
	}
	a.space.Free(a.addr, a.size, a.align)
	return true
}

func autorelease(a *allocation) {
	if a.release() {
		Logger().Debug("autoreleased", zap.Uintptr("addr", a.addr), zap.Uintptr("size", a.size))
	}
}

// MemoryPointer owns one allocation. The embedded Pointer is bounded to the
// allocation's size and carries the autorelease cleanup, so every promoted
// accessor keeps the block alive until it returns.
type MemoryPointer struct {
	*Pointer

	alloc    *allocation
	total    uintptr
	elemSize uintptr

	mu          sync.Mutex
	cleanup     runtime.Cleanup
	autorelease bool
}

type config struct {
	space       ffimemory.Space
	zero        bool
	autorelease bool
	elemSize    uintptr
	align       uintptr
}

type Option func(*config)

// WithSpace allocates from s instead of the process space.
func WithSpace(s ffimemory.Space) Option {
	return func(c *config) {
		c.space = s
	}
}

// WithoutZero skips zero-filling the new block.
func WithoutZero() Option {
	return func(c *config) {
		c.zero = false
	}
}

// WithAutorelease sets the initial autorelease state.
func WithAutorelease(on bool) Option {
	return func(c *config) {
		c.autorelease = on
	}
}

// WithElementSize records the element size used by Index.
func WithElementSize(n uintptr) Option {
	return func(c *config) {
		c.elemSize = n
	}
}

func WithAlign(n uintptr) Option {
	return func(c *config) {
		c.align = n
	}
}

func newConfig(opts []Option) config {
	c := config{
		zero:        true,
		autorelease: true,
		align:       DefaultAlign,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.space == nil {
		c.space = native.Default()
	}
	return c
}

// Allocate reserves size bytes, zero-filled unless WithoutZero is given.
func Allocate(size uintptr, opts ...Option) (*MemoryPointer, error) {
	return allocate(size, newConfig(opts))
}

// AllocateOf reserves count elements of d. The element size is d.Size and
// the alignment defaults to d.Align.
func AllocateOf(d types.Descriptor, count int, opts ...Option) (*MemoryPointer, error) {
	if count < 0 {
		return nil, errors.Argument(errors.PhaseAlloc, "negative element count")
	}
	cfg := newConfig(append([]Option{WithAlign(d.Align), WithElementSize(d.Size)}, opts...))
	if d.Size != 0 && uint64(count) > uint64(^uintptr(0)/d.Size) {
		return nil, errors.OutOfMemory(d.Size, cfg.align, errors.Overflow(errors.PhaseAlloc, nil, count, d.Name+"[]"))
	}
	return allocate(d.Size*uintptr(count), cfg)
}

func allocate(size uintptr, c config) (*MemoryPointer, error) {
	addr, err := c.space.Alloc(size, c.align)
	if err != nil {
		if errors.KindOf(err) == errors.KindOutOfMemory {
			return nil, err
		}
		return nil, errors.OutOfMemory(size, c.align, err)
	}
	if addr == 0 {
		return nil, errors.OutOfMemory(size, c.align, nil)
	}

	a := &allocation{space: c.space, addr: addr, size: size, align: c.align}
	p := New(c.space, addr)
	p.owner = a
	p.bound = size
	p.bounded = true

	if c.zero && size > 0 {
		b, ok := c.space.View(addr, size)
		if !ok {
			a.release()
			return nil, errors.AddressOutOfRange(errors.PhaseAlloc, addr, size)
		}
		clear(b)
	}

	mp := &MemoryPointer{
		Pointer:  p,
		alloc:    a,
		total:    size,
		elemSize: c.elemSize,
	}
	if c.autorelease {
		mp.cleanup = runtime.AddCleanup(mp.Pointer, autorelease, a)
		mp.autorelease = true
	}
	Logger().Debug("allocated",
		zap.Uintptr("addr", addr),
		zap.Uintptr("size", size),
		zap.Bool("autorelease", c.autorelease))
	return mp, nil
}

// Free releases the allocation. Calling it again, or after the cleanup ran,
// does nothing.
func (mp *MemoryPointer) Free() {
	mp.mu.Lock()
	if mp.autorelease {
		mp.cleanup.Stop()
		mp.autorelease = false
	}
	mp.mu.Unlock()

	if mp.alloc.release() {
		Logger().Debug("freed", zap.Uintptr("addr", mp.alloc.addr), zap.Uintptr("size", mp.alloc.size))
	}
}

func (mp *MemoryPointer) Freed() bool {
	return mp.alloc.freed.Load()
}

// Autorelease reports whether the allocation is released once mp becomes
// unreachable.
func (mp *MemoryPointer) Autorelease() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.autorelease
}

// SetAutorelease turns the unreachability cleanup on or off. It has no
// effect after Free.
func (mp *MemoryPointer) SetAutorelease(on bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if on == mp.autorelease || (on && mp.alloc.freed.Load()) {
		return
	}
	if on {
		mp.cleanup = runtime.AddCleanup(mp.Pointer, autorelease, mp.alloc)
	} else {
		mp.cleanup.Stop()
	}
	mp.autorelease = on
}

// Total is the allocation size in bytes.
func (mp *MemoryPointer) Total() uintptr {
	return mp.total
}

// ElementSize is the element size used by Index, or 0 when unknown.
func (mp *MemoryPointer) ElementSize() uintptr {
	return mp.elemSize
}

// Index returns a pointer to element i.
func (mp *MemoryPointer) Index(i int) (*Pointer, error) {
	if mp.elemSize == 0 {
		return nil, errors.Argument(errors.PhaseOffset, "element size unknown")
	}
	if i < 0 || uint64(i) > uint64(mp.total/mp.elemSize) {
		return nil, errors.OutOfBounds(errors.PhaseOffset, int64(i)*int64(mp.elemSize), mp.elemSize, mp.total)
	}
	return mp.Offset(i * int(mp.elemSize))
}

// Zero clears the whole allocation.
func (mp *MemoryPointer) Zero() error {
	return mp.Fill(0, int(mp.total), 0)
}
