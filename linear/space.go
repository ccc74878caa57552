package linear

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/errors"
)

const (
	PageSize = 65536

	// DefaultHeapBase keeps the first bytes free so no block starts at NULL.
	DefaultHeapBase = 16
	DefaultMaxPages = 256
)

type span struct {
	start uint32
	end   uint32
}

// Space is a linear memory plus an allocator over it.
type Space struct {
	mem      api.Memory
	closer   func(context.Context) error
	live     map[uint32]uint32
	free     []span
	mu       sync.Mutex
	heapBase uint32
	top      uint32
	pages    uint32
	maxPages uint32
}

var _ ffimemory.Space = (*Space)(nil)

type Option func(*Space)

// WithPages sets the initial number of 64KiB pages for New.
func WithPages(n uint32) Option {
	return func(s *Space) {
		s.pages = n
	}
}

// WithMaxPages caps memory growth.
func WithMaxPages(n uint32) Option {
	return func(s *Space) {
		s.maxPages = n
	}
}

// WithHeapBase sets the lowest address the allocator may hand out.
func WithHeapBase(addr uint32) Option {
	return func(s *Space) {
		s.heapBase = addr
	}
}

func newSpace(opts []Option) *Space {
	s := &Space{
		live:     make(map[uint32]uint32),
		heapBase: DefaultHeapBase,
		pages:    1,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.heapBase == 0 {
		s.heapBase = DefaultHeapBase
	}
	s.top = s.heapBase
	return s
}

// New creates a runtime holding a single exported memory and wraps it.
func New(ctx context.Context, opts ...Option) (*Space, error) {
	s := newSpace(opts)
	if s.pages > s.maxPages {
		return nil, errors.Argument(errors.PhaseAlloc,
			fmt.Sprintf("initial pages %d exceed max pages %d", s.pages, s.maxPages))
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(s.maxPages))
	mod, err := rt.Instantiate(ctx, memoryModule(s.pages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindInvalidData, err, "instantiate memory module")
	}

	s.mem = mod.ExportedMemory("memory")
	s.closer = rt.Close
	return s, nil
}

// Wrap adopts an existing memory. The caller keeps ownership of its module.
func Wrap(mem api.Memory, opts ...Option) *Space {
	if mem == nil {
		return nil
	}
	s := newSpace(opts)
	s.mem = mem
	return s
}

// Memory returns the underlying wazero memory.
func (s *Space) Memory() api.Memory {
	return s.mem
}

// Close releases the runtime created by New. It is a no-op for Wrap.
func (s *Space) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	closer := s.closer
	s.closer = nil
	return closer(ctx)
}

func (s *Space) PointerSize() uintptr {
	return 4
}

// Size returns the current memory size in bytes.
func (s *Space) Size() uint32 {
	return s.mem.Size()
}

func (s *Space) View(addr, n uintptr) ([]byte, bool) {
	if addr > 0xFFFFFFFF || n > 0xFFFFFFFF {
		return nil, false
	}
	return s.mem.Read(uint32(addr), uint32(n))
}

func (s *Space) Alloc(size, align uintptr) (uintptr, error) {
	if size > 0xFFFFFFFF {
		return 0, errors.OutOfMemory(size, align, nil)
	}
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	sz, al := uint32(size), uint32(align)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sp := range s.free {
		start, ok := alignUp(sp.start, al)
		if !ok || uint64(start)+uint64(sz) > uint64(sp.end) {
			continue
		}
		s.carve(i, start, start+sz)
		s.live[start] = sz
		Logger().Debug("alloc from free list", zap.Uint32("addr", start), zap.Uint32("size", sz))
		return uintptr(start), nil
	}

	start, ok := alignUp(s.top, al)
	if !ok || uint64(start)+uint64(sz) > 0xFFFFFFFF {
		return 0, errors.OutOfMemory(size, align, nil)
	}
	end := start + sz
	if err := s.ensure(end); err != nil {
		return 0, errors.OutOfMemory(size, align, err)
	}
	if start > s.top {
		s.insertFree(span{start: s.top, end: start})
	}
	s.top = end
	s.live[start] = sz
	Logger().Debug("alloc", zap.Uint32("addr", start), zap.Uint32("size", sz))
	return uintptr(start), nil
}

func (s *Space) Free(addr, _, _ uintptr) {
	if addr == 0 || addr > 0xFFFFFFFF {
		return
	}
	a := uint32(addr)

	s.mu.Lock()
	defer s.mu.Unlock()

	sz, ok := s.live[a]
	if !ok {
		Logger().Warn("free of unknown block", zap.Uint32("addr", a))
		return
	}
	delete(s.live, a)
	s.insertFree(span{start: a, end: a + sz})

	if n := len(s.free); n > 0 && s.free[n-1].end == s.top {
		s.top = s.free[n-1].start
		s.free = s.free[:n-1]
	}
	Logger().Debug("free", zap.Uint32("addr", a), zap.Uint32("size", sz))
}

// LiveAllocations returns the number of blocks not yet freed.
func (s *Space) LiveAllocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ensure grows the memory so that end is addressable.
func (s *Space) ensure(end uint32) error {
	size := s.mem.Size()
	if end <= size {
		return nil
	}
	need := (uint64(end) - uint64(size) + PageSize - 1) / PageSize
	if _, ok := s.mem.Grow(uint32(need)); !ok {
		return fmt.Errorf("grow memory by %d pages failed", need)
	}
	return nil
}

// carve removes [start, end) from free span i, keeping any remainder.
func (s *Space) carve(i int, start, end uint32) {
	sp := s.free[i]
	var rest []span
	if start > sp.start {
		rest = append(rest, span{start: sp.start, end: start})
	}
	if end < sp.end {
		rest = append(rest, span{start: end, end: sp.end})
	}
	s.free = append(s.free[:i], append(rest, s.free[i+1:]...)...)
}

// insertFree adds sp to the sorted free list, merging adjacent spans.
func (s *Space) insertFree(sp span) {
	i := sort.Search(len(s.free), func(i int) bool { return s.free[i].start >= sp.start })
	s.free = append(s.free, span{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = sp

	if i+1 < len(s.free) && s.free[i].end == s.free[i+1].start {
		s.free[i].end = s.free[i+1].end
		s.free = append(s.free[:i+1], s.free[i+2:]...)
	}
	if i > 0 && s.free[i-1].end == s.free[i].start {
		s.free[i-1].end = s.free[i].end
		s.free = append(s.free[:i], s.free[i+1:]...)
	}
}

func alignUp(x, a uint32) (uint32, bool) {
	r := (uint64(x) + uint64(a) - 1) &^ (uint64(a) - 1)
	if r > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(r), true
}

// memoryModule encodes a module exporting one memory named "memory" with the
// given minimum page count.
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x00}, uleb128(pages)...)
	memSection := append([]byte{0x01}, limits...)

	b := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	b = append(b, 0x05)
	b = append(b, uleb128(uint32(len(memSection)))...)
	b = append(b, memSection...)
	b = append(b,
		0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // "memory"
		0x02, 0x00, // kind: memory, index 0
	)
	return b
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

// ByteOrder is the native order of WebAssembly memory.
func (s *Space) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}
