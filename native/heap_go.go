//go:build !malloc_cgo

package native

import (
	"sort"
	"sync"
	"unsafe"
)

const rawHeap = false

type block struct {
	buf   []byte
	start uintptr
}

// goHeap pins Go-allocated blocks by keeping them reachable until freed.
type goHeap struct {
	blocks []block
	mu     sync.RWMutex
}

func newHeap() heap {
	return &goHeap{}
}

func (h *goHeap) alloc(size, align uintptr) (uintptr, error) {
	buf := make([]byte, size+align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pad := (align - base%align) % align
	buf = buf[pad : pad+size : pad+size]
	start := base + pad

	h.mu.Lock()
	i := sort.Search(len(h.blocks), func(i int) bool { return h.blocks[i].start > start })
	h.blocks = append(h.blocks, block{})
	copy(h.blocks[i+1:], h.blocks[i:])
	h.blocks[i] = block{buf: buf, start: start}
	h.mu.Unlock()

	return start, nil
}

func (h *goHeap) free(addr uintptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := sort.Search(len(h.blocks), func(i int) bool { return h.blocks[i].start >= addr })
	if i == len(h.blocks) || h.blocks[i].start != addr {
		return false
	}
	copy(h.blocks[i:], h.blocks[i+1:])
	h.blocks[len(h.blocks)-1] = block{}
	h.blocks = h.blocks[:len(h.blocks)-1]
	return true
}

func (h *goHeap) find(addr, n uintptr) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i := sort.Search(len(h.blocks), func(i int) bool { return h.blocks[i].start > addr })
	if i == 0 {
		return nil, false
	}
	b := h.blocks[i-1]
	off := addr - b.start
	if off > uintptr(len(b.buf)) || n > uintptr(len(b.buf))-off {
		return nil, false
	}
	return b.buf[off : off+n : off+n], true
}
