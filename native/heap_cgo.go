//go:build malloc_cgo

package native

/*
#include <stdlib.h>
*/
import "C"

import (
	stderrors "errors"
	"unsafe"
)

// libc memory is outside the Go heap, so any address may be viewed directly.
const rawHeap = true

var errMallocFailed = stderrors.New("malloc returned NULL")

type cHeap struct{}

func newHeap() heap {
	return cHeap{}
}

func (cHeap) alloc(size, align uintptr) (uintptr, error) {
	var p unsafe.Pointer
	if align > 16 {
		if C.posix_memalign(&p, C.size_t(align), C.size_t(size)) != 0 {
			return 0, errMallocFailed
		}
	} else {
		p = C.malloc(C.size_t(size))
	}
	if p == nil {
		return 0, errMallocFailed
	}
	return uintptr(p), nil
}

func (cHeap) free(addr uintptr) bool {
	C.free(unsafe.Pointer(addr))
	return true
}

func (cHeap) find(uintptr, uintptr) ([]byte, bool) {
	return nil, false
}
