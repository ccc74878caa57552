package pointer

import (
	"fmt"
	"runtime"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/native"
)

// Null is the NULL pointer of the process address space.
var Null = New(native.Default(), 0)

// Pointer is an immutable typed handle on an address. The zero value is not
// usable; construct pointers with New or derive them from another pointer.
type Pointer struct {
	mem     ffimemory.Memory
	owner   *allocation
	addr    uintptr
	bound   uintptr
	order   ByteOrder
	bounded bool
}

// New returns an unbounded pointer to addr in mem using mem's native order.
func New(mem ffimemory.Memory, addr uintptr) *Pointer {
	return &Pointer{
		mem:   mem,
		addr:  addr,
		order: NativeOrder.resolve(mem),
	}
}

// NullIn returns the NULL pointer of mem.
func NullIn(mem ffimemory.Memory) *Pointer {
	return New(mem, 0)
}

func (p *Pointer) Address() uintptr {
	return p.addr
}

func (p *Pointer) IsNull() bool {
	return p.addr == 0
}

func (p *Pointer) Memory() ffimemory.Memory {
	return p.mem
}

// ByteOrder returns the concrete order values are decoded in.
func (p *Pointer) ByteOrder() ByteOrder {
	return p.order
}

// Bound returns the number of accessible bytes for a sliced pointer.
func (p *Pointer) Bound() (uintptr, bool) {
	return p.bound, p.bounded
}

// Equal reports whether both pointers address the same byte of the same memory.
func (p *Pointer) Equal(q *Pointer) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.mem == q.mem && p.addr == q.addr
}

func (p *Pointer) String() string {
	if p.bounded {
		return fmt.Sprintf("Pointer(0x%x, %d bytes)", p.addr, p.bound)
	}
	return fmt.Sprintf("Pointer(0x%x)", p.addr)
}

func (p *Pointer) derive(addr uintptr) *Pointer {
	return &Pointer{
		mem:     p.mem,
		owner:   p.owner,
		addr:    addr,
		bound:   p.bound,
		order:   p.order,
		bounded: p.bounded,
	}
}

// Order returns a pointer decoding values in o. When o resolves to the
// receiver's current order the receiver itself is returned.
func (p *Pointer) Order(o ByteOrder) *Pointer {
	o = o.resolve(p.mem)
	if o == p.order {
		return p
	}
	q := p.derive(p.addr)
	q.order = o
	return q
}

// Offset returns a pointer delta bytes away. On a bounded pointer the delta
// must stay within the remaining bound.
func (p *Pointer) Offset(delta int) (*Pointer, error) {
	q := p.derive(p.addr + uintptr(delta))
	if p.bounded {
		if delta < 0 || uintptr(delta) > p.bound {
			return nil, errors.OutOfBounds(errors.PhaseOffset, int64(delta), 0, p.bound)
		}
		q.bound = p.bound - uintptr(delta)
	}
	return q, nil
}

// Slice returns a pointer at off whose accesses are limited to length bytes.
func (p *Pointer) Slice(off, length uintptr) (*Pointer, error) {
	if p.bounded && (off > p.bound || length > p.bound-off) {
		return nil, errors.OutOfBounds(errors.PhaseOffset, int64(off), length, p.bound)
	}
	q := p.derive(p.addr + off)
	q.bound = length
	q.bounded = true
	return q, nil
}

// view checks every access precondition, then returns the n bytes at off.
func (p *Pointer) view(phase errors.Phase, off, n uintptr, cType string) ([]byte, error) {
	if p.addr == 0 {
		return nil, errors.NullPointer(phase, cType)
	}
	if p.owner != nil && p.owner.freed.Load() {
		return nil, errors.UseAfterFree(phase, p.owner.addr)
	}
	if p.bounded && (off > p.bound || n > p.bound-off) {
		return nil, errors.OutOfBounds(phase, int64(off), n, p.bound)
	}
	addr := p.addr + off
	if addr < p.addr {
		return nil, errors.AddressOutOfRange(phase, addr, n)
	}
	b, ok := p.mem.View(addr, n)
	if !ok {
		return nil, errors.AddressOutOfRange(phase, addr, n)
	}
	return b, nil
}

// Copy copies n bytes from src to dst. Overlapping ranges are handled.
func Copy(dst, src *Pointer, n uintptr) error {
	defer runtime.KeepAlive(src)
	defer runtime.KeepAlive(dst)
	from, err := src.view(errors.PhaseRead, 0, n, "uint8")
	if err != nil {
		return err
	}
	to, err := dst.view(errors.PhaseWrite, 0, n, "uint8")
	if err != nil {
		return err
	}
	copy(to, from)
	return nil
}
