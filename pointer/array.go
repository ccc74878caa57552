package pointer

import (
	"math"
	"runtime"
	"unsafe"

	"github.com/wippyai/ffi-memory/errors"
)

// Scalar lists the fixed-width element types arrays can hold.
type Scalar interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

func scalarName[T Scalar]() string {
	var zero T
	switch any(zero).(type) {
	case float32:
		return "float32"
	case float64:
		return "float64"
	case int8, int16, int32, int64:
		return intName(unsafe.Sizeof(zero), true)
	}
	return intName(unsafe.Sizeof(zero), false)
}

func decode[T Scalar](p *Pointer, b []byte) T {
	var zero T
	bo := p.order.binary()
	switch any(zero).(type) {
	case int8:
		return T(int8(b[0]))
	case uint8:
		return T(b[0])
	case int16:
		return T(int16(bo.Uint16(b)))
	case uint16:
		return T(bo.Uint16(b))
	case int32:
		return T(int32(bo.Uint32(b)))
	case uint32:
		return T(bo.Uint32(b))
	case int64:
		return T(int64(bo.Uint64(b)))
	case uint64:
		return T(bo.Uint64(b))
	case float32:
		return T(math.Float32frombits(bo.Uint32(b)))
	case float64:
		return T(math.Float64frombits(bo.Uint64(b)))
	}
	return zero
}

func encode[T Scalar](p *Pointer, b []byte, v T) {
	bo := p.order.binary()
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case int16:
		bo.PutUint16(b, uint16(x))
	case uint16:
		bo.PutUint16(b, x)
	case int32:
		bo.PutUint32(b, uint32(x))
	case uint32:
		bo.PutUint32(b, x)
	case int64:
		bo.PutUint64(b, uint64(x))
	case uint64:
		bo.PutUint64(b, x)
	case float32:
		bo.PutUint32(b, math.Float32bits(x))
	case float64:
		bo.PutUint64(b, math.Float64bits(x))
	}
}

// arrayView validates the whole range of n elements before anything is read
// or written. n == 0 returns an empty view without touching memory.
func arrayView(p *Pointer, phase errors.Phase, off uintptr, n int, width uintptr, cType string) ([]byte, error) {
	if n < 0 {
		return nil, errors.Argument(phase, "negative element count")
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > uint64(^uintptr(0)/width) {
		return nil, errors.Overflow(phase, nil, n, cType+"[]")
	}
	return p.view(phase, off, uintptr(n)*width, cType)
}

// GetArray reads n consecutive elements of T starting at off.
func GetArray[T Scalar](p *Pointer, off uintptr, n int) ([]T, error) {
	defer runtime.KeepAlive(p)
	var zero T
	width := unsafe.Sizeof(zero)
	b, err := arrayView(p, errors.PhaseRead, off, n, width, scalarName[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = decode[T](p, b[uintptr(i)*width:])
	}
	return out, nil
}

// PutArray writes items as consecutive elements starting at off.
func PutArray[T Scalar](p *Pointer, off uintptr, items []T) error {
	defer runtime.KeepAlive(p)
	var zero T
	width := unsafe.Sizeof(zero)
	b, err := arrayView(p, errors.PhaseWrite, off, len(items), width, scalarName[T]())
	if err != nil {
		return err
	}
	for i, v := range items {
		encode(p, b[uintptr(i)*width:], v)
	}
	return nil
}

// GetPointerArray reads n addresses of the memory's pointer width.
func (p *Pointer) GetPointerArray(off uintptr, n int) ([]*Pointer, error) {
	defer runtime.KeepAlive(p)
	width := p.mem.PointerSize()
	b, err := arrayView(p, errors.PhaseRead, off, n, width, "pointer")
	if err != nil {
		return nil, err
	}
	bo := p.order.binary()
	out := make([]*Pointer, n)
	for i := range out {
		var addr uint64
		if width == 4 {
			addr = uint64(bo.Uint32(b[uintptr(i)*width:]))
		} else {
			addr = bo.Uint64(b[uintptr(i)*width:])
		}
		out[i] = New(p.mem, uintptr(addr))
	}
	return out, nil
}

// PutPointerArray writes the addresses of items; nil entries store NULL.
func (p *Pointer) PutPointerArray(off uintptr, items []*Pointer) error {
	defer runtime.KeepAlive(p)
	width := p.mem.PointerSize()
	b, err := arrayView(p, errors.PhaseWrite, off, len(items), width, "pointer")
	if err != nil {
		return err
	}
	bo := p.order.binary()
	for i, q := range items {
		var addr uintptr
		if q != nil {
			addr = q.addr
		}
		if width == 4 {
			if uint64(addr) > math.MaxUint32 {
				return errors.Overflow(errors.PhaseWrite, nil, addr, "pointer")
			}
			bo.PutUint32(b[uintptr(i)*width:], uint32(addr))
		} else {
			bo.PutUint64(b[uintptr(i)*width:], uint64(addr))
		}
	}
	return nil
}

func (p *Pointer) ReadArrayOfInt8(n int) ([]int8, error)       { return GetArray[int8](p, 0, n) }
func (p *Pointer) ReadArrayOfUint8(n int) ([]uint8, error)     { return GetArray[uint8](p, 0, n) }
func (p *Pointer) ReadArrayOfInt16(n int) ([]int16, error)     { return GetArray[int16](p, 0, n) }
func (p *Pointer) ReadArrayOfUint16(n int) ([]uint16, error)   { return GetArray[uint16](p, 0, n) }
func (p *Pointer) ReadArrayOfInt32(n int) ([]int32, error)     { return GetArray[int32](p, 0, n) }
func (p *Pointer) ReadArrayOfUint32(n int) ([]uint32, error)   { return GetArray[uint32](p, 0, n) }
func (p *Pointer) ReadArrayOfInt64(n int) ([]int64, error)     { return GetArray[int64](p, 0, n) }
func (p *Pointer) ReadArrayOfUint64(n int) ([]uint64, error)   { return GetArray[uint64](p, 0, n) }
func (p *Pointer) ReadArrayOfFloat32(n int) ([]float32, error) { return GetArray[float32](p, 0, n) }
func (p *Pointer) ReadArrayOfFloat64(n int) ([]float64, error) { return GetArray[float64](p, 0, n) }
func (p *Pointer) ReadArrayOfPointer(n int) ([]*Pointer, error) {
	return p.GetPointerArray(0, n)
}

func (p *Pointer) WriteArrayOfInt8(items []int8) error       { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfUint8(items []uint8) error     { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfInt16(items []int16) error     { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfUint16(items []uint16) error   { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfInt32(items []int32) error     { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfUint32(items []uint32) error   { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfInt64(items []int64) error     { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfUint64(items []uint64) error   { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfFloat32(items []float32) error { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfFloat64(items []float64) error { return PutArray(p, 0, items) }
func (p *Pointer) WriteArrayOfPointer(items []*Pointer) error {
	return p.PutPointerArray(0, items)
}
