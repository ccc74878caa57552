package pointer

import (
	"math"
	"runtime"

	"github.com/wippyai/ffi-memory/errors"
)

var intNames = [2][9]string{
	{1: "uint8", 2: "uint16", 4: "uint32", 8: "uint64"},
	{1: "int8", 2: "int16", 4: "int32", 8: "int64"},
}

func intName(width uintptr, signed bool) string {
	s := 0
	if signed {
		s = 1
	}
	if width < 9 {
		return intNames[s][width]
	}
	return "integer"
}

// getBits reads a width-byte integer at off. Signed values are sign-extended
// to 64 bits so callers only truncate.
func (p *Pointer) getBits(off, width uintptr, signed bool) (uint64, error) {
	defer runtime.KeepAlive(p)
	b, err := p.view(errors.PhaseRead, off, width, intName(width, signed))
	if err != nil {
		return 0, err
	}
	bo := p.order.binary()

	switch width {
	case 1:
		if signed {
			return uint64(int64(int8(b[0]))), nil
		}
		return uint64(b[0]), nil
	case 2:
		v := bo.Uint16(b)
		if signed {
			return uint64(int64(int16(v))), nil
		}
		return uint64(v), nil
	case 4:
		v := bo.Uint32(b)
		if signed {
			return uint64(int64(int32(v))), nil
		}
		return uint64(v), nil
	case 8:
		return bo.Uint64(b), nil
	}
	return 0, errors.Unsupported(errors.PhaseRead, "integer width")
}

// putBits stores the low width bytes of v at off.
func (p *Pointer) putBits(off, width uintptr, v uint64) error {
	defer runtime.KeepAlive(p)
	b, err := p.view(errors.PhaseWrite, off, width, intName(width, false))
	if err != nil {
		return err
	}
	bo := p.order.binary()

	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		bo.PutUint16(b, uint16(v))
	case 4:
		bo.PutUint32(b, uint32(v))
	case 8:
		bo.PutUint64(b, v)
	default:
		return errors.Unsupported(errors.PhaseWrite, "integer width")
	}
	return nil
}

func (p *Pointer) GetInt8(off uintptr) (int8, error) {
	v, err := p.getBits(off, 1, true)
	return int8(v), err
}

func (p *Pointer) GetUint8(off uintptr) (uint8, error) {
	v, err := p.getBits(off, 1, false)
	return uint8(v), err
}

func (p *Pointer) GetInt16(off uintptr) (int16, error) {
	v, err := p.getBits(off, 2, true)
	return int16(v), err
}

func (p *Pointer) GetUint16(off uintptr) (uint16, error) {
	v, err := p.getBits(off, 2, false)
	return uint16(v), err
}

func (p *Pointer) GetInt32(off uintptr) (int32, error) {
	v, err := p.getBits(off, 4, true)
	return int32(v), err
}

func (p *Pointer) GetUint32(off uintptr) (uint32, error) {
	v, err := p.getBits(off, 4, false)
	return uint32(v), err
}

func (p *Pointer) GetInt64(off uintptr) (int64, error) {
	v, err := p.getBits(off, 8, true)
	return int64(v), err
}

func (p *Pointer) GetUint64(off uintptr) (uint64, error) {
	return p.getBits(off, 8, false)
}

func (p *Pointer) GetFloat32(off uintptr) (float32, error) {
	v, err := p.getBits(off, 4, false)
	return math.Float32frombits(uint32(v)), err
}

func (p *Pointer) GetFloat64(off uintptr) (float64, error) {
	v, err := p.getBits(off, 8, false)
	return math.Float64frombits(v), err
}

// GetPointer reads an address of the memory's pointer width and returns an
// unbounded pointer to it in the same memory.
func (p *Pointer) GetPointer(off uintptr) (*Pointer, error) {
	v, err := p.getBits(off, p.mem.PointerSize(), false)
	if err != nil {
		return nil, err
	}
	return New(p.mem, uintptr(v)), nil
}

func (p *Pointer) PutInt8(off uintptr, v int8) error {
	return p.putBits(off, 1, uint64(v))
}

func (p *Pointer) PutUint8(off uintptr, v uint8) error {
	return p.putBits(off, 1, uint64(v))
}

func (p *Pointer) PutInt16(off uintptr, v int16) error {
	return p.putBits(off, 2, uint64(v))
}

func (p *Pointer) PutUint16(off uintptr, v uint16) error {
	return p.putBits(off, 2, uint64(v))
}

func (p *Pointer) PutInt32(off uintptr, v int32) error {
	return p.putBits(off, 4, uint64(v))
}

func (p *Pointer) PutUint32(off uintptr, v uint32) error {
	return p.putBits(off, 4, uint64(v))
}

func (p *Pointer) PutInt64(off uintptr, v int64) error {
	return p.putBits(off, 8, uint64(v))
}

func (p *Pointer) PutUint64(off uintptr, v uint64) error {
	return p.putBits(off, 8, v)
}

func (p *Pointer) PutFloat32(off uintptr, v float32) error {
	return p.putBits(off, 4, uint64(math.Float32bits(v)))
}

func (p *Pointer) PutFloat64(off uintptr, v float64) error {
	return p.putBits(off, 8, math.Float64bits(v))
}

// PutPointer stores q's address; a nil q stores NULL.
func (p *Pointer) PutPointer(off uintptr, q *Pointer) error {
	var addr uintptr
	if q != nil {
		addr = q.addr
	}
	return p.PutAddress(off, addr)
}

// PutAddress stores a raw address of the memory's pointer width.
func (p *Pointer) PutAddress(off uintptr, addr uintptr) error {
	width := p.mem.PointerSize()
	if width < 8 && uint64(addr)>>(8*width) != 0 {
		return errors.Overflow(errors.PhaseWrite, nil, addr, "pointer")
	}
	return p.putBits(off, width, uint64(addr))
}

func (p *Pointer) ReadInt8() (int8, error)       { return p.GetInt8(0) }
func (p *Pointer) ReadUint8() (uint8, error)     { return p.GetUint8(0) }
func (p *Pointer) ReadInt16() (int16, error)     { return p.GetInt16(0) }
func (p *Pointer) ReadUint16() (uint16, error)   { return p.GetUint16(0) }
func (p *Pointer) ReadInt32() (int32, error)     { return p.GetInt32(0) }
func (p *Pointer) ReadUint32() (uint32, error)   { return p.GetUint32(0) }
func (p *Pointer) ReadInt64() (int64, error)     { return p.GetInt64(0) }
func (p *Pointer) ReadUint64() (uint64, error)   { return p.GetUint64(0) }
func (p *Pointer) ReadFloat32() (float32, error) { return p.GetFloat32(0) }
func (p *Pointer) ReadFloat64() (float64, error) { return p.GetFloat64(0) }
func (p *Pointer) ReadPointer() (*Pointer, error) {
	return p.GetPointer(0)
}

func (p *Pointer) WriteInt8(v int8) error       { return p.PutInt8(0, v) }
func (p *Pointer) WriteUint8(v uint8) error     { return p.PutUint8(0, v) }
func (p *Pointer) WriteInt16(v int16) error     { return p.PutInt16(0, v) }
func (p *Pointer) WriteUint16(v uint16) error   { return p.PutUint16(0, v) }
func (p *Pointer) WriteInt32(v int32) error     { return p.PutInt32(0, v) }
func (p *Pointer) WriteUint32(v uint32) error   { return p.PutUint32(0, v) }
func (p *Pointer) WriteInt64(v int64) error     { return p.PutInt64(0, v) }
func (p *Pointer) WriteUint64(v uint64) error   { return p.PutUint64(0, v) }
func (p *Pointer) WriteFloat32(v float32) error { return p.PutFloat32(0, v) }
func (p *Pointer) WriteFloat64(v float64) error { return p.PutFloat64(0, v) }
func (p *Pointer) WritePointer(q *Pointer) error {
	return p.PutPointer(0, q)
}
