package cstruct

import (
	"fmt"
	"math"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/pointer"
	"github.com/wippyai/ffi-memory/types"
)

// integer splits a Go integer into sign and magnitude. u is the value when
// neg is false, i when it is true.
func integer(v any) (i int64, u uint64, neg, ok bool) {
	switch x := v.(type) {
	case int:
		i = int64(x)
	case int8:
		i = int64(x)
	case int16:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case uint:
		return 0, uint64(x), false, true
	case uint8:
		return 0, uint64(x), false, true
	case uint16:
		return 0, uint64(x), false, true
	case uint32:
		return 0, uint64(x), false, true
	case uint64:
		return 0, x, false, true
	case uintptr:
		return 0, uint64(x), false, true
	default:
		return 0, 0, false, false
	}
	if i < 0 {
		return i, 0, true, true
	}
	return i, uint64(i), false, true
}

// fits reports whether the integer is representable in d.
func fits(d types.Descriptor, i int64, u uint64, neg bool) bool {
	bits := 8 * d.Size
	if d.Code.IsSigned() {
		if neg {
			return bits >= 64 || i >= -(int64(1)<<(bits-1))
		}
		return u <= uint64(1)<<(bits-1)-1
	}
	if neg {
		return false
	}
	return bits >= 64 || u <= uint64(1)<<bits-1
}

func float(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if i, u, neg, ok := integer(v); ok {
		if neg {
			return float64(i), true
		}
		return float64(u), true
	}
	return 0, false
}

func address(v any) (uintptr, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case *pointer.Pointer:
		if x == nil {
			return 0, true
		}
		return x.Address(), true
	case *pointer.MemoryPointer:
		if x == nil {
			return 0, true
		}
		return x.Address(), true
	case *Instance:
		if x == nil {
			return 0, true
		}
		return x.ptr.Address(), true
	case uintptr:
		return x, true
	}
	return 0, false
}

func putScalar(p *pointer.Pointer, d types.Descriptor, v any, path []string) error {
	mismatch := func() error {
		return errors.TypeMismatch(errors.PhaseStruct, path, fmt.Sprintf("%T", v), d.Name)
	}

	switch code := d.Code; {
	case code == types.CodeString:
		return errors.New(errors.PhaseStruct, errors.KindArgument).
			Path(path...).
			CType(d.Name).
			Detail("string fields are read-only; write a char array or a pointer instead").
			Build()

	case code == types.CodeBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		var x uint8
		if b {
			x = 1
		}
		return p.WriteUint8(x)

	case code.IsInteger():
		i, u, neg, ok := integer(v)
		if !ok {
			return mismatch()
		}
		if !fits(d, i, u, neg) {
			return errors.Overflow(errors.PhaseStruct, path, v, d.Name)
		}
		bits := u
		if neg {
			bits = uint64(i)
		}
		switch d.Size {
		case 1:
			return p.WriteUint8(uint8(bits))
		case 2:
			return p.WriteUint16(uint16(bits))
		case 4:
			return p.WriteUint32(uint32(bits))
		default:
			return p.WriteUint64(bits)
		}

	case code == types.CodeFloat32:
		f, ok := float(v)
		if !ok {
			return mismatch()
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return errors.Overflow(errors.PhaseStruct, path, v, d.Name)
		}
		return p.WriteFloat32(float32(f))

	case code == types.CodeFloat64:
		f, ok := float(v)
		if !ok {
			return mismatch()
		}
		return p.WriteFloat64(f)

	case code == types.CodePointer:
		addr, ok := address(v)
		if !ok {
			return mismatch()
		}
		return p.PutAddress(0, addr)
	}
	return errors.Unsupported(errors.PhaseStruct, "field of type "+d.Name)
}

func getScalar(p *pointer.Pointer, d types.Descriptor) (any, error) {
	switch d.Code {
	case types.CodeBool:
		v, err := p.ReadUint8()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case types.CodeInt8:
		return value(p.ReadInt8())
	case types.CodeUint8:
		return value(p.ReadUint8())
	case types.CodeInt16:
		return value(p.ReadInt16())
	case types.CodeUint16:
		return value(p.ReadUint16())
	case types.CodeInt32:
		return value(p.ReadInt32())
	case types.CodeUint32:
		return value(p.ReadUint32())
	case types.CodeInt64:
		return value(p.ReadInt64())
	case types.CodeUint64:
		return value(p.ReadUint64())
	case types.CodeFloat32:
		return value(p.ReadFloat32())
	case types.CodeFloat64:
		return value(p.ReadFloat64())
	case types.CodePointer:
		return value(p.ReadPointer())
	case types.CodeString:
		q, err := p.ReadPointer()
		if err != nil {
			return nil, err
		}
		if q.IsNull() {
			return nil, nil
		}
		return value(q.ReadString())
	}
	return nil, errors.Unsupported(errors.PhaseStruct, "field of type "+d.Name)
}

func value[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
