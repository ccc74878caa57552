package pointer

import "encoding/binary"

type ByteOrder uint8

const (
	NativeOrder ByteOrder = iota
	BigEndian
	LittleEndian

	Network = BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return "native"
	}
}

// ParseByteOrder accepts native, big, little and network.
func ParseByteOrder(s string) (ByteOrder, bool) {
	switch s {
	case "native", "":
		return NativeOrder, true
	case "big", "network":
		return BigEndian, true
	case "little":
		return LittleEndian, true
	}
	return NativeOrder, false
}

type byteOrderer interface {
	ByteOrder() binary.ByteOrder
}

// resolve turns NativeOrder into the concrete order of mem.
func (o ByteOrder) resolve(mem any) ByteOrder {
	if o != NativeOrder {
		return o
	}
	var bo binary.ByteOrder = binary.NativeEndian
	if m, ok := mem.(byteOrderer); ok {
		bo = m.ByteOrder()
	}
	if bo.Uint16([]byte{0x01, 0x00}) == 1 {
		return LittleEndian
	}
	return BigEndian
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
