package types

import (
	"encoding/binary"
	"runtime"
	"unsafe"
)

// Platform holds the native facts a registry is derived from.
type Platform struct {
	ByteOrder binary.ByteOrder
	Name      string
	WordSize  uintptr
	LongSize  uintptr
	// Int64Align is the in-struct alignment of 64-bit integers and doubles.
	Int64Align uintptr
}

var (
	PlatformAMD64 = Platform{
		Name:       "amd64",
		WordSize:   8,
		LongSize:   8,
		Int64Align: 8,
		ByteOrder:  binary.LittleEndian,
	}

	PlatformARM64 = Platform{
		Name:       "arm64",
		WordSize:   8,
		LongSize:   8,
		Int64Align: 8,
		ByteOrder:  binary.LittleEndian,
	}

	// PlatformI386 follows the System V i386 ABI, where long long and double
	// are only 4-byte aligned inside structs.
	PlatformI386 = Platform{
		Name:       "386",
		WordSize:   4,
		LongSize:   4,
		Int64Align: 4,
		ByteOrder:  binary.LittleEndian,
	}

	PlatformWasm32 = Platform{
		Name:       "wasm32",
		WordSize:   4,
		LongSize:   4,
		Int64Align: 8,
		ByteOrder:  binary.LittleEndian,
	}
)

// HostPlatform describes the running process.
func HostPlatform() Platform {
	word := unsafe.Sizeof(uintptr(0))

	long := word
	if runtime.GOOS == "windows" {
		long = 4
	}

	int64Align := uintptr(8)
	if runtime.GOARCH == "386" {
		int64Align = 4
	}

	return Platform{
		Name:       runtime.GOOS + "/" + runtime.GOARCH,
		WordSize:   word,
		LongSize:   long,
		Int64Align: int64Align,
		ByteOrder:  hostByteOrder(),
	}
}

func hostByteOrder() binary.ByteOrder {
	x := uint16(1)
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
