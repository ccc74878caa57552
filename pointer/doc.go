// Package pointer provides typed access to foreign memory.
//
// A Pointer is an immutable handle on an address in an ffimemory.Memory. It
// never owns memory: many pointers may alias one address and dropping a
// pointer has no effect on the memory behind it. Address 0 is NULL; every
// read or write through NULL fails with a null pointer error before memory is
// touched.
//
// # Accessors
//
// Each fixed-width type has an offset form and a zero-offset form:
//
//	v, err := p.GetInt32(8)     // 4 bytes at address+8
//	err = p.PutInt32(8, -1)
//	v, err = p.ReadInt32()      // same as GetInt32(0)
//
// Arrays, strings and raw bytes follow the same pattern (ReadArrayOfUint16,
// GetString, PutBytes, ...). Zero-length array operations succeed even on
// NULL because no element is ever touched.
//
// # Bounds
//
// Slice returns a pointer whose accesses are checked against a length; Offset
// on a bounded pointer checks the delta against what remains of it. Pointers
// without a bound are only checked by their Memory.
//
// # Byte Order
//
// Order returns a pointer that decodes values in another byte order, or the
// receiver itself when the order is unchanged. Network is BigEndian.
//
// # Ownership
//
// A MemoryPointer owns an allocation. Free releases it once; later calls and a
// racing garbage-collector cleanup are no-ops. With autorelease enabled (the
// default) the allocation is released after the MemoryPointer becomes
// unreachable. Pointers derived from a MemoryPointer must not outlive it;
// using one after the owner was freed fails with a use-after-free error.
//
// The cleanup is attached to the MemoryPointer's embedded Pointer, and every
// accessor keeps its receiver alive until the access is done, so reading
// through the owner is safe even when that read is the owner's last use. A
// derived pointer does not keep the owner alive: hold the MemoryPointer, or
// call runtime.KeepAlive on it, for as long as derived pointers are used.
package pointer
