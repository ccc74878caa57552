// Package types maps native type names to their code, size and alignment.
//
// A Registry is built once per Platform and never changes afterwards, so it can
// be shared between goroutines without locking. Host describes the running
// process; Wasm32, AMD64 and I386 describe fixed targets.
//
// # Vocabulary
//
// Canonical names:
//
//	int8 uint8 int16 uint16 int32 uint32 int64 uint64
//	float32 float64 pointer void string char_array bool
//
// Platform aliases, resolved by word size (and LLP64 on Windows):
//
//	long ulong size_t ssize_t intptr_t uintptr_t
//
// C spellings mapping onto canonical entries:
//
//	char uchar short ushort int uint long_long ulong_long float double
//
// A "string" is a char* stored as a pointer; "char_array" is the element type
// of an inline fixed-size character buffer.
package types
