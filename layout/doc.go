// Package layout computes the memory shape of C structs and unions.
//
// A layout is an ordered list of fields, each with a type, an offset and a
// size, plus the total size and alignment of the aggregate. Field types form a
// closed set:
//
//	Scalar{Desc}        a registry type such as int32 or pointer
//	Array{Elem, Count}  Count consecutive elements
//	Nested{Layout}      another struct or union embedded by value
//	FuncPtr{}           a function pointer
//
// Placement follows the platform C ABI of the registry the layout is built
// with: each struct field starts at the next offset that is a multiple of its
// alignment, union fields all start at 0, and the size is rounded up to the
// largest field alignment. Explicit offsets bypass placement and are used
// verbatim; misaligned or overlapping ones are logged as warnings.
//
// Layouts are immutable once built and may be shared between goroutines.
//
// # WIT
//
// WITConverter maps WIT types to layouts using the component model canonical
// ABI: strings and lists are {ptr, len} pairs, variants, options and results
// are a discriminant followed by a union of their payloads. FromWIT uses the
// wasm32 registry; NewWITConverterFor keeps another platform's pointer width.
package layout
