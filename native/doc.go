// Package native provides the process address space as an ffimemory.Space.
//
// Two allocators are available, selected at build time:
//
//   - default: blocks are carved from the Go heap and pinned in a registry
//     until freed. The Go collector does not move heap objects, so their
//     addresses stay valid while registered.
//   - malloc_cgo build tag: blocks come from libc malloc/posix_memalign and are
//     released with free, for memory that is handed to native code.
//
// View on the default allocator only resolves addresses inside live blocks
// unless WithForeignAccess is set, in which case any other address is
// dereferenced as raw process memory.
package native
