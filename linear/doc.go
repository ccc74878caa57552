// Package linear provides WebAssembly linear memory as an ffimemory.Space.
//
// Addresses are 32-bit offsets into a wazero api.Memory and pointers stored in
// the memory are 4 bytes wide, matching the types.Wasm32 registry. Address 0 is
// never handed out so it keeps its NULL meaning.
//
// # Standalone Memory
//
// New instantiates a module that only exports a memory:
//
//	sp, err := linear.New(ctx, linear.WithPages(1), linear.WithMaxPages(16))
//	if err != nil {
//	    return err
//	}
//	defer sp.Close(ctx)
//
// # Guest Memory
//
// Wrap adopts the memory of an instantiated module. The allocator then owns
// the region from WithHeapBase upward, so the guest must not allocate there.
//
//	sp := linear.Wrap(mod.ExportedMemory("memory"), linear.WithHeapBase(1<<16))
//
// # Allocator
//
// Blocks come from a first-fit free list; freed neighbours are coalesced and
// the memory grows by whole pages when the list cannot satisfy a request.
// Freeing an address that is not a live block is ignored and logged.
package linear
