package types

import (
	"sort"

	"github.com/wippyai/ffi-memory/errors"
)

var (
	Host   = ForPlatform(HostPlatform())
	AMD64  = ForPlatform(PlatformAMD64)
	ARM64  = ForPlatform(PlatformARM64)
	I386   = ForPlatform(PlatformI386)
	Wasm32 = ForPlatform(PlatformWasm32)
)

// Registry resolves type names for one platform. It is read-only once built.
type Registry struct {
	byName   map[string]Descriptor
	names    []string
	platform Platform
}

// ForPlatform builds the registry for p.
func ForPlatform(p Platform) *Registry {
	r := &Registry{
		platform: p,
		byName:   make(map[string]Descriptor, 48),
	}

	r.add(Descriptor{Name: "void", Code: CodeVoid, Size: 0, Align: 1})
	r.add(Descriptor{Name: "bool", Code: CodeBool, Size: 1, Align: 1})
	r.add(Descriptor{Name: "int8", Code: CodeInt8, Size: 1, Align: 1})
	r.add(Descriptor{Name: "uint8", Code: CodeUint8, Size: 1, Align: 1})
	r.add(Descriptor{Name: "int16", Code: CodeInt16, Size: 2, Align: 2})
	r.add(Descriptor{Name: "uint16", Code: CodeUint16, Size: 2, Align: 2})
	r.add(Descriptor{Name: "int32", Code: CodeInt32, Size: 4, Align: 4})
	r.add(Descriptor{Name: "uint32", Code: CodeUint32, Size: 4, Align: 4})
	r.add(Descriptor{Name: "int64", Code: CodeInt64, Size: 8, Align: p.Int64Align})
	r.add(Descriptor{Name: "uint64", Code: CodeUint64, Size: 8, Align: p.Int64Align})
	r.add(Descriptor{Name: "float32", Code: CodeFloat32, Size: 4, Align: 4})
	r.add(Descriptor{Name: "float64", Code: CodeFloat64, Size: 8, Align: p.Int64Align})
	r.add(Descriptor{Name: "pointer", Code: CodePointer, Size: p.WordSize, Align: p.WordSize})
	r.add(Descriptor{Name: "string", Code: CodeString, Size: p.WordSize, Align: p.WordSize})
	r.add(Descriptor{Name: "char_array", Code: CodeCharArray, Size: 1, Align: 1})

	r.alias("char", "int8")
	r.alias("uchar", "uint8")
	r.alias("short", "int16")
	r.alias("ushort", "uint16")
	r.alias("int", "int32")
	r.alias("uint", "uint32")
	r.alias("long_long", "int64")
	r.alias("ulong_long", "uint64")
	r.alias("float", "float32")
	r.alias("double", "float64")
	r.alias("buffer_in", "pointer")
	r.alias("buffer_out", "pointer")
	r.alias("buffer_inout", "pointer")

	signedWord, unsignedWord := "int64", "uint64"
	if p.WordSize == 4 {
		signedWord, unsignedWord = "int32", "uint32"
	}
	signedLong, unsignedLong := "int64", "uint64"
	if p.LongSize == 4 {
		signedLong, unsignedLong = "int32", "uint32"
	}
	r.alias("long", signedLong)
	r.alias("ulong", unsignedLong)
	r.alias("size_t", unsignedWord)
	r.alias("ssize_t", signedWord)
	r.alias("intptr_t", signedWord)
	r.alias("uintptr_t", unsignedWord)
	r.alias("ptrdiff_t", signedWord)

	r.names = make([]string, 0, len(r.byName))
	for name := range r.byName {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	return r
}

func (r *Registry) add(d Descriptor) {
	r.byName[d.Name] = d
}

func (r *Registry) alias(name, target string) {
	r.byName[name] = r.byName[target]
}

// Platform returns the facts this registry was built from.
func (r *Registry) Platform() Platform {
	return r.platform
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Resolve returns the descriptor registered under name or an unknown type error.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, errors.UnknownType(errors.PhaseRegistry, name)
	}
	return d, nil
}

// MustResolve is Resolve for names known to be registered. It panics otherwise.
func (r *Registry) MustResolve(name string) Descriptor {
	d, err := r.Resolve(name)
	if err != nil {
		panic(err)
	}
	return d
}

func (r *Registry) SizeOf(name string) (uintptr, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return 0, err
	}
	return d.Size, nil
}

func (r *Registry) AlignOf(name string) (uintptr, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return 0, err
	}
	return d.Align, nil
}

// Names lists every registered name, aliases included, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ByName returns the registry for a platform name: host, amd64 (x86_64),
// arm64 (aarch64), 386 (i386) or wasm32.
func ByName(name string) (*Registry, bool) {
	switch name {
	case "", "host":
		return Host, true
	case "amd64", "x86_64":
		return AMD64, true
	case "arm64", "aarch64":
		return ARM64, true
	case "386", "i386":
		return I386, true
	case "wasm32", "wasm":
		return Wasm32, true
	}
	return nil, false
}
