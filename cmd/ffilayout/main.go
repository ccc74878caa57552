package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/cstruct"
	"github.com/wippyai/ffi-memory/decl"
	"github.com/wippyai/ffi-memory/layout"
	"github.com/wippyai/ffi-memory/linear"
	"github.com/wippyai/ffi-memory/native"
	"github.com/wippyai/ffi-memory/pointer"
	"github.com/wippyai/ffi-memory/types"
)

func main() {
	var (
		declFile    = flag.String("decl", "", "Path to a YAML or JSON layout declaration file")
		witFile     = flag.String("wit", "", "Path to a WIT JSON document (wasm-tools component wit --json)")
		platform    = flag.String("platform", "", "Platform for -decl (host, amd64, arm64, 386, wasm32)")
		typeName    = flag.String("type", "", "Show only this type")
		dump        = flag.Bool("dump", false, "Allocate an instance of each type and hexdump it")
		setVals     = flag.String("set", "", "Field values for -dump (field=value,outer.inner=value)")
		inLinear    = flag.Bool("linear", false, "Allocate instances in WebAssembly linear memory")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log layout warnings and allocations to stderr")
	)
	flag.Parse()

	if (*declFile == "") == (*witFile == "") {
		fmt.Fprintln(os.Stderr, "Usage: ffilayout -decl <types.yaml> [-platform name] [-type name] [-dump [-set f=v,...]]")
		fmt.Fprintln(os.Stderr, "       ffilayout -wit <package.json> [-type name] [-dump]")
		fmt.Fprintln(os.Stderr, "       ffilayout -decl <types.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		if err := installLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	set, err := load(*declFile, *witFile, *platform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	sp, closeSpace, err := openSpace(ctx, set.Registry(), *inLinear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeSpace()

	if *interactive {
		err = runInteractive(set, sp, title(*declFile, *witFile))
	} else {
		err = run(set, sp, *typeName, *dump, *setVals)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeSpace()
		os.Exit(1)
	}
}

func installLogger() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	layout.SetLogger(logger.Named("layout"))
	pointer.SetLogger(logger.Named("pointer"))
	linear.SetLogger(logger.Named("linear"))
	return nil
}

func title(declFile, witFile string) string {
	if declFile != "" {
		return filepath.Base(declFile)
	}
	return filepath.Base(witFile)
}

// load resolves the declaration or WIT file into a set of layouts. WIT
// documents always use the wasm32 canonical ABI.
func load(declFile, witFile, platform string) (*decl.Set, error) {
	if witFile != "" {
		f, err := os.Open(witFile)
		if err != nil {
			return nil, fmt.Errorf("open wit: %w", err)
		}
		defer f.Close()
		set, err := decl.LoadWIT(f)
		if err != nil {
			return nil, fmt.Errorf("load wit: %w", err)
		}
		return set, nil
	}

	data, err := os.ReadFile(declFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	file, err := decl.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var reg *types.Registry
	if platform != "" {
		r, ok := types.ByName(platform)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", platform)
		}
		reg = r
	}
	set, err := file.Resolve(reg)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return set, nil
}

// openSpace picks the address space instances are allocated in. Pointer
// fields are only writable when the space and the layouts agree on the
// pointer width.
func openSpace(ctx context.Context, reg *types.Registry, inLinear bool) (ffimemory.Space, func(), error) {
	if !inLinear {
		sp := native.Default()
		if reg.Platform().WordSize != sp.PointerSize() {
			return nil, nil, fmt.Errorf("layouts are for %s; use -linear or a host platform to allocate", reg.Platform().Name)
		}
		return sp, func() {}, nil
	}

	if reg.Platform().WordSize != 4 {
		return nil, nil, fmt.Errorf("linear memory needs 32-bit layouts, got %s", reg.Platform().Name)
	}
	sp, err := linear.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create linear memory: %w", err)
	}
	closed := false
	return sp, func() {
		if !closed {
			closed = true
			sp.Close(ctx)
		}
	}, nil
}

func run(set *decl.Set, sp ffimemory.Space, typeName string, dump bool, setVals string) error {
	names := set.Names()
	if typeName != "" {
		if _, err := set.Lookup(typeName); err != nil {
			return err
		}
		names = []string{typeName}
	}

	assigns, err := parseAssignments(setVals)
	if err != nil {
		return err
	}
	if len(assigns) > 0 && len(names) != 1 {
		return fmt.Errorf("-set needs -type")
	}

	r := newRenderer(os.Stdout)
	for i, name := range names {
		l, _ := set.Layout(name)
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(r.layout(l))

		if !dump {
			continue
		}
		inst, err := cstruct.New(l, nil, pointer.WithSpace(sp))
		if err != nil {
			return fmt.Errorf("allocate %s: %w", name, err)
		}
		for _, a := range assigns {
			if err := assign(inst, a.path, a.value); err != nil {
				inst.Free()
				return fmt.Errorf("set %s: %w", a.path, err)
			}
		}
		out, err := r.dump(inst)
		inst.Free()
		if err != nil {
			return fmt.Errorf("dump %s: %w", name, err)
		}
		fmt.Print(out)
	}
	return nil
}

type assignment struct {
	path  string
	value string
}

func parseAssignments(s string) ([]assignment, error) {
	if s == "" {
		return nil, nil
	}
	var out []assignment
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("bad assignment %q, want field=value", kv)
		}
		out = append(out, assignment{path: strings.TrimSpace(parts[0]), value: parts[1]})
	}
	return out, nil
}

// assign sets a possibly dotted field path from its text form.
func assign(inst *cstruct.Instance, path, text string) error {
	parts := strings.Split(path, ".")
	for _, name := range parts[:len(parts)-1] {
		v, err := inst.Get(name)
		if err != nil {
			return err
		}
		nested, ok := v.(*cstruct.Instance)
		if !ok {
			return fmt.Errorf("%s is not a struct", name)
		}
		inst = nested
	}

	name := parts[len(parts)-1]
	f, ok := inst.Layout().Field(name)
	if !ok {
		// Let Set report the unknown field.
		return inst.Set(name, text)
	}
	v, err := parseValue(f.Type, text)
	if err != nil {
		return err
	}
	return inst.Set(name, v)
}

func parseValue(t layout.TypeSpec, text string) (any, error) {
	switch t := t.(type) {
	case layout.Scalar:
		code := t.Desc.Code
		switch {
		case code == types.CodeBool:
			return strconv.ParseBool(text)
		case code.IsInteger():
			c, isChar := charLiteral(text)
			switch {
			case isChar && t.Desc.Size == 1 && code.IsSigned():
				return int64(int8(c)), nil
			case isChar && t.Desc.Size == 1:
				return uint64(c), nil
			case code.IsSigned():
				return strconv.ParseInt(text, 0, 64)
			}
			return strconv.ParseUint(text, 0, 64)
		case code.IsFloat():
			return strconv.ParseFloat(text, 64)
		case code == types.CodePointer:
			return parseAddress(text)
		default:
			return text, nil
		}
	case layout.Array:
		if t.IsCharArray() {
			return text, nil
		}
	case layout.FuncPtr:
		return parseAddress(text)
	}
	return nil, fmt.Errorf("cannot set %s from text", t)
}

// charLiteral accepts 'c' or a single non-digit character, so char fields
// can be set as -set c=A.
func charLiteral(text string) (byte, bool) {
	switch {
	case len(text) == 3 && text[0] == '\'' && text[2] == '\'':
		return text[1], true
	case len(text) == 1 && (text[0] < '0' || text[0] > '9'):
		return text[0], true
	}
	return 0, false
}

func parseAddress(text string) (uintptr, error) {
	u, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, err
	}
	if uint64(uintptr(u)) != u {
		return 0, fmt.Errorf("address %#x does not fit a pointer", u)
	}
	return uintptr(u), nil
}
