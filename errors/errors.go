package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegistry Phase = "registry" // type name resolution
	PhaseLayout   Phase = "layout"   // struct/union layout computation
	PhaseRead     Phase = "read"     // memory to Go
	PhaseWrite    Phase = "write"    // Go to memory
	PhaseOffset   Phase = "offset"   // pointer arithmetic
	PhaseAlloc    Phase = "alloc"    // allocation
	PhaseFree     Phase = "free"     // release
	PhaseStruct   Phase = "struct"   // struct field access
	PhaseDecl     Phase = "decl"     // declaration files
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownType  Kind = "unknown_type"
	KindUnknownField Kind = "unknown_field"
	KindNullPointer  Kind = "null_pointer"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindUseAfterFree Kind = "use_after_free"
	KindOutOfMemory  Kind = "out_of_memory"
	KindArgument     Kind = "invalid_argument"
	KindTypeMismatch Kind = "type_mismatch"
	KindOverflow     Kind = "overflow"
	KindInvalidData  Kind = "invalid_data"
	KindUnsupported  Kind = "unsupported"
	KindCycle        Kind = "cycle"
)

// Sentinels match any error of their kind regardless of phase.
var (
	ErrUnknownType  = &Error{Kind: KindUnknownType}
	ErrUnknownField = &Error{Kind: KindUnknownField}
	ErrNullPointer  = &Error{Kind: KindNullPointer}
	ErrOutOfBounds  = &Error{Kind: KindOutOfBounds}
	ErrUseAfterFree = &Error{Kind: KindUseAfterFree}
	ErrOutOfMemory  = &Error{Kind: KindOutOfMemory}
	ErrArgument     = &Error{Kind: KindArgument}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	CType  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Is is errors.Is from the standard library, re-exported so callers need a
// single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the native type name
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownType creates an unregistered type name error
func UnknownType(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownType,
		Detail: fmt.Sprintf("unknown type %q", name),
		Value:  name,
	}
}

// UnknownField creates an error for a field missing from a layout
func UnknownField(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownField,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
		Value:  fieldName,
	}
}

// NullPointer creates a NULL dereference error
func NullPointer(phase Phase, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		CType:  cType,
		Detail: "NULL pointer dereference",
	}
}

// OutOfBounds creates an error for an access of size bytes at offset outside
// a region of length bytes
func OutOfBounds(phase Phase, offset int64, size, length uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access of %d bytes at offset %d out of bounds (length %d)", size, offset, length),
		Value:  offset,
	}
}

// AddressOutOfRange creates an error for an address outside its memory
func AddressOutOfRange(phase Phase, addr, size uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("address 0x%x (+%d) outside memory", addr, size),
		Value:  addr,
	}
}

// UseAfterFree creates an error for access through a released allocation
func UseAfterFree(phase Phase, addr uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterFree,
		Detail: fmt.Sprintf("memory at 0x%x already freed", addr),
		Value:  addr,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(size, align uintptr, cause error) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// Argument creates an invalid argument error
func Argument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArgument,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  cType,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Cycle creates an error for a layout that contains itself by value
func Cycle(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCycle,
		Path:   path,
		Detail: "aggregate contains itself by value",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecl,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
