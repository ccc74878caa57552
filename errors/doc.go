// Package errors provides structured error types for the ffi-memory library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/C type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseStruct, errors.KindTypeMismatch).
//		Path("point", "x").
//		GoType("string").
//		CType("int32").
//		Detail("cannot store string in integer field").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullPointer(errors.PhaseRead, "int32")
//	err := errors.OutOfBounds(errors.PhaseWrite, 12, 4, 8)
//
// Every error kind has a sentinel that matches any phase:
//
//	if errors.Is(err, errors.ErrNullPointer) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
