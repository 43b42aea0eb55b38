// Package errors provides the structured error type used across the
// decoder, lifter, renderer, and CLI.
//
// Errors are categorized by Phase (which layer raised it) and Kind
// (what went wrong). The Error type carries a Path — for decode errors
// the cursor's absolute byte offset, for lift errors the function id
// and instruction index — plus an optional human Detail and Cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindBadOpcode).
//		Path("offset 142").
//		Detail("unknown opcode 0x%02x", op).
//		Build()
//
// Or use the convenience constructors for the common cases:
//
//	err := errors.Truncated(errors.PhaseDecode, pos)
//	err := errors.BadIndex(errors.PhaseDecode, "function", idx, max)
package errors
