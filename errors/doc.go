// Package errors provides structured error types for the binding layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Two kinds form the public result protocol of every compiler call:
//
//   - KindUnhandled: the core failed in a way it could not classify
//   - KindCompilation: the core rejected the module or options and left a diagnostic
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseQuery, errors.KindInvalidEnum).
//		Path("entry_points", "0", "execution_model").
//		CType("spv::ExecutionModel").
//		Detail("unrecognized value 42").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Compilation(errors.PhaseCompile, msg)
//	err := errors.OutOfBounds(errors.PhaseTransport, addr, 16)
//
// Sentinels without a phase match any phase:
//
//	if errors.Is(err, spverrors.ErrUnhandled) { ... }
package errors
