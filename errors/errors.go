package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConstruct  Phase = "construct"  // compiler construction
	PhaseOptions    Phase = "options"    // target option setters
	PhaseQuery      Phase = "query"      // reflection queries
	PhaseCompile    Phase = "compile"    // code generation
	PhaseRelease    Phase = "release"    // compiler deletion
	PhaseTransport  Phase = "transport"  // memory transport
	PhaseDiagnostic Phase = "diagnostic" // diagnostic retrieval
	PhaseMarshal    Phase = "marshal"    // struct encoding/decoding
	PhaseLoad       Phase = "load"       // core loading
	PhaseConfig     Phase = "config"     // configuration
	PhaseCache      Phase = "cache"      // compile cache
	PhaseParse      Phase = "parse"      // SPIR-V and profile parsing
)

// Kind categorizes the error
type Kind string

const (
	KindUnhandled      Kind = "unhandled"
	KindCompilation    Kind = "compilation"
	KindPrecondition   Kind = "precondition"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindAllocation     Kind = "allocation"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindNilPointer     Kind = "nil_pointer"
	KindInvalidEnum    Kind = "invalid_enum"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
	KindSignature      Kind = "signature"
)

// Error is the structured error type used throughout the module
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

// Sentinels for errors.Is. They carry no phase and match any phase.
var (
	ErrUnhandled    = &Error{Kind: KindUnhandled}
	ErrCompilation  = &Error{Kind: KindCompilation}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrInvalidEnum  = &Error{Kind: KindInvalidEnum}
)

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
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

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// CType sets the C type name on the core side of the boundary
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

// Result protocol constructors

// Unhandled creates the generic failure the core could not classify
func Unhandled(phase Phase, operation string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnhandled,
		Detail: operation,
	}
}

// Compilation creates a compiler-detected failure carrying the core's diagnostic
func Compilation(phase Phase, message string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCompilation,
		Detail: message,
		Value:  message,
	}
}

// CompilationMessage returns the diagnostic of a compilation error.
func CompilationMessage(err error) (string, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindCompilation {
			msg, _ := e.Value.(string)
			return msg, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Precondition creates an error for an operation issued in the wrong state
func Precondition(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPrecondition,
		Detail: detail,
	}
}

// Convenience constructors for common error patterns

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
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

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, addr uint64, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access out of bounds: address=%#x, length=%d", addr, length),
		Value:  addr,
	}
}

// NilPointer creates a null pointer error
func NilPointer(phase Phase, path []string, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		CType:  cType,
		Detail: "null pointer",
	}
}

// InvalidEnum creates an unrecognized enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Path:   path,
		CType:  enumType,
		Detail: fmt.Sprintf("unrecognized value %v for %s", value, enumType),
		Value:  value,
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

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a missing core or module
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Signature creates an error for a core export whose signature does not
// match the boundary contract
func Signature(name, detail string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignature,
		Path:   []string{name},
		Detail: detail,
	}
}

// Load creates a core loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// MissingExportsError is returned when a loaded core lacks entry points of
// the boundary contract
type MissingExportsError struct {
	Module  string
	Exports []string
}

// NewMissingExportsError creates an error listing the absent exports
func NewMissingExportsError(module string, exports []string) *MissingExportsError {
	return &MissingExportsError{Module: module, Exports: exports}
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] not_found: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("module %q is missing %d export(s):", e.Module, len(e.Exports)))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	_, ok := target.(*MissingExportsError)
	return ok
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
