// Package native loads a shared-library build of the compiler core.
//
// The library is opened with purego, so no cgo toolchain is needed. Its
// sc_internal_* symbols are resolved up front and called through an
// abi.Dispatch; memory crosses through a Direct transport because the
// library shares the process address space.
package native

import (
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/transport"
)

// EnvLibrary names the environment variable tests and tools consult for
// the library path.
const EnvLibrary = "SPVC_NATIVE_LIBRARY"

// Core returns the library's entry points as an abi.Core.
func (l *Library) Core() abi.Core {
	return l.core
}

// Transport returns the Direct transport the library's addresses live in.
func (l *Library) Transport() *transport.Direct {
	return l.mem
}

// Path returns the path the library was opened from.
func (l *Library) Path() string {
	return l.path
}
