//go:build !darwin && !linux

package native

import (
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/transport"
)

// Library is an opened core library.
type Library struct {
	path string
	core *abi.Dispatch
	mem  *transport.Direct
}

// Open is not supported on this platform.
func Open(path string) (*Library, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "native core libraries")
}

// Close is a no-op.
func (l *Library) Close() error {
	return nil
}
