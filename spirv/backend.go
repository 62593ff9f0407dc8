package spirv

import (
	"unicode/utf8"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/registry"
	"github.com/wippyai/spirv-cross/transport"
	"go.uber.org/zap"
)

// Backend pairs a compiler core with the transport its addresses live in
// and owns the registry of compilers created through it.
type Backend struct {
	core  abi.Core
	t     spirvcross.Transport
	table *registry.Table
}

// NewBackend binds core to t. Every address the binding layer passes to
// core is allocated from t.
func NewBackend(core abi.Core, t spirvcross.Transport) *Backend {
	return &Backend{core: core, t: t, table: registry.NewTable()}
}

// Core returns the bound compiler core.
func (b *Backend) Core() abi.Core { return b.core }

// Transport returns the bound transport.
func (b *Backend) Transport() spirvcross.Transport { return b.t }

// Registry returns the table of live compilers.
func (b *Backend) Registry() *registry.Table { return b.table }

// Close releases every compiler still alive, newest first. Compilers
// created afterwards are rejected.
func (b *Backend) Close() error {
	return b.table.Close()
}

// check applies the result protocol to a raw status.
func (b *Backend) check(phase errors.Phase, op string, res abi.Result) error {
	switch res {
	case abi.Success:
		return nil
	case abi.CompilationError:
		return b.diagnostic(phase, op)
	default:
		return errors.Unhandled(phase, op)
	}
}

// diagnostic fetches the core's last message. Any failure along the way
// degrades the error to Unhandled.
func (b *Backend) diagnostic(phase errors.Phase, op string) error {
	s := transport.NewScratch(b.t)
	defer s.Free()

	slot, err := s.Slot()
	if err != nil {
		return b.degraded(phase, op, err)
	}
	if res := b.core.GetLatestExceptionMessage(slot); res != abi.Success {
		return b.degraded(phase, op, errors.Unhandled(errors.PhaseDiagnostic, "get_latest_exception_message"))
	}
	msg, err := b.takeString(slot)
	if err != nil {
		return b.degraded(phase, op, err)
	}
	Logger().Debug("compilation error", zap.String("op", op), zap.String("message", msg))
	return errors.Compilation(phase, msg)
}

func (b *Backend) degraded(phase errors.Phase, op string, cause error) error {
	Logger().Warn("diagnostic unavailable", zap.String("op", op), zap.Error(cause))
	return errors.New(phase, errors.KindUnhandled).Detail("%s", op).Cause(cause).Build()
}

// takeString copies the string whose pointer the core wrote to slot and
// returns it to the core. A null pointer is an error.
func (b *Backend) takeString(slot spirvcross.Address) (string, error) {
	p, err := b.t.ReadPointer(slot)
	if err != nil {
		return "", err
	}
	if p == 0 {
		return "", errors.NilPointer(errors.PhaseMarshal, nil, "char*")
	}
	s, err := b.copyString(p)
	b.free(p)
	return s, err
}

// copyString reads a core-owned string without releasing it.
func (b *Backend) copyString(p spirvcross.Address) (string, error) {
	s, err := transport.ReadCString(b.t, p)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", errors.InvalidUTF8(errors.PhaseMarshal, nil, []byte(s))
	}
	return s, nil
}

// free returns a core allocation. Null is skipped.
func (b *Backend) free(p spirvcross.Address) {
	if p == 0 {
		return
	}
	if res := b.core.FreePointer(p); res != abi.Success {
		Logger().Warn("free_pointer failed", zap.Uint64("pointer", uint64(p)), zap.Stringer("result", res))
	}
}
