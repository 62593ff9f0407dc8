//go:build darwin || linux

package native

import (
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/transport"
)

// Library is an opened core library.
type Library struct {
	path   string
	handle uintptr
	syms   map[string]uintptr
	core   *abi.Dispatch
	mem    *transport.Direct

	// The core keeps its latest exception message in a global.
	mu     sync.Mutex
	closed bool
}

// Open loads the library at path and resolves every contract symbol.
func Open(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, errors.Load("dlopen "+path, err)
	}

	syms := make(map[string]uintptr, len(abi.Exports))
	var missing []string
	for _, e := range abi.Exports {
		sym, err := purego.Dlsym(handle, e.Name)
		if err != nil || sym == 0 {
			missing = append(missing, e.Name)
			continue
		}
		syms[e.Name] = sym
	}
	if len(missing) > 0 {
		_ = purego.Dlclose(handle)
		return nil, errors.NewMissingExportsError(path, missing)
	}

	l := &Library{
		path:   path,
		handle: handle,
		syms:   syms,
		mem:    transport.NewDirect(),
	}
	l.core = abi.NewDispatch(l.call)
	Logger().Debug("native core loaded", zap.String("path", path), zap.Int("symbols", len(syms)))
	return l, nil
}

func (l *Library) call(name string, args ...uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, errors.Precondition(errors.PhaseLoad, "native library is closed")
	}
	sym, ok := l.syms[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseLoad, "symbol", name)
	}
	words := make([]uintptr, len(args))
	for i, a := range args {
		words[i] = uintptr(a)
	}
	r1, _, _ := purego.SyscallN(sym, words...)
	return uint64(uint32(r1)), nil
}

// Close unloads the library and releases the transport. Compilers created
// on it must already be released.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.mem.Close(); err != nil {
		Logger().Warn("close native transport", zap.Error(err))
	}
	return purego.Dlclose(l.handle)
}
