package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/spirv-cross/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages caps each guest's memory in 64KiB pages.
	// 0 keeps wazero's default of 65536 pages.
	MemoryLimitPages uint32

	// Stdout and Stderr receive the guest's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Engine owns one wazero runtime with WASI preview1 instantiated in it.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config

	wasiOnce sync.Once
	wasiErr  error
}

// New creates an engine. cfg may be nil.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if err := e.initWASI(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

// Runtime exposes the underlying wazero runtime, e.g. to instantiate a
// contract module for WithContractModule.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases the runtime and every instance loaded on it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

func (e *Engine) initWASI(ctx context.Context) error {
	e.wasiOnce.Do(func() {
		if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
			return
		}
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			e.wasiErr = errors.Load("instantiate WASI", err)
		}
	})
	return e.wasiErr
}

// LoadOption adjusts how Load binds a core.
type LoadOption func(*loadConfig)

type loadConfig struct {
	name     string
	contract string
}

// WithName instantiates the core under name instead of anonymously.
func WithName(name string) LoadOption {
	return func(c *loadConfig) { c.name = name }
}

// WithContractModule resolves the entry points in the named module
// instead of the loaded one.
func WithContractModule(name string) LoadOption {
	return func(c *loadConfig) { c.contract = name }
}

// Load compiles and instantiates a core module and binds it.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte, opts ...LoadOption) (*Instance, error) {
	var lc loadConfig
	for _, opt := range opts {
		opt(&lc)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile core module", err)
	}

	modCfg := wazero.NewModuleConfig().WithName(lc.name)
	if e.cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(e.cfg.Stderr)
	}
	// Reactor-style cores export _initialize rather than _start.
	modCfg = modCfg.WithStartFunctions("_initialize")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load("instantiate core module", err)
	}

	inst, err := bind(ctx, mod, e.runtime, lc)
	if err != nil {
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, err
	}
	inst.compiled = compiled
	Logger().Debug("core loaded",
		zap.String("module", mod.Name()),
		zap.String("contract", displayName(lc.contract, mod.Name())),
		zap.Uint32("memory_bytes", inst.heap.Memory().Size()))
	return inst, nil
}

func displayName(contract, mod string) string {
	if contract != "" {
		return contract
	}
	if mod == "" {
		return "<anonymous>"
	}
	return mod
}

func missingModule(name string) error {
	return errors.Load(fmt.Sprintf("contract module %q is not instantiated", name), nil)
}
