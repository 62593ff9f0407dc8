package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/transport"
)

// Instance is a bound core: its entry points, its linear memory as a Heap
// transport, and the allocator behind it.
type Instance struct {
	ctx      context.Context
	module   api.Module
	compiled wazero.CompiledModule
	heap     *transport.Heap
	core     *abi.Dispatch
	funcs    map[string]entry

	mu       sync.Mutex
	stackBuf []uint64
	closed   bool
}

// maxParams is the widest entry point in the contract.
const maxParams = 8

func bind(ctx context.Context, mod api.Module, r wazero.Runtime, lc loadConfig) (*Instance, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.Load("core module exports no memory", nil)
	}
	alloc, err := transport.NewExportAllocator(ctx, mod)
	if err != nil {
		return nil, errors.Load("bind allocator", err)
	}

	target := mod
	if lc.contract != "" {
		if target = r.Module(lc.contract); target == nil {
			return nil, missingModule(lc.contract)
		}
	}
	funcs, err := bindContract(target, mod)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		ctx:      ctx,
		module:   mod,
		heap:     transport.NewHeap(mem, alloc),
		funcs:    funcs,
		stackBuf: make([]uint64, maxParams),
	}
	inst.core = abi.NewDispatch(inst.call)
	return inst, nil
}

// Core returns the entry points as an abi.Core.
func (i *Instance) Core() abi.Core {
	return i.core
}

// Transport returns the Heap transport over the core's linear memory.
func (i *Instance) Transport() *transport.Heap {
	return i.heap
}

// Module returns the instantiated core module.
func (i *Instance) Module() api.Module {
	return i.module
}

// call implements abi.CallFunc. One call runs at a time.
func (i *Instance) call(name string, args ...uint64) (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, errors.Precondition(errors.PhaseLoad, "core instance is closed")
	}
	fn, ok := i.funcs[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	if len(args) > len(i.stackBuf) {
		return 0, fmt.Errorf("%s: %d arguments exceed the call stack", name, len(args))
	}

	stack := i.stackBuf[:max(len(args), 1)]
	copy(stack, args)
	debugf("call %s%v", name, args)
	if err := fn(i.ctx, stack); err != nil {
		Logger().Error("core call trapped", zap.String("fn", name), zap.Error(err))
		return 0, err
	}
	return stack[0], nil
}

// Close releases the core module. Calls after Close fail and surface as
// Unhandled results.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	err := i.module.Close(ctx)
	if i.compiled != nil {
		if cerr := i.compiled.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
