package engine_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/engine"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/glsl"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/internal/wasmtest"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

// memoryOnlyModule exports one page of memory and nothing else.
var memoryOnlyModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	eng, err := engine.New(ctx, &engine.Config{MemoryLimitPages: 256})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(ctx) })
	return eng
}

// bridged loads the allocator guest and serves refcore as its contract
// module, so the Go core works inside the guest's linear memory.
func bridged(t *testing.T) (*engine.Instance, *refcore.Core) {
	t.Helper()
	ctx := context.Background()
	eng := newEngine(t)

	var core *refcore.Core
	_, err := engine.ServeCore(ctx, eng.Runtime(), "spvc_core", func() abi.Core {
		if core == nil {
			return nil
		}
		return core
	})
	if err != nil {
		t.Fatalf("ServeCore: %v", err)
	}
	inst, err := eng.Load(ctx, wasmtest.AllocatorModule, engine.WithName("guest"), engine.WithContractModule("spvc_core"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	core = refcore.New(inst.Transport())
	return inst, core
}

func TestLoad_CompilesThroughGuestMemory(t *testing.T) {
	inst, core := bridged(t)
	probe := transport.NewProbe(inst.Transport())
	b := spirv.NewBackend(inst.Core(), probe)

	c, err := glsl.New(b, spirv.ModuleFromWords(spvtest.NewVertex().Words))
	if err != nil {
		t.Fatal(err)
	}
	src, err := c.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "#version 450") {
		t.Errorf("unexpected output:\n%s", src)
	}
	eps, err := c.GetEntryPoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0].Name != "main" {
		t.Errorf("entry points = %+v", eps)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if probe.Live() != 0 {
		t.Errorf("probe reports %d live allocations", probe.Live())
	}
	if core.Live() != 0 || core.Outstanding() != 0 {
		t.Errorf("core: %d compilers, %d buffers outstanding", core.Live(), core.Outstanding())
	}
}

func TestLoad_CompilationErrorCrossesBoundary(t *testing.T) {
	inst, _ := bridged(t)
	b := spirv.NewBackend(inst.Core(), inst.Transport())
	defer b.Close()

	c, err := spirv.New(b, spirv.TargetGLSL, spirv.ModuleFromWords(spvtest.HeaderOnly()))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_, err = c.Compile()
	msg, ok := errors.CompilationMessage(err)
	if !ok || !strings.Contains(msg, "no entry point") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_MissingExports(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Load(context.Background(), wasmtest.AllocatorModule)

	var missing *errors.MissingExportsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingExportsError", err)
	}
	if len(missing.Exports) != len(abi.Exports) {
		t.Errorf("missing %d exports, want %d", len(missing.Exports), len(abi.Exports))
	}
	if missing.Exports[0] != abi.FnGetLatestExceptionMessage {
		t.Errorf("first missing = %q", missing.Exports[0])
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		wasm []byte
		opts []engine.LoadOption
		want string
	}{
		{"not wasm", []byte("spirv"), nil, "compile core module"},
		{"no memory", emptyModule, nil, "exports no memory"},
		{"no allocator", memoryOnlyModule, nil, "bind allocator"},
		{"unknown contract module", wasmtest.AllocatorModule, []engine.LoadOption{engine.WithContractModule("absent")}, `"absent"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newEngine(t)
			_, err := eng.Load(context.Background(), tt.wasm, tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestServeCore_WithoutCoreIsUnhandled(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	if _, err := engine.ServeCore(ctx, eng.Runtime(), "spvc_core", func() abi.Core { return nil }); err != nil {
		t.Fatal(err)
	}
	inst, err := eng.Load(ctx, wasmtest.AllocatorModule, engine.WithContractModule("spvc_core"))
	if err != nil {
		t.Fatal(err)
	}
	if res := inst.Core().CompilerDelete(1); res != abi.Unhandled {
		t.Errorf("CompilerDelete = %s, want Unhandled", res)
	}
}

func TestInstance_CallsAfterCloseAreUnhandled(t *testing.T) {
	inst, _ := bridged(t)
	if err := inst.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if res := inst.Core().FreePointer(0); res != abi.Unhandled {
		t.Errorf("FreePointer = %s, want Unhandled", res)
	}
	if err := inst.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestInstance_ConcurrentCompilers(t *testing.T) {
	inst, core := bridged(t)
	words := spvtest.NewCompute().Words

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := spirv.NewBackend(inst.Core(), inst.Transport())
			defer b.Close()
			c, err := glsl.New(b, spirv.ModuleFromWords(words))
			if err != nil {
				errs <- err
				return
			}
			defer c.Close()
			if _, err := c.Compile(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if core.Live() != 0 {
		t.Errorf("%d compilers still live", core.Live())
	}
}
