package abi

import (
	"testing"

	"github.com/wippyai/spirv-cross/internal/spvtest"
)

func TestResultFromRaw(t *testing.T) {
	tests := []struct {
		raw  uint64
		want Result
	}{
		{0, Success},
		{1, Unhandled},
		{2, CompilationError},
		{3, Unhandled},
		{0xffffffff, Unhandled},
	}
	for _, tt := range tests {
		if got := ResultFromRaw(tt.raw); got != tt.want {
			t.Errorf("ResultFromRaw(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestResult_String(t *testing.T) {
	if Success.String() != "Success" || CompilationError.String() != "CompilationError" {
		t.Errorf("unexpected names %q %q", Success, CompilationError)
	}
	if got := Result(9).String(); got != "Result(9)" {
		t.Errorf("String = %q", got)
	}
}

func TestLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout func(*Layouts) *Layout
		size32 uint32
		size64 uint32
	}{
		{"ScEntryPoint", func(l *Layouts) *Layout { return l.EntryPoint }, 20, 24},
		{"ScResource", func(l *Layouts) *Layout { return l.Resource }, 16, 24},
		{"ScResourceArray", func(l *Layouts) *Layout { return l.ResourceArray }, 8, 16},
		{"ScShaderResources", func(l *Layouts) *Layout { return l.ShaderResources }, 88, 176},
		{"ScType", func(l *Layouts) *Layout { return l.Type }, 20, 40},
		{"ScSpecializationConstant", func(l *Layouts) *Layout { return l.SpecializationConstant }, 8, 8},
		{"ScBufferRange", func(l *Layouts) *Layout { return l.BufferRange }, 12, 24},
		{"ScCombinedImageSampler", func(l *Layouts) *Layout { return l.CombinedImageSampler }, 12, 12},
		{"ScGlslCompilerOptions", func(l *Layouts) *Layout { return l.GLSLOptions }, 24, 24},
		{"ScHlslCompilerOptions", func(l *Layouts) *Layout { return l.HLSLOptions }, 12, 12},
		{"ScMslCompilerOptions", func(l *Layouts) *Layout { return l.MSLOptions }, 36, 36},
		{"MSLVertexAttr", func(l *Layouts) *Layout { return l.MSLVertexAttr }, 28, 28},
		{"MSLResourceBinding", func(l *Layouts) *Layout { return l.MSLResourceBinding }, 28, 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout(LayoutsFor(4)).Size; got != tt.size32 {
				t.Errorf("wasm32 size = %d, want %d", got, tt.size32)
			}
			if got := tt.layout(LayoutsFor(8)).Size; got != tt.size64 {
				t.Errorf("64-bit size = %d, want %d", got, tt.size64)
			}
		})
	}
}

func TestLayout_Offsets(t *testing.T) {
	l := LayoutsFor(8)
	if off := l.Resource.Offset("name"); off != 16 {
		t.Errorf("ScResource.name offset = %d, want 16", off)
	}
	if off := l.GLSLOptions.Offset("version"); off != 4 {
		t.Errorf("version offset = %d, want 4", off)
	}
	if off := l.MSLOptions.Offset("platform"); off != 2 {
		t.Errorf("platform offset = %d, want 2", off)
	}
	if off := l.ShaderResources.Offset("separate_samplers"); off != 160 {
		t.Errorf("separate_samplers offset = %d, want 160", off)
	}
	if LayoutsFor(8) != l {
		t.Error("LayoutsFor should cache per pointer size")
	}
}

func TestLayout_UnknownFieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	LayoutsFor(4).EntryPoint.Offset("missing")
}

func TestRecord_RoundTrip(t *testing.T) {
	for _, tt := range spvtest.Transports(t) {
		t.Run(tt.Name, func(t *testing.T) {
			tr := tt.Transport
			l := LayoutsFor(tr.PointerSize())

			addr := tr.Allocate(l.MSLOptions.Size)
			defer tr.Free(addr)

			rec := NewRecord(tr, l.MSLOptions, addr).Zero()
			rec.SetBool("vertex_invert_y", true).
				SetU8("platform", 1).
				SetU32("version", 20100).
				SetBool("disable_rasterization", true).
				SetU32("swizzle_buffer_index", 30)
			if err := rec.Err(); err != nil {
				t.Fatalf("write: %v", err)
			}

			back := NewRecord(tr, l.MSLOptions, addr)
			if !back.Bool("vertex_invert_y") || back.Bool("vertex_transform_clip_space") {
				t.Error("bool fields mismatch")
			}
			if back.U8("platform") != 1 || back.U32("version") != 20100 {
				t.Errorf("platform/version = %d/%d", back.U8("platform"), back.U32("version"))
			}
			if back.U32("swizzle_buffer_index") != 30 {
				t.Errorf("swizzle_buffer_index = %d", back.U32("swizzle_buffer_index"))
			}
			if err := back.Err(); err != nil {
				t.Fatalf("read: %v", err)
			}
		})
	}
}

func TestRecord_NestedArrays(t *testing.T) {
	for _, tt := range spvtest.Transports(t) {
		t.Run(tt.Name, func(t *testing.T) {
			tr := tt.Transport
			l := LayoutsFor(tr.PointerSize())

			addr := tr.Allocate(l.ShaderResources.Size)
			defer tr.Free(addr)

			rec := NewRecord(tr, l.ShaderResources, addr).Zero()
			rec.Sub("stage_inputs").SetPointer("data", 0x40).SetSize("num", 2)

			in := NewRecord(tr, l.ShaderResources, addr).Sub("stage_inputs")
			if in.Pointer("data") != 0x40 || in.Size("num") != 2 {
				t.Errorf("stage_inputs = (%#x, %d)", in.Pointer("data"), in.Size("num"))
			}
			out := NewRecord(tr, l.ShaderResources, addr).Sub("stage_outputs")
			if out.Pointer("data") != 0 || out.Size("num") != 0 {
				t.Error("stage_outputs should stay zero")
			}
		})
	}
}

func TestRecord_StickyError(t *testing.T) {
	tr := spvtest.NewHeap(t)
	l := LayoutsFor(4)

	rec := NewRecord(tr, l.EntryPoint, 0xfffffff0)
	_ = rec.U32("execution_model")
	if rec.Err() == nil {
		t.Fatal("expected out of bounds error")
	}
	first := rec.Err()
	rec.SetU32("workgroup_size_x", 1)
	if rec.Err() != first {
		t.Error("first error should be kept")
	}

	if NewRecord(tr, l.EntryPoint, 0).Err() == nil {
		t.Error("null base should fail")
	}
}

type recordingCore struct {
	Core
	calls []string
	args  [][]uint64
}

func (c *recordingCore) CompilerSetDecoration(compiler Address, id, decoration, argument uint32) Result {
	c.calls = append(c.calls, FnCompilerSetDecoration)
	c.args = append(c.args, []uint64{uint64(compiler), uint64(id), uint64(decoration), uint64(argument)})
	return Success
}

func (c *recordingCore) CompilerMSLCompile(compiler, shader, vat Address, vatCount uint32, res Address, resCount uint32) Result {
	c.calls = append(c.calls, FnCompilerMSLCompile)
	c.args = append(c.args, []uint64{uint64(compiler), uint64(shader), uint64(vat), uint64(vatCount), uint64(res), uint64(resCount)})
	return CompilationError
}

func TestDispatch_ServeRoundTrip(t *testing.T) {
	core := &recordingCore{}
	d := NewDispatch(func(name string, args ...uint64) (uint64, error) {
		r, ok := Serve(core, name, args)
		if !ok {
			t.Fatalf("Serve rejected %s", name)
		}
		return uint64(r), nil
	})

	if r := d.CompilerSetDecoration(0x100, 7, 33, 2); r != Success {
		t.Errorf("SetDecoration = %v", r)
	}
	if r := d.CompilerMSLCompile(0x100, 0x200, 0x300, 2, 0x400, 1); r != CompilationError {
		t.Errorf("MSLCompile = %v", r)
	}

	if len(core.calls) != 2 {
		t.Fatalf("calls = %v", core.calls)
	}
	want := []uint64{0x100, 0x200, 0x300, 2, 0x400, 1}
	for i, v := range want {
		if core.args[1][i] != v {
			t.Errorf("arg %d = %#x, want %#x", i, core.args[1][i], v)
		}
	}
}

func TestServe_Rejects(t *testing.T) {
	core := &recordingCore{}
	if _, ok := Serve(core, "sc_internal_nope", nil); ok {
		t.Error("unknown export accepted")
	}
	if _, ok := Serve(core, FnCompilerSetDecoration, []uint64{1, 2}); ok {
		t.Error("wrong arity accepted")
	}
}

func TestDispatch_CallErrorIsUnhandled(t *testing.T) {
	d := NewDispatch(func(string, ...uint64) (uint64, error) {
		return 0, errTrap
	})
	if r := d.CompilerDelete(1); r != Unhandled {
		t.Errorf("CompilerDelete = %v, want Unhandled", r)
	}
}

func TestExports(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Exports {
		if seen[e.Name] {
			t.Errorf("duplicate export %s", e.Name)
		}
		seen[e.Name] = true
	}
	if len(Exports) != 35 {
		t.Errorf("len(Exports) = %d, want 35", len(Exports))
	}
	e, ok := Lookup(FnCompilerGLSLNew)
	if !ok {
		t.Fatal("Lookup failed")
	}
	if got := e.WIT(); got != "sc_internal_compiler_glsl_new: func(compiler: u32, ir: u32, size: u32) -> u32;" {
		t.Errorf("WIT = %q", got)
	}
}

type trapError struct{}

func (trapError) Error() string { return "trap" }

var errTrap = trapError{}
