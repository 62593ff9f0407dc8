package refcore

import (
	"strings"
	"testing"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/transport"
)

type harness struct {
	t    *testing.T
	tr   spirvcross.Transport
	core *Core
	s    *transport.Scratch
}

func newHarness(t *testing.T, tr spirvcross.Transport) *harness {
	t.Helper()
	h := &harness{t: t, tr: tr, core: New(tr), s: transport.NewScratch(tr)}
	t.Cleanup(h.s.Free)
	return h
}

func (h *harness) slot() abi.Address {
	h.t.Helper()
	addr, err := h.s.Slot()
	if err != nil {
		h.t.Fatalf("slot: %v", err)
	}
	return addr
}

func (h *harness) ptr(slot abi.Address) abi.Address {
	h.t.Helper()
	v, err := h.tr.ReadPointer(slot)
	if err != nil {
		h.t.Fatalf("read pointer: %v", err)
	}
	return v
}

func (h *harness) str(slot abi.Address) string {
	h.t.Helper()
	s, err := transport.ReadCString(h.tr, h.ptr(slot))
	if err != nil {
		h.t.Fatalf("read string: %v", err)
	}
	return s
}

func (h *harness) construct(newFn func(compiler, ir abi.Address, size uint32) abi.Result, words []uint32) (abi.Address, abi.Result) {
	h.t.Helper()
	ir := h.s.Alloc(uint32(len(words)) * 4)
	if err := transport.WriteWords(h.tr, ir, words); err != nil {
		h.t.Fatalf("write words: %v", err)
	}
	slot := h.slot()
	res := newFn(slot, ir, uint32(len(words)))
	return h.ptr(slot), res
}

func (h *harness) expect(what string, got, want abi.Result) {
	h.t.Helper()
	if got != want {
		h.t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

func TestCore_EmptyModule(t *testing.T) {
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			h := newHarness(t, nt.Transport)

			_, res := h.construct(h.core.CompilerGLSLNew, nil)
			h.expect("construct", res, abi.CompilationError)

			msg := h.slot()
			h.expect("message", h.core.GetLatestExceptionMessage(msg), abi.Success)
			if got := h.str(msg); !strings.Contains(got, "too small") {
				t.Errorf("message = %q", got)
			}
			h.expect("free message", h.core.FreePointer(h.ptr(msg)), abi.Success)

			comp, res := h.construct(h.core.CompilerGLSLNew, spvtest.HeaderOnly())
			h.expect("construct header only", res, abi.Success)
			h.expect("compile", h.core.CompilerCompile(comp, h.slot()), abi.CompilationError)
			h.expect("delete", h.core.CompilerDelete(comp), abi.Success)

			if h.core.Live() != 0 || h.core.Outstanding() != 0 {
				t.Errorf("live=%d outstanding=%d", h.core.Live(), h.core.Outstanding())
			}
		})
	}
}

func TestCore_CompileAndFree(t *testing.T) {
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			h := newHarness(t, nt.Transport)
			comp, res := h.construct(h.core.CompilerGLSLNew, spvtest.NewVertex().Words)
			h.expect("construct", res, abi.Success)

			shader := h.slot()
			h.expect("compile", h.core.CompilerCompile(comp, shader), abi.Success)
			if src := h.str(shader); !strings.HasPrefix(src, "#version 450") {
				t.Errorf("source = %q", src)
			}
			if h.core.Outstanding() != 1 {
				t.Errorf("outstanding = %d, want 1", h.core.Outstanding())
			}
			h.expect("free", h.core.FreePointer(h.ptr(shader)), abi.Success)
			h.expect("double free", h.core.FreePointer(h.ptr(shader)), abi.Unhandled)
			h.expect("free null", h.core.FreePointer(0), abi.Success)
			h.expect("delete", h.core.CompilerDelete(comp), abi.Success)
			h.expect("delete twice", h.core.CompilerDelete(comp), abi.Unhandled)
			if h.core.Outstanding() != 0 {
				t.Errorf("outstanding = %d", h.core.Outstanding())
			}
		})
	}
}

func TestCore_WrongTarget(t *testing.T) {
	h := newHarness(t, spvtest.NewDirect(t))
	comp, res := h.construct(h.core.CompilerHLSLNew, spvtest.NewVertex().Words)
	h.expect("construct", res, abi.Success)
	defer h.core.CompilerDelete(comp)

	h.expect("glsl build on hlsl", h.core.CompilerGLSLBuildCombinedImageSamplers(comp), abi.Unhandled)
	h.expect("msl raster on hlsl", h.core.CompilerMSLGetIsRasterizationDisabled(comp, h.slot()), abi.Unhandled)
	h.expect("unknown handle", h.core.CompilerCompile(comp+64, h.slot()), abi.Unhandled)
}

func TestCore_ShaderResources(t *testing.T) {
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			h := newHarness(t, nt.Transport)
			comp, res := h.construct(h.core.CompilerGLSLNew, spvtest.NewVertex().Words)
			h.expect("construct", res, abi.Success)
			defer h.core.CompilerDelete(comp)

			l := abi.LayoutsFor(nt.Transport.PointerSize())
			out, err := h.s.Zeroed(l.ShaderResources.Size)
			if err != nil {
				t.Fatal(err)
			}
			h.expect("resources", h.core.CompilerGetShaderResources(comp, out), abi.Success)

			rec := abi.NewRecord(nt.Transport, l.ShaderResources, out)
			counts := make(map[string]uint64)
			for _, cat := range abi.ResourceCategories {
				arr := rec.Sub(cat)
				counts[cat] = arr.Size("num")
				if data := arr.Pointer("data"); data != 0 {
					for i := uint64(0); i < counts[cat]; i++ {
						name := abi.Element(nt.Transport, l.Resource, data, int(i)).Pointer("name")
						h.expect("free name", h.core.FreePointer(name), abi.Success)
					}
					h.expect("free array", h.core.FreePointer(data), abi.Success)
				}
			}
			if rec.Err() != nil {
				t.Fatal(rec.Err())
			}
			if counts["uniform_buffers"] != 1 || counts["stage_inputs"] != 2 || counts["stage_outputs"] != 1 {
				t.Errorf("counts = %v", counts)
			}
			if h.core.Outstanding() != 0 {
				t.Errorf("outstanding = %d", h.core.Outstanding())
			}
		})
	}
}

func TestCore_OutOfRangeID(t *testing.T) {
	h := newHarness(t, spvtest.NewDirect(t))
	comp, res := h.construct(h.core.CompilerGLSLNew, spvtest.NewVertex().Words)
	h.expect("construct", res, abi.Success)
	defer h.core.CompilerDelete(comp)

	h.expect("decoration", h.core.CompilerGetDecoration(comp, h.slot(), 0xffff, 0), abi.CompilationError)
	msg := h.slot()
	h.expect("message", h.core.GetLatestExceptionMessage(msg), abi.Success)
	if got := h.str(msg); got != "ID 65535 is out of range." {
		t.Errorf("message = %q", got)
	}
	h.core.FreePointer(h.ptr(msg))
}

func TestCore_MSLOverrides(t *testing.T) {
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			h := newHarness(t, nt.Transport)
			comp, res := h.construct(h.core.CompilerMSLNew, spvtest.NewVertex().Words)
			h.expect("construct", res, abi.Success)
			defer h.core.CompilerDelete(comp)

			l := abi.LayoutsFor(nt.Transport.PointerSize())
			binding, err := h.s.Zeroed(l.MSLResourceBinding.Size)
			if err != nil {
				t.Fatal(err)
			}
			rec := abi.NewRecord(nt.Transport, l.MSLResourceBinding, binding).
				SetU32("stage", spvtest.ModelVertex).
				SetU32("msl_buffer", 5)
			if rec.Err() != nil {
				t.Fatal(rec.Err())
			}

			shader := h.slot()
			h.expect("compile", h.core.CompilerMSLCompile(comp, shader, 0, 0, binding, 1), abi.Success)
			if src := h.str(shader); !strings.Contains(src, "buffer(5)") {
				t.Errorf("source lacks buffer(5):\n%s", src)
			}
			if !rec.Bool("used_by_shader") {
				t.Error("override not reported as used")
			}
			h.core.FreePointer(h.ptr(shader))

			name, err := h.s.CString("main")
			if err != nil {
				t.Fatal(err)
			}
			cleansed := h.slot()
			h.expect("cleansed", h.core.CompilerGetCleansedEntryPointName(comp, name, spvtest.ModelVertex, cleansed), abi.Success)
			if got := h.str(cleansed); got != "main0" {
				t.Errorf("cleansed = %q, want main0", got)
			}
			h.core.FreePointer(h.ptr(cleansed))
		})
	}
}
