package glsl_test

import (
	"strings"
	"testing"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/glsl"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

func newCompiler(t *testing.T, words []uint32) (*glsl.Compiler, *transport.Probe) {
	t.Helper()
	probe := transport.NewProbe(spvtest.NewDirect(t))
	b := spirv.NewBackend(refcore.New(probe), probe)
	c, err := glsl.New(b, spirv.ModuleFromWords(words))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		if probe.Live() != 0 {
			t.Errorf("probe reports %d live allocations", probe.Live())
		}
	})
	return c, probe
}

func mustCompile(t *testing.T, c *glsl.Compiler) string {
	t.Helper()
	src, err := c.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return src
}

func assertContains(t *testing.T, src string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(src, w) {
			t.Errorf("output missing %q:\n%s", w, src)
		}
	}
}

func TestCompile_Defaults(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewVertex().Words)
	assertContains(t, mustCompile(t, c),
		"#version 450",
		"uniform uniform_buffer_object",
		"layout(location = 0) in vec4 a_position;",
	)
}

func TestSetOptions(t *testing.T) {
	tests := []struct {
		name string
		opts func(o *glsl.Options)
		want []string
	}{
		{"es 100", func(o *glsl.Options) { o.Version = glsl.V1_00Es }, []string{"#version 100 es", "attribute vec4 a_position;"}},
		{"330", func(o *glsl.Options) { o.Version = glsl.V3_30 }, []string{"#version 330"}},
		{"invert y", func(o *glsl.Options) { o.Vertex.InvertY = true }, []string{"gl_Position.y = -gl_Position.y;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCompiler(t, spvtest.NewVertex().Words)
			o := glsl.DefaultOptions()
			tt.opts(&o)
			if err := c.SetOptions(o); err != nil {
				t.Fatal(err)
			}
			assertContains(t, mustCompile(t, c), tt.want...)
		})
	}
}

func TestSetOptions_Invalid(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewVertex().Words)
	o := glsl.DefaultOptions()
	o.Version = glsl.Version(99)
	if err := c.SetOptions(o); !errors.Is(err, errors.ErrInvalidEnum) {
		t.Errorf("bad version: %v", err)
	}
	o = glsl.DefaultOptions()
	o.Fragment.DefaultIntPrecision = glsl.Precision(9)
	if err := c.SetOptions(o); !errors.Is(err, errors.ErrInvalidEnum) {
		t.Errorf("bad precision: %v", err)
	}
}

func TestSetOptions_AfterCompile(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewVertex().Words)
	mustCompile(t, c)
	if err := c.SetOptions(glsl.DefaultOptions()); !errors.Is(err, errors.ErrPrecondition) {
		t.Errorf("err = %v", err)
	}
}

func TestCompile_ComputeNeedsESSL310(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewCompute().Words)
	o := glsl.DefaultOptions()
	o.Version = glsl.V1_00Es
	if err := c.SetOptions(o); err != nil {
		t.Fatal(err)
	}
	_, err := c.Compile()
	msg, ok := errors.CompilationMessage(err)
	if !ok || !strings.Contains(msg, "ESSL 3.10") {
		t.Errorf("err = %v", err)
	}
}

func TestCombinedImageSamplers(t *testing.T) {
	f := spvtest.NewFragment()
	c, _ := newCompiler(t, f.Words)

	samplers, err := c.GetCombinedImageSamplers()
	if err != nil {
		t.Fatal(err)
	}
	if len(samplers) != 1 || samplers[0].ImageID != f.Image || samplers[0].SamplerID != f.Sampler {
		t.Fatalf("samplers = %+v", samplers)
	}
	again, err := c.GetCombinedImageSamplers()
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0] != samplers[0] {
		t.Errorf("second call = %+v", again)
	}

	name, err := c.GetName(samplers[0].CombinedID)
	if err != nil || name != "SPIRV_Cross_Combinedu_imageu_sampler" {
		t.Errorf("combined name = %q, %v", name, err)
	}
	assertContains(t, mustCompile(t, c), "uniform sampler2D SPIRV_Cross_Combinedu_imageu_sampler;")
}

func TestAddHeaderLine(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewVertex().Words)
	if err := c.AddHeaderLine("#define SPVC 1"); err != nil {
		t.Fatal(err)
	}
	assertContains(t, mustCompile(t, c), "#define SPVC 1")
}

func TestFlattenBufferBlock(t *testing.T) {
	v := spvtest.NewVertex()
	c, _ := newCompiler(t, v.Words)
	if err := c.FlattenBufferBlock(v.Block); err != nil {
		t.Fatal(err)
	}
	assertContains(t, mustCompile(t, c), "[5];")

	if err := c.FlattenBufferBlock(v.Position); !errors.Is(err, errors.ErrCompilation) {
		t.Errorf("flatten non-block: %v", err)
	}
}

func TestCleansedEntryPointName(t *testing.T) {
	c, _ := newCompiler(t, spvtest.NewVertex().Words)
	if _, err := c.GetCleansedEntryPointName("main", spirv.Vertex); !errors.Is(err, errors.ErrPrecondition) {
		t.Fatalf("before compile: %v", err)
	}
	mustCompile(t, c)
	name, err := c.GetCleansedEntryPointName("main", spirv.Vertex)
	if err != nil || name != "main" {
		t.Errorf("cleansed = %q, %v", name, err)
	}
}

func TestVersionText(t *testing.T) {
	for _, v := range []glsl.Version{glsl.V1_10, glsl.V4_60, glsl.V3_00Es} {
		text, err := v.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got glsl.Version
		if err := got.UnmarshalText(text); err != nil || got != v {
			t.Errorf("%s: got %v, %v", text, got, err)
		}
	}
	if _, err := glsl.ParseVersion("999"); err == nil {
		t.Error("unknown version accepted")
	}

	var p glsl.Precision
	if err := p.UnmarshalText([]byte("low")); err != nil || p != glsl.PrecisionLow {
		t.Errorf("precision = %v, %v", p, err)
	}
}
