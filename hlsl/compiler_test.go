package hlsl_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/hlsl"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

func newCompiler(t *testing.T, tr *transport.Probe, words []uint32) *hlsl.Compiler {
	t.Helper()
	b := spirv.NewBackend(refcore.New(tr), tr)
	c, err := hlsl.New(b, spirv.ModuleFromWords(words))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		if tr.Live() != 0 {
			t.Errorf("probe reports %d live allocations", tr.Live())
		}
	})
	return c
}

func TestCompile(t *testing.T) {
	compute := spvtest.NewCompute()
	tests := []struct {
		name  string
		words []uint32
		model hlsl.ShaderModel
		want  []string
	}{
		{"vertex sm30", spvtest.NewVertex().Words, hlsl.V3_0, []string{"[5] : register(c0);", ": POSITION;"}},
		{"vertex sm50", spvtest.NewVertex().Words, hlsl.V5_0, []string{"cbuffer uniform_buffer_object : register(b0)", "packoffset(c4)", "SV_Position"}},
		{"vertex level 9", spvtest.NewVertex().Words, hlsl.V4_0L9_3, []string{"cbuffer uniform_buffer_object"}},
		{"compute sm50", compute.Words, hlsl.V5_0, []string{"[numthreads(8, 4, 1)]", fmt.Sprintf("RWByteAddressBuffer _%d : register(u0);", compute.Buffer)}},
	}
	for _, tt := range tests {
		for _, nt := range spvtest.Transports(t) {
			t.Run(tt.name+"/"+nt.Name, func(t *testing.T) {
				c := newCompiler(t, transport.NewProbe(nt.Transport), tt.words)
				o := hlsl.DefaultOptions()
				o.ShaderModel = tt.model
				if err := c.SetOptions(o); err != nil {
					t.Fatal(err)
				}
				src, err := c.Compile()
				if err != nil {
					t.Fatal(err)
				}
				for _, w := range tt.want {
					if !strings.Contains(src, w) {
						t.Errorf("output missing %q:\n%s", w, src)
					}
				}
			})
		}
	}
}

func TestCompile_ComputeOnSM30(t *testing.T) {
	c := newCompiler(t, transport.NewProbe(spvtest.NewDirect(t)), spvtest.NewCompute().Words)
	if _, err := c.Compile(); !errors.Is(err, errors.ErrCompilation) {
		t.Errorf("err = %v", err)
	}
	if err := c.SetOptions(hlsl.Options{ShaderModel: hlsl.V5_0}); err != nil {
		t.Errorf("options after a failed compile: %v", err)
	}
	if _, err := c.Compile(); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestSetOptions_InvalidModel(t *testing.T) {
	c := newCompiler(t, transport.NewProbe(spvtest.NewDirect(t)), spvtest.NewVertex().Words)
	err := c.SetOptions(hlsl.Options{ShaderModel: hlsl.ShaderModel(42)})
	if !errors.Is(err, errors.ErrInvalidEnum) {
		t.Errorf("err = %v", err)
	}
}

func TestShaderModel(t *testing.T) {
	tests := []struct {
		model hlsl.ShaderModel
		raw   int32
	}{
		{hlsl.V3_0, 30},
		{hlsl.V4_0, 40},
		{hlsl.V4_0L9_0, 40},
		{hlsl.V4_0L9_1, 40},
		{hlsl.V4_0L9_3, 40},
		{hlsl.V4_1, 41},
		{hlsl.V5_0, 50},
		{hlsl.V5_1, 51},
		{hlsl.V6_0, 60},
	}
	for _, tt := range tests {
		if got := tt.model.Raw(); got != tt.raw {
			t.Errorf("%s.Raw() = %d, want %d", tt.model, got, tt.raw)
		}
		parsed, err := hlsl.ParseShaderModel(tt.model.String())
		if err != nil || parsed != tt.model {
			t.Errorf("ParseShaderModel(%q) = %v, %v", tt.model, parsed, err)
		}
	}
}
