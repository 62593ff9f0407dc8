package msl_test

import (
	"strings"
	"testing"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

func eachCompiler(t *testing.T, words []uint32, fn func(t *testing.T, c *msl.Compiler)) {
	t.Helper()
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			probe := transport.NewProbe(nt.Transport)
			b := spirv.NewBackend(refcore.New(probe), probe)
			c, err := msl.New(b, spirv.ModuleFromWords(words))
			if err != nil {
				t.Fatal(err)
			}
			fn(t, c)
			c.Close()
			if probe.Live() != 0 {
				t.Errorf("probe reports %d live allocations", probe.Live())
			}
		})
	}
}

func TestResourceBindingOverride(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		loc := msl.ResourceBindingLocation{Stage: spirv.Vertex, DescSet: 0, Binding: 0}
		o := msl.DefaultOptions()
		o.ResourceBindingOverrides = map[msl.ResourceBindingLocation]msl.ResourceBinding{
			loc: {BufferID: 5},
			{Stage: spirv.Fragment, DescSet: 3, Binding: 9}: {BufferID: 7},
		}
		if err := c.SetOptions(o); err != nil {
			t.Fatal(err)
		}

		src, err := c.Compile()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(src, "buffer(5)") {
			t.Errorf("override not applied:\n%s", src)
		}
		if !c.IsResourceBindingUsed(loc) {
			t.Error("override not reported as used")
		}
		if c.IsResourceBindingUsed(msl.ResourceBindingLocation{Stage: spirv.Fragment, DescSet: 3, Binding: 9}) {
			t.Error("fragment override reported as used by a vertex shader")
		}
	})
}

func TestOverridesAreSnapshotAtSetOptions(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		loc := msl.ResourceBindingLocation{Stage: spirv.Vertex}
		overrides := map[msl.ResourceBindingLocation]msl.ResourceBinding{loc: {BufferID: 5}}
		o := msl.DefaultOptions()
		o.ResourceBindingOverrides = overrides
		if err := c.SetOptions(o); err != nil {
			t.Fatal(err)
		}
		overrides[loc] = msl.ResourceBinding{BufferID: 11}

		src, err := c.Compile()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(src, "buffer(5)") || strings.Contains(src, "buffer(11)") {
			t.Errorf("caller's map leaked into compile:\n%s", src)
		}
	})
}

func TestVertexAttributeOverride(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		o := msl.DefaultOptions()
		o.VertexAttributeOverrides = map[msl.VertexAttributeLocation]msl.VertexAttribute{
			1: {BufferID: 2, Stride: 12, Step: msl.StepInstance},
			7: {BufferID: 3},
		}
		if err := c.SetOptions(o); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Compile(); err != nil {
			t.Fatal(err)
		}
		if !c.IsVertexAttributeUsed(1) {
			t.Error("location 1 not reported as used")
		}
		if c.IsVertexAttributeUsed(7) {
			t.Error("location 7 reported as used")
		}
	})
}

func TestCleansedEntryPointName(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		if _, err := c.GetCleansedEntryPointName("main", spirv.Vertex); !errors.Is(err, errors.ErrPrecondition) {
			t.Fatalf("before compile: %v", err)
		}
		if _, err := c.Compile(); err != nil {
			t.Fatal(err)
		}
		name, err := c.GetCleansedEntryPointName("main", spirv.Vertex)
		if err != nil {
			t.Fatal(err)
		}
		if name != "main0" {
			t.Errorf("cleansed = %q, want main0", name)
		}
	})
}

func TestIsRasterizationEnabled(t *testing.T) {
	tests := []struct {
		name   string
		enable bool
		want   bool
	}{
		{"enabled", true, true},
		{"disabled", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
				o := msl.DefaultOptions()
				o.EnableRasterization = tt.enable
				if err := c.SetOptions(o); err != nil {
					t.Fatal(err)
				}
				if _, err := c.Compile(); err != nil {
					t.Fatal(err)
				}
				got, err := c.IsRasterizationEnabled()
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Errorf("IsRasterizationEnabled = %v, want %v", got, tt.want)
				}
			})
		})
	}
}

func TestSetOptions_Invalid(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		tests := []func(o *msl.Options){
			func(o *msl.Options) { o.Platform = msl.Platform(4) },
			func(o *msl.Options) { o.Version = msl.Version(9) },
			func(o *msl.Options) {
				o.VertexAttributeOverrides = map[msl.VertexAttributeLocation]msl.VertexAttribute{0: {Format: 42}}
			},
			func(o *msl.Options) {
				o.ResourceBindingOverrides = map[msl.ResourceBindingLocation]msl.ResourceBinding{{Stage: 99}: {}}
			},
		}
		for i, mutate := range tests {
			o := msl.DefaultOptions()
			mutate(&o)
			if err := c.SetOptions(o); !errors.Is(err, errors.ErrInvalidEnum) {
				t.Errorf("case %d: err = %v", i, err)
			}
		}
		if c.State().String() != "constructed" {
			t.Errorf("rejected options changed state to %s", c.State())
		}
	})
}

func TestArgumentBuffersNeedMSL2(t *testing.T) {
	eachCompiler(t, spvtest.NewVertex().Words, func(t *testing.T, c *msl.Compiler) {
		o := msl.DefaultOptions()
		o.ArgumentBuffers = true
		if err := c.SetOptions(o); err != nil {
			t.Fatal(err)
		}
		_, err := c.Compile()
		msg, ok := errors.CompilationMessage(err)
		if !ok || !strings.Contains(msg, "MSL 2.0") {
			t.Errorf("err = %v", err)
		}

		o.Version = msl.V2_0
		if err := c.SetOptions(o); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Compile(); err != nil {
			t.Errorf("MSL 2.0: %v", err)
		}
	})
}

func TestVersionText(t *testing.T) {
	var v msl.Version
	if err := v.UnmarshalText([]byte("2.1")); err != nil || v != msl.V2_1 || v.Raw() != 20100 {
		t.Errorf("version = %v (%d), %v", v, v.Raw(), err)
	}
	var p msl.Platform
	if err := p.UnmarshalText([]byte("ios")); err != nil || p != msl.IOS {
		t.Errorf("platform = %v, %v", p, err)
	}
	if err := p.UnmarshalText([]byte("tvos")); err == nil {
		t.Error("unknown platform accepted")
	}
}
