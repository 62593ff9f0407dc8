package profile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/glsl"
	"github.com/wippyai/spirv-cross/hlsl"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/profile"
	"github.com/wippyai/spirv-cross/spirv"
)

const mslYAML = `
target: msl
entry_point: main
msl:
  options:
    platform: ios
    version: "2.0"
    enable_rasterization: false
  vertex_attributes:
    - location: 1
      buffer_id: 2
      stride: 12
      step: instance
  resource_bindings:
    - stage: vertex
      desc_set: 0
      binding: 0
      buffer_id: 5
`

const mslTOML = `
target = "msl"
entry_point = "main"

[msl.options]
platform = "ios"
version = "2.0"
enable_rasterization = false

[[msl.vertex_attributes]]
location = 1
buffer_id = 2
stride = 12
step = "instance"

[[msl.resource_bindings]]
stage = "vertex"
desc_set = 0
binding = 0
buffer_id = 5
`

func TestDecode_MSL(t *testing.T) {
	tests := []struct {
		name   string
		format profile.Format
		data   string
	}{
		{"yaml", profile.YAML, mslYAML},
		{"toml", profile.TOML, mslTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := profile.Decode([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if target, _ := p.ParseTarget(); target != spirv.TargetMSL || p.EntryPoint != "main" {
				t.Errorf("target = %q, entry point = %q", p.Target, p.EntryPoint)
			}

			o, err := p.MSL.Build()
			if err != nil {
				t.Fatal(err)
			}
			if o.Platform != msl.IOS || o.Version != msl.V2_0 || o.EnableRasterization {
				t.Errorf("options = %+v", o)
			}
			if !o.EnablePointSizeBuiltin || o.SwizzleBufferIndex != 30 {
				t.Errorf("unspecified fields lost their defaults: %+v", o)
			}
			attr, ok := o.VertexAttributeOverrides[1]
			if !ok || attr.BufferID != 2 || attr.Stride != 12 || attr.Step != msl.StepInstance {
				t.Errorf("vertex attribute = %+v, %v", attr, ok)
			}
			bind, ok := o.ResourceBindingOverrides[msl.ResourceBindingLocation{Stage: spirv.Vertex}]
			if !ok || bind.BufferID != 5 {
				t.Errorf("resource binding = %+v, %v", bind, ok)
			}
		})
	}
}

func TestDecode_DefaultsForAbsentSections(t *testing.T) {
	p, err := profile.Decode([]byte("target: glsl\nglsl:\n  options:\n    version: 300es\n"), profile.YAML)
	if err != nil {
		t.Fatal(err)
	}
	if p.GLSL.Options.Version != glsl.V3_00Es {
		t.Errorf("version = %s", p.GLSL.Options.Version)
	}
	if p.GLSL.Options.Fragment != glsl.DefaultOptions().Fragment {
		t.Errorf("fragment defaults lost: %+v", p.GLSL.Options.Fragment)
	}
	if p.HLSL.Options != hlsl.DefaultOptions() {
		t.Errorf("hlsl = %+v", p.HLSL.Options)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		format profile.Format
		data   string
	}{
		{"no target", profile.YAML, "glsl: {}\n"},
		{"unknown target", profile.YAML, "target: spirv\n"},
		{"unknown field", profile.YAML, "target: glsl\nglsl:\n  options:\n    version_number: 450\n"},
		{"bad version", profile.YAML, "target: glsl\nglsl:\n  options:\n    version: 999\n"},
		{"bad toml", profile.TOML, "target = \n"},
		{"unknown format", profile.Format("json"), "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := profile.Decode([]byte(tt.data), tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		prof profile.MSLProfile
		kind errors.Kind
	}{
		{"step", profile.MSLProfile{VertexAttributes: []profile.VertexAttributeOverride{{Step: "sideways"}}}, errors.KindInvalidEnum},
		{"format", profile.MSLProfile{VertexAttributes: []profile.VertexAttributeOverride{{Format: "float"}}}, errors.KindInvalidEnum},
		{"stage", profile.MSLProfile{ResourceBindings: []profile.ResourceBindingOverride{{Stage: "mesh"}}}, errors.KindInvalidEnum},
		{"duplicate location", profile.MSLProfile{VertexAttributes: []profile.VertexAttributeOverride{{Location: 3}, {Location: 3}}}, errors.KindInvalidData},
		{"duplicate binding", profile.MSLProfile{ResourceBindings: []profile.ResourceBindingOverride{{Stage: "fragment"}, {Stage: "Fragment"}}}, errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.prof.Build()
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	for _, format := range []profile.Format{profile.YAML, profile.TOML} {
		t.Run(string(format), func(t *testing.T) {
			p := profile.Default(spirv.TargetMSL)
			p.MSL.Options.Version = msl.V2_1
			p.MSL.ResourceBindings = []profile.ResourceBindingOverride{{Stage: "Fragment", DescSet: 1, Binding: 2, TextureID: 4}}

			data, err := profile.Encode(p, format)
			if err != nil {
				t.Fatal(err)
			}
			back, err := profile.Decode(data, format)
			if err != nil {
				t.Fatalf("decode:\n%s\n%v", data, err)
			}
			want, _ := p.Fingerprint()
			got, _ := back.Fingerprint()
			if !bytes.Equal(got, want) {
				t.Errorf("fingerprint changed:\n%s\nwant\n%s", got, want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := profile.Default(spirv.TargetMSL)
	a.MSL.VertexAttributes = []profile.VertexAttributeOverride{{Location: 2}, {Location: 1}}
	b := profile.Default(spirv.TargetMSL)
	b.MSL.VertexAttributes = []profile.VertexAttributeOverride{{Location: 1}, {Location: 2}}
	fa, _ := a.Fingerprint()
	fb, _ := b.Fingerprint()
	if !bytes.Equal(fa, fb) {
		t.Error("override order changed the fingerprint")
	}

	b.GLSL.Options.Version = glsl.V3_00Es
	if fc, _ := b.Fingerprint(); !bytes.Equal(fa, fc) {
		t.Error("GLSL options changed an MSL fingerprint")
	}
	b.MSL.Options.ArgumentBuffers = true
	if fd, _ := b.Fingerprint(); bytes.Equal(fa, fd) {
		t.Error("MSL options did not change the fingerprint")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metal.toml")
	if err := os.WriteFile(path, []byte(mslTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := profile.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Target != "msl" {
		t.Errorf("target = %q", p.Target)
	}
	if _, err := profile.Load(filepath.Join(dir, "metal.json")); err == nil {
		t.Error("unknown extension accepted")
	}
}
