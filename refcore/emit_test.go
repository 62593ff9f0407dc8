package refcore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/spirv-cross/internal/spvtest"
)

func emit(t *testing.T, comp *compilerState) string {
	t.Helper()
	e := newEmitter(comp)
	var (
		src string
		err error
	)
	switch comp.target {
	case targetGLSL:
		src, err = e.glsl()
	case targetHLSL:
		src, err = e.hlsl()
	case targetMSL:
		src, err = e.msl()
	}
	if err != nil {
		t.Fatalf("emit %s: %v", comp.target, err)
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

func TestEmitGLSL_Vertex(t *testing.T) {
	comp := newTestCompiler(t, targetGLSL, spvtest.NewVertex().Words)
	src := emit(t, comp)
	assertContains(t, src,
		"#version 450\n",
		"layout(std140, binding = 0) uniform uniform_buffer_object",
		"mat4 u_model_view_projection;",
		"layout(location = 0) in vec4 a_position;",
		"layout(location = 1) in vec3 a_normal;",
		"layout(location = 0) out vec3 v_normal;",
		"void main()",
	)
	if comp.m.entryPoints[0].compiled != "main" {
		t.Errorf("compiled name = %q", comp.m.entryPoints[0].compiled)
	}
}

func TestEmitGLSL_Options(t *testing.T) {
	v := spvtest.NewVertex()

	comp := newTestCompiler(t, targetGLSL, v.Words)
	comp.glsl.version, comp.glsl.es = 100, true
	assertContains(t, emit(t, comp), "#version 100 es", "attribute vec4 a_position;", "varying vec3 v_normal;")

	comp = newTestCompiler(t, targetGLSL, v.Words)
	comp.flattened[v.Block] = true
	assertContains(t, emit(t, comp), "[5];")

	comp = newTestCompiler(t, targetGLSL, v.Words)
	comp.glsl.vertexInvertY = true
	comp.headers = []string{"#define SPVC 1"}
	assertContains(t, emit(t, comp), "#define SPVC 1", "gl_Position.y = -gl_Position.y;")
}

func TestEmitGLSL_Errors(t *testing.T) {
	comp := newTestCompiler(t, targetGLSL, spvtest.NewCompute().Words)
	comp.glsl.version, comp.glsl.es = 100, true
	if _, err := newEmitter(comp).glsl(); err == nil || !strings.Contains(err.Error(), "ESSL 3.10") {
		t.Errorf("err = %v", err)
	}

	comp = newTestCompiler(t, targetGLSL, spvtest.NewCompute().Words)
	comp.glsl.version = 330
	if _, err := newEmitter(comp).glsl(); err == nil {
		t.Error("storage buffers on GLSL 330 should fail")
	}
}

func TestEmitGLSL_Compute(t *testing.T) {
	comp := newTestCompiler(t, targetGLSL, spvtest.NewCompute().Words)
	assertContains(t, emit(t, comp),
		"layout(local_size_x_id = 0, local_size_y_id = 1, local_size_z = 1) in;",
		"layout(std430, binding = 0) buffer",
	)
}

func TestEmitGLSL_CombinedSamplers(t *testing.T) {
	comp := newTestCompiler(t, targetGLSL, spvtest.NewFragment().Words)
	comp.combined = comp.m.buildCombinedSamplers(nil)
	src := emit(t, comp)
	assertContains(t, src, "uniform sampler2D SPIRV_Cross_Combinedu_imageu_sampler;", "sampler2D u_texture;")
	for _, decl := range []string{" sampler u_sampler;", " texture2D u_image;"} {
		if strings.Contains(src, decl) {
			t.Errorf("separate declaration %q leaked into non-vulkan output:\n%s", decl, src)
		}
	}

	comp.glsl.vulkanSemantics = true
	assertContains(t, emit(t, comp), "uniform sampler u_sampler;", "uniform texture2D u_image;")
}

func TestEmitHLSL(t *testing.T) {
	comp := newTestCompiler(t, targetHLSL, spvtest.NewVertex().Words)
	comp.hlsl.shaderModel = 50
	assertContains(t, emit(t, comp),
		"cbuffer uniform_buffer_object : register(b0)",
		"packoffset(c4)",
		"struct SPIRV_Cross_Input",
		"float4 a_position : TEXCOORD0;",
		"SV_Position",
		"SPIRV_Cross_Output main(SPIRV_Cross_Input stage_input)",
	)

	comp = newTestCompiler(t, targetHLSL, spvtest.NewVertex().Words)
	assertContains(t, emit(t, comp), "uniform float4 ", "[5] : register(c0);", ": POSITION;")

	c := spvtest.NewCompute()
	comp = newTestCompiler(t, targetHLSL, c.Words)
	if _, err := newEmitter(comp).hlsl(); err == nil {
		t.Error("compute on shader model 3.0 should fail")
	}
	comp.hlsl.shaderModel = 50
	assertContains(t, emit(t, comp), "[numthreads(8, 4, 1)]", fmt.Sprintf("RWByteAddressBuffer _%d : register(u0);", c.Buffer))
}

func TestEmitMSL(t *testing.T) {
	comp := newTestCompiler(t, targetMSL, spvtest.NewVertex().Words)
	comp.resourceBindings = []mslResourceBinding{{stage: spvtest.ModelVertex, buffer: 5}}
	e := newEmitter(comp)
	src, err := e.msl()
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, src,
		"#include <metal_stdlib>",
		"struct uniform_buffer_object",
		"struct main0_in",
		"float4 a_position [[attribute(0)]];",
		"vertex main0_out main0(main0_in in [[stage_in]]",
		"[[buffer(5)]]",
		"float gl_PointSize [[point_size]];",
	)
	if strings.Count(src, "struct uniform_buffer_object\n") != 1 {
		t.Errorf("block struct declared more than once:\n%s", src)
	}
	if !e.usedBindings[[3]uint32{0, 0, 0}] {
		t.Error("override not marked used")
	}
	if !e.usedLocations[0] || !e.usedLocations[1] {
		t.Errorf("used locations = %v", e.usedLocations)
	}
	if comp.m.entryPoints[0].compiled != "main0" {
		t.Errorf("compiled name = %q", comp.m.entryPoints[0].compiled)
	}
	if comp.rasterDisabled {
		t.Error("rasterization should be enabled with outputs")
	}
}

func TestEmitMSL_FreeIndexesSkipOverrides(t *testing.T) {
	comp := newTestCompiler(t, targetMSL, spvtest.NewFragment().Words)
	comp.resourceBindings = []mslResourceBinding{{stage: spvtest.ModelFragment, binding: 1, texture: 0, sampler: 0}}
	src := emit(t, comp)
	assertContains(t, src, "u_texture [[texture(0)]]", "u_textureSmplr [[sampler(0)]]", "u_image [[texture(1)]]", "u_sampler [[sampler(1)]]")
}

func TestEmitMSL_Errors(t *testing.T) {
	comp := newTestCompiler(t, targetMSL, spvtest.NewVertex().Words)
	comp.msl.argumentBuffers = true
	if _, err := newEmitter(comp).msl(); err == nil {
		t.Error("argument buffers on MSL 1.2 should fail")
	}
}

func TestMSLEntryName(t *testing.T) {
	tests := map[string]string{"main": "main0", "vertex": "vertex0", "shade": "shade"}
	for in, want := range tests {
		if got := mslEntryName(in); got != want {
			t.Errorf("mslEntryName(%q) = %q, want %q", in, got, want)
		}
	}
}
