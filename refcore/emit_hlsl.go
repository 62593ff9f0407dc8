package refcore

import (
	"fmt"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

const decorationNonWritable = 24

var hlslStageMain = map[uint32]string{0: "vert_main", 1: "tesc_main", 2: "tese_main", 3: "geom_main", 4: "frag_main", 5: "comp_main"}

func (e *emitter) hlsl() (string, error) {
	o := e.comp.hlsl
	model := e.ep.model

	if model == 5 && o.shaderModel < 50 {
		return "", fmt.Errorf("Compute shaders are not supported in HLSL shader model %d.%d.", o.shaderModel/10, o.shaderModel%10)
	}
	if len(e.res[catStorageBuffers]) > 0 && o.shaderModel < 50 {
		return "", fmt.Errorf("Storage buffers require HLSL shader model 5.0 or later.")
	}
	if len(e.res[catStorageImages]) > 0 && o.shaderModel < 50 {
		return "", fmt.Errorf("Storage images require HLSL shader model 5.0 or later.")
	}

	register := func(kind string, id uint32) string {
		set, binding := e.binding(id)
		if set != 0 && o.shaderModel >= 51 {
			return fmt.Sprintf(" : register(%s%d, space%d)", kind, binding, set)
		}
		return fmt.Sprintf(" : register(%s%d)", kind, binding)
	}

	for _, id := range e.userStructs(e.blockRoots()) {
		e.hlslStruct(id)
	}

	cbuffers := append(append([]resource(nil), e.res[catUniformBuffers]...), e.res[catPushConstantBuffers]...)
	for _, r := range cbuffers {
		v, _ := e.m.variable(r.id)
		st := e.structOf(v)
		if o.shaderModel < 40 {
			size, err := e.m.declaredStructSize(st.id)
			if err != nil {
				return "", err
			}
			_, binding := e.binding(r.id)
			e.line("uniform float4 %s[%d] : register(c%d);", e.name(r.id), (size+15)/16, binding)
			e.blank()
			continue
		}
		e.line("cbuffer %s%s", e.name(st.id), register("b", r.id))
		e.line("{")
		for i, mem := range st.members {
			off, _ := e.m.memberDecoration(st.id, uint32(i), spirvbin.DecorationOffset)
			prefix := ""
			if e.m.types[mem] != nil && e.m.types[mem].op == spirvbin.OpTypeMatrix {
				prefix = "row_major "
				if _, row := e.m.memberDecoration(st.id, uint32(i), 4); row {
					prefix = "column_major "
				}
			}
			e.line("    %s%s %s_%s%s : packoffset(c%d%s);", prefix, e.typeName(langHLSL, mem),
				e.name(r.id), e.memberName(st.id, uint32(i)), e.arraySuffix(mem), off/16, packComponent(off))
		}
		e.line("};")
		e.blank()
	}

	for _, r := range e.res[catStorageBuffers] {
		if _, ro := e.dec(r.id, decorationNonWritable); ro && !o.forceStorageBufferAsUAV {
			e.line("ByteAddressBuffer %s%s;", e.name(r.id), register("t", r.id))
		} else {
			e.line("RWByteAddressBuffer %s%s;", e.name(r.id), register("u", r.id))
		}
	}

	for _, r := range e.res[catStorageImages] {
		img := e.m.types[e.m.baseOf(r.typeID)]
		_, ro := e.dec(r.id, decorationNonWritable)
		if ro && o.nonwritableUAVTextureAsSRV {
			e.line("Texture%s<%s4> %s%s;", imageDims[img.dim], e.scalarName(langHLSL, e.m.types[img.elem]), e.name(r.id), register("t", r.id))
		} else {
			e.line("%s %s%s;", e.imageName(langHLSL, img, false), e.name(r.id), register("u", r.id))
		}
	}
	for _, r := range e.res[catSampledImages] {
		e.line("%s %s%s;", e.typeName(langHLSL, r.typeID), e.name(r.id), register("t", r.id))
		e.line("SamplerState _%s_sampler%s;", e.name(r.id), register("s", r.id))
	}
	for _, r := range e.res[catSeparateImages] {
		e.line("%s %s%s;", e.typeName(langHLSL, r.typeID), e.name(r.id), register("t", r.id))
	}
	for _, r := range e.res[catSeparateSamplers] {
		e.line("SamplerState %s%s;", e.name(r.id), register("s", r.id))
	}
	if len(e.res[catStorageBuffers])+len(e.res[catStorageImages])+len(e.res[catSampledImages])+
		len(e.res[catSeparateImages])+len(e.res[catSeparateSamplers]) > 0 {
		e.blank()
	}

	inputs, outputs := e.res[catStageInputs], e.res[catStageOutputs]
	builtins := e.builtinOutputs()
	for _, list := range [][]resource{inputs, outputs} {
		for _, r := range list {
			e.line("static %s %s%s;", e.typeName(langHLSL, r.typeID), e.name(r.id), e.arraySuffix(r.typeID))
		}
	}
	for _, v := range builtins {
		e.line("static %s %s;", e.typeName(langHLSL, v.typeID), e.name(v.id))
	}
	if len(inputs)+len(outputs)+len(builtins) > 0 {
		e.blank()
	}

	if len(inputs) > 0 {
		e.line("struct SPIRV_Cross_Input")
		e.line("{")
		for _, r := range inputs {
			loc := e.location(r.id)
			e.usedLocations[loc] = true
			e.line("    %s %s : TEXCOORD%d;", e.typeName(langHLSL, r.typeID), e.name(r.id), loc)
		}
		e.line("};")
		e.blank()
	}

	hasOutput := len(outputs) > 0 || len(builtins) > 0
	if hasOutput {
		e.line("struct SPIRV_Cross_Output")
		e.line("{")
		for _, r := range outputs {
			e.line("    %s %s : %s;", e.typeName(langHLSL, r.typeID), e.name(r.id), e.hlslOutputSemantic(model, e.location(r.id)))
		}
		for _, v := range builtins {
			if b, _ := e.dec(v.id, spirvbin.DecorationBuiltIn); b == spirvbin.BuiltInPosition {
				sem := "SV_Position"
				if o.shaderModel < 40 {
					sem = "POSITION"
				}
				e.line("    %s %s : %s;", e.typeName(langHLSL, v.typeID), e.name(v.id), sem)
			}
		}
		if model == 0 && o.pointSizeCompat {
			e.line("    float gl_PointSize : PSIZE;")
		}
		e.line("};")
		e.blank()
	}

	inner := hlslStageMain[model]
	e.line("void %s()", inner)
	e.line("{")
	e.line("}")
	e.blank()

	if model == 5 {
		wg := e.m.workGroupSize(e.ep)
		e.line("[numthreads(%d, %d, %d)]", wg[0], wg[1], wg[2])
	}
	ret, params := "void", ""
	if hasOutput {
		ret = "SPIRV_Cross_Output"
	}
	if len(inputs) > 0 {
		params = "SPIRV_Cross_Input stage_input"
	}
	e.ep.compiled = "main"
	e.line("%s main(%s)", ret, params)
	e.line("{")
	for _, r := range inputs {
		e.line("    %s = stage_input.%s;", e.name(r.id), e.name(r.id))
	}
	e.line("    %s();", inner)
	if hasOutput {
		if model == 0 && e.writesPosition() {
			if o.vertexInvertY {
				e.line("    gl_Position.y = -gl_Position.y;")
			}
			if o.vertexTransformClipSpace {
				e.line("    gl_Position.z = (gl_Position.z + gl_Position.w) * 0.5;")
			}
		}
		e.line("    SPIRV_Cross_Output stage_output;")
		for _, r := range outputs {
			e.line("    stage_output.%s = %s;", e.name(r.id), e.name(r.id))
		}
		for _, v := range builtins {
			e.line("    stage_output.%s = %s;", e.name(v.id), e.name(v.id))
		}
		if model == 0 && o.pointSizeCompat {
			e.line("    stage_output.gl_PointSize = 1.0;")
		}
		e.line("    return stage_output;")
	}
	e.line("}")
	return e.b.String(), nil
}

func (e *emitter) hlslOutputSemantic(model, loc uint32) string {
	if model != 4 {
		return fmt.Sprintf("TEXCOORD%d", loc)
	}
	if e.comp.hlsl.shaderModel < 40 {
		return fmt.Sprintf("COLOR%d", loc)
	}
	return fmt.Sprintf("SV_Target%d", loc)
}

func (e *emitter) hlslStruct(id uint32) {
	t := e.m.types[id]
	e.line("struct %s", e.name(id))
	e.line("{")
	for i, mem := range t.members {
		e.line("    %s %s%s;", e.typeName(langHLSL, mem), e.memberName(id, uint32(i)), e.arraySuffix(mem))
	}
	e.line("};")
	e.blank()
}

func packComponent(offset uint32) string {
	switch (offset % 16) / 4 {
	case 1:
		return ".y"
	case 2:
		return ".z"
	case 3:
		return ".w"
	}
	return ""
}
