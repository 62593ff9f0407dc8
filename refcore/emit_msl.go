package refcore

import (
	"fmt"
	"strings"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

var mslReserved = map[string]bool{
	"main": true, "kernel": true, "vertex": true, "fragment": true, "texture": true,
	"sampler": true, "device": true, "constant": true, "thread": true, "threadgroup": true,
	"metal": true, "half": true,
}

var mslQualifiers = map[uint32]string{0: "vertex", 4: "fragment", 5: "kernel"}

func mslEntryName(name string) string {
	if mslReserved[name] {
		return name + "0"
	}
	return name
}

func (e *emitter) msl() (string, error) {
	o := e.comp.msl
	model := e.ep.model

	qualifier, ok := mslQualifiers[model]
	if !ok {
		return "", fmt.Errorf("Unsupported execution model for MSL: %d", model)
	}
	if o.argumentBuffers && o.version < 20000 {
		return "", fmt.Errorf("Argument buffers can only be used with MSL 2.0 and up.")
	}
	if o.platform == platformIOS && len(e.res[catStorageImages]) > 0 && o.version < 20000 {
		return "", fmt.Errorf("Writable images on iOS require MSL 2.0 and up.")
	}

	entry := mslEntryName(e.ep.name)
	e.ep.compiled = entry

	builtins := e.builtinOutputs()
	outputs := e.res[catStageOutputs]
	inputs := e.res[catStageInputs]
	e.comp.rasterDisabled = o.disableRasterization ||
		(model == 0 && len(outputs) == 0 && len(builtins) == 0)
	hasOut := !e.comp.rasterDisabled && len(outputs)+len(builtins) > 0

	e.line("#include <metal_stdlib>")
	e.line("#include <simd/simd.h>")
	e.blank()
	e.line("using namespace metal;")
	e.blank()

	declared := make(map[uint32]bool)
	for _, id := range append(e.userStructs(e.blockRoots()), e.blockRoots()...) {
		if !declared[id] {
			declared[id] = true
			e.mslStruct(id)
		}
	}

	if model == 5 {
		wg := e.m.workGroupSize(e.ep)
		e.line("constant uint3 gl_WorkGroupSize [[maybe_unused]] = uint3(%du, %du, %du);", wg[0], wg[1], wg[2])
		e.blank()
	}

	if hasOut {
		e.line("struct %s_out", entry)
		e.line("{")
		for _, r := range outputs {
			attr := fmt.Sprintf("user(locn%d)", e.location(r.id))
			if model == 4 {
				attr = fmt.Sprintf("color(%d)", e.location(r.id))
			}
			e.line("    %s %s [[%s]];", e.typeName(langMSL, r.typeID), e.name(r.id), attr)
		}
		for _, v := range builtins {
			if b, _ := e.dec(v.id, spirvbin.DecorationBuiltIn); b == spirvbin.BuiltInPosition {
				e.line("    %s %s [[position]];", e.typeName(langMSL, v.typeID), e.name(v.id))
			}
		}
		if model == 0 && o.enablePointSizeBuiltin && e.writesPosition() {
			e.line("    float gl_PointSize [[point_size]];")
		}
		e.line("};")
		e.blank()
	}

	if len(inputs) > 0 {
		e.line("struct %s_in", entry)
		e.line("{")
		for _, r := range inputs {
			loc := e.location(r.id)
			attr := fmt.Sprintf("user(locn%d)", loc)
			if model == 0 {
				attr = fmt.Sprintf("attribute(%d)", loc)
				e.usedLocations[loc] = true
			}
			e.line("    %s %s [[%s]];", e.typeName(langMSL, r.typeID), e.name(r.id), attr)
		}
		e.line("};")
		e.blank()
	}

	params := e.mslParams(entry, len(inputs) > 0)

	ret := "void"
	if hasOut {
		ret = entry + "_out"
	}
	e.line("%s %s %s(%s)", qualifier, ret, entry, strings.Join(params, ", "))
	e.line("{")
	if hasOut {
		e.line("    %s_out out = {};", entry)
		if model == 0 && e.writesPosition() {
			if o.vertexInvertY {
				e.line("    out.gl_Position.y = -(out.gl_Position.y);")
			}
			if o.vertexTransformClipSpace {
				e.line("    out.gl_Position.z = (out.gl_Position.z + out.gl_Position.w) * 0.5;")
			}
		}
		e.line("    return out;")
	}
	e.line("}")
	e.blank()
	return e.b.String(), nil
}

// mslParams assigns buffer, texture and sampler indexes. Explicit resource
// bindings win; everything else takes the next free index of its kind.
func (e *emitter) mslParams(entry string, stageIn bool) []string {
	var params []string
	if stageIn {
		params = append(params, entry+"_in in [[stage_in]]")
	}

	overrides := make(map[[3]uint32]mslResourceBinding, len(e.comp.resourceBindings))
	taken := map[string]map[uint32]bool{"buffer": {}, "texture": {}, "sampler": {}}
	for _, b := range e.comp.resourceBindings {
		if b.stage != e.ep.model {
			continue
		}
		overrides[[3]uint32{b.stage, b.descSet, b.binding}] = b
		taken["buffer"][b.buffer] = true
		taken["texture"][b.texture] = true
		taken["sampler"][b.sampler] = true
	}
	next := map[string]uint32{}
	index := func(kind string, id uint32) uint32 {
		set, binding := e.binding(id)
		key := [3]uint32{e.ep.model, set, binding}
		if b, ok := overrides[key]; ok {
			e.usedBindings[key] = true
			switch kind {
			case "buffer":
				return b.buffer
			case "texture":
				return b.texture
			default:
				return b.sampler
			}
		}
		for taken[kind][next[kind]] {
			next[kind]++
		}
		n := next[kind]
		taken[kind][n] = true
		return n
	}

	for _, r := range e.res[catUniformBuffers] {
		v, _ := e.m.variable(r.id)
		params = append(params, fmt.Sprintf("constant %s& %s [[buffer(%d)]]", e.name(e.structOf(v).id), e.name(r.id), index("buffer", r.id)))
	}
	for _, r := range e.res[catStorageBuffers] {
		v, _ := e.m.variable(r.id)
		space := "device"
		if _, ro := e.dec(r.id, decorationNonWritable); ro {
			space = "const device"
		}
		params = append(params, fmt.Sprintf("%s %s& %s [[buffer(%d)]]", space, e.name(e.structOf(v).id), e.name(r.id), index("buffer", r.id)))
	}
	for _, r := range e.res[catPushConstantBuffers] {
		v, _ := e.m.variable(r.id)
		params = append(params, fmt.Sprintf("constant %s& %s [[buffer(%d)]]", e.name(e.structOf(v).id), e.name(r.id), index("buffer", r.id)))
	}
	for _, r := range e.res[catSampledImages] {
		img := e.m.types[e.m.types[e.m.baseOf(r.typeID)].elem]
		params = append(params, fmt.Sprintf("%s %s [[texture(%d)]]", e.imageName(langMSL, img, true), e.name(r.id), index("texture", r.id)))
		params = append(params, fmt.Sprintf("sampler %sSmplr [[sampler(%d)]]", e.name(r.id), index("sampler", r.id)))
	}
	for _, cat := range []int{catStorageImages, catSeparateImages} {
		for _, r := range e.res[cat] {
			params = append(params, fmt.Sprintf("%s %s [[texture(%d)]]", e.typeName(langMSL, r.typeID), e.name(r.id), index("texture", r.id)))
		}
	}
	for _, r := range e.res[catSeparateSamplers] {
		params = append(params, fmt.Sprintf("sampler %s [[sampler(%d)]]", e.name(r.id), index("sampler", r.id)))
	}
	if e.comp.msl.swizzleTextureSamples && len(e.res[catSampledImages])+len(e.res[catSeparateImages]) > 0 {
		params = append(params, fmt.Sprintf("constant uint* spvSwizzleConstants [[buffer(%d)]]", e.comp.msl.swizzleBufferIndex))
	}
	if e.comp.msl.captureOutputToBuffer && e.ep.model == 0 {
		params = append(params, fmt.Sprintf("device %s_out* spvOut [[buffer(%d)]]", entry, e.comp.msl.shaderOutputBufferIndex))
	}
	return params
}

func (e *emitter) mslStruct(id uint32) {
	t := e.m.types[id]
	if t == nil {
		return
	}
	e.line("struct %s", e.name(id))
	e.line("{")
	for i, mem := range t.members {
		suffix := e.arraySuffix(mem)
		if mt := e.m.types[mem]; mt != nil && mt.runtime {
			suffix = "[1]"
		}
		e.line("    %s %s%s;", e.typeName(langMSL, mem), e.memberName(id, uint32(i)), suffix)
	}
	e.line("};")
	e.blank()
}
