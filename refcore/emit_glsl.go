package refcore

import (
	"fmt"
	"strings"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

var precisionNames = map[uint8]string{precisionLow: "lowp", precisionMedium: "mediump", precisionHigh: "highp"}

func (e *emitter) glsl() (string, error) {
	o := e.comp.glsl
	model := e.ep.model
	legacy := (o.es && o.version < 300) || (!o.es && o.version < 130)

	if model == 5 && o.es && o.version < 310 {
		return "", fmt.Errorf("At least ESSL 3.10 required for compute shaders.")
	}
	if len(e.res[catStorageBuffers]) > 0 && ((o.es && o.version < 310) || (!o.es && o.version < 430)) {
		return "", fmt.Errorf("At least ESSL 3.10 or GLSL 4.30 required for shader storage buffers.")
	}

	if o.es {
		e.line("#version %d es", o.version)
	} else {
		e.line("#version %d", o.version)
	}
	if model == 5 && !o.es && o.version < 430 {
		e.line("#extension GL_ARB_compute_shader : require")
	}
	if o.enable420Pack && !o.es && o.version < 420 && !legacy {
		e.line("#extension GL_ARB_shading_language_420pack : require")
	}
	for _, h := range e.comp.headers {
		e.line("%s", h)
	}

	if model == 5 {
		wg := e.m.workGroupSize(e.ep)
		ids := e.m.workGroupSizeConstants()
		axes := []string{"x", "y", "z"}
		parts := make([]string, 3)
		for i, ax := range axes {
			if ids[i].id != 0 {
				parts[i] = fmt.Sprintf("local_size_%s_id = %d", ax, ids[i].constantID)
			} else {
				parts[i] = fmt.Sprintf("local_size_%s = %d", ax, wg[i])
			}
		}
		e.line("layout(%s) in;", strings.Join(parts, ", "))
	}
	e.blank()

	if o.es && model == 4 {
		if p, ok := precisionNames[o.floatPrecision]; ok {
			e.line("precision %s float;", p)
		}
		if p, ok := precisionNames[o.intPrecision]; ok {
			e.line("precision %s int;", p)
		}
		e.blank()
	}

	for _, id := range e.userStructs(e.blockRoots()) {
		e.glslStruct(id, "struct "+e.name(id), ";")
	}

	bindings := o.vulkanSemantics || o.enable420Pack || (!o.es && o.version >= 420) || (o.es && o.version >= 310)
	layout := func(std string, v resource) string {
		var q []string
		if std != "" {
			q = append(q, std)
		}
		set, binding := e.binding(v.id)
		if o.vulkanSemantics {
			q = append(q, fmt.Sprintf("set = %d", set))
		}
		if bindings {
			q = append(q, fmt.Sprintf("binding = %d", binding))
		}
		if len(q) == 0 {
			return ""
		}
		return "layout(" + strings.Join(q, ", ") + ") "
	}

	for _, r := range e.res[catUniformBuffers] {
		v, _ := e.m.variable(r.id)
		st := e.structOf(v)
		switch {
		case e.comp.flattened[r.id]:
			size, err := e.m.declaredStructSize(st.id)
			if err != nil {
				return "", err
			}
			e.line("uniform vec4 %s[%d];", e.name(r.id), (size+15)/16)
			e.blank()
		case legacy || o.emitUniformBufferAsPlain:
			e.glslStruct(st.id, "struct "+e.name(st.id), ";")
			e.line("uniform %s %s;", e.name(st.id), e.name(r.id))
			e.blank()
		default:
			e.glslStruct(st.id, layout("std140", r)+"uniform "+e.name(st.id), " "+e.name(r.id)+";")
		}
	}

	for _, r := range e.res[catStorageBuffers] {
		v, _ := e.m.variable(r.id)
		st := e.structOf(v)
		e.glslStruct(st.id, layout("std430", r)+"buffer "+e.name(st.id), " "+e.name(r.id)+";")
	}

	for _, r := range e.res[catPushConstantBuffers] {
		v, _ := e.m.variable(r.id)
		st := e.structOf(v)
		switch {
		case o.vulkanSemantics:
			e.glslStruct(st.id, "layout(push_constant, std430) uniform "+e.name(st.id), " "+e.name(r.id)+";")
		case o.emitPushConstantAsUniformBuffer:
			e.glslStruct(st.id, "layout(std140) uniform "+e.name(st.id), " "+e.name(r.id)+";")
		default:
			e.glslStruct(st.id, "struct "+e.name(st.id), ";")
			e.line("uniform %s %s;", e.name(st.id), e.name(r.id))
			e.blank()
		}
	}

	combinedFrom := make(map[uint32]bool)
	for _, c := range e.comp.combined {
		combinedFrom[c.image] = true
		combinedFrom[c.sampler] = true
		img := e.m.types[e.m.baseOf(e.varType(c.image))]
		e.line("uniform %s %s;", e.imageName(langGLSL, img, true), e.name(c.combined))
	}

	for _, cat := range []int{catSampledImages, catStorageImages, catSubpassInputs, catSeparateImages, catSeparateSamplers} {
		for _, r := range e.res[cat] {
			if combinedFrom[r.id] && !o.vulkanSemantics {
				continue
			}
			if (cat == catSeparateImages || cat == catSeparateSamplers) && !o.vulkanSemantics {
				continue
			}
			e.line("%suniform %s %s%s;", layout("", r), e.typeName(langGLSL, r.typeID), e.name(r.id), e.arraySuffix(r.typeID))
		}
	}
	if len(e.comp.combined) > 0 || len(e.res[catSampledImages])+len(e.res[catStorageImages]) > 0 {
		e.blank()
	}

	for _, r := range e.res[catStageInputs] {
		e.usedLocations[e.location(r.id)] = true
		typ := e.typeName(langGLSL, r.typeID)
		switch {
		case legacy && model == 0:
			e.line("attribute %s %s;", typ, e.name(r.id))
		case legacy:
			e.line("varying %s %s;", typ, e.name(r.id))
		default:
			e.line("layout(location = %d) in %s %s%s;", e.location(r.id), typ, e.name(r.id), e.arraySuffix(r.typeID))
		}
	}
	for _, r := range e.res[catStageOutputs] {
		typ := e.typeName(langGLSL, r.typeID)
		switch {
		case legacy && model == 4:
		case legacy:
			e.line("varying %s %s;", typ, e.name(r.id))
		default:
			e.line("layout(location = %d) out %s %s%s;", e.location(r.id), typ, e.name(r.id), e.arraySuffix(r.typeID))
		}
	}
	e.blank()

	e.ep.compiled = "main"
	e.line("void main()")
	e.line("{")
	if model == 0 && e.writesPosition() {
		if e.comp.glsl.vertexInvertY {
			e.line("    gl_Position.y = -gl_Position.y;")
		}
		if e.comp.glsl.vertexTransformClipSpace {
			e.line("    gl_Position.z = 2.0 * gl_Position.z - gl_Position.w;")
		}
	}
	e.line("}")
	e.blank()
	return e.b.String(), nil
}

func (e *emitter) glslStruct(id uint32, head, tail string) {
	t := e.m.types[id]
	e.line("%s", head)
	e.line("{")
	for i, mem := range t.members {
		prefix := ""
		if _, row := e.m.memberDecoration(id, uint32(i), 4); row {
			prefix = "layout(row_major) "
		}
		e.line("    %s%s %s%s;", prefix, e.typeName(langGLSL, mem), e.memberName(id, uint32(i)), e.arraySuffix(mem))
	}
	e.line("}%s", tail)
	e.blank()
}

func (e *emitter) varType(id uint32) uint32 {
	v, _ := e.m.variable(id)
	return v.typeID
}

func (e *emitter) writesPosition() bool {
	for _, v := range e.builtinOutputs() {
		if b, ok := e.dec(v.id, spirvbin.DecorationBuiltIn); ok && b == spirvbin.BuiltInPosition {
			return true
		}
	}
	return false
}
