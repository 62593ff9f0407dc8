package refcore

import (
	"fmt"
	"strings"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

type lang uint8

const (
	langGLSL lang = iota
	langHLSL
	langMSL
)

// emitter writes the interface of the first entry point as target source:
// resource declarations, stage IO and an entry function with an empty body.
type emitter struct {
	comp          *compilerState
	m             *module
	ep            *entryPoint
	res           [numCategories][]resource
	usedLocations map[uint32]bool
	usedBindings  map[[3]uint32]bool
	b             strings.Builder
}

func newEmitter(comp *compilerState) *emitter {
	e := &emitter{
		comp:          comp,
		m:             comp.m,
		usedLocations: make(map[uint32]bool),
		usedBindings:  make(map[[3]uint32]bool),
	}
	if len(comp.m.entryPoints) > 0 {
		e.ep = comp.m.entryPoints[0]
	}
	e.res = comp.m.shaderResources()
	return e
}

func (e *emitter) line(format string, args ...any) {
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

func (e *emitter) blank() {
	e.b.WriteByte('\n')
}

func (e *emitter) dec(id, d uint32) (uint32, bool) {
	return e.m.decoration(id, d)
}

// name returns the declared name of id, falling back to "_<id>".
func (e *emitter) name(id uint32) string {
	return e.m.nameOf(id)
}

func (e *emitter) memberName(structID, index uint32) string {
	if n := e.m.memberNames[structID][index]; n != "" {
		return n
	}
	return fmt.Sprintf("_m%d", index)
}

var imageDims = map[uint32]string{0: "1D", 1: "2D", 2: "3D", 3: "Cube", 5: "Buffer"}

func (e *emitter) typeName(l lang, id uint32) string {
	t := e.m.types[e.m.pointee(id)]
	for t != nil && (t.op == spirvbin.OpTypeArray || t.op == spirvbin.OpTypeRuntimeArray) {
		t = e.m.types[t.elem]
	}
	if t == nil {
		return "void"
	}

	switch t.op {
	case spirvbin.OpTypeVoid:
		return "void"
	case spirvbin.OpTypeBool, spirvbin.OpTypeInt, spirvbin.OpTypeFloat:
		return e.scalarName(l, t)
	case spirvbin.OpTypeVector:
		comp := e.m.types[t.elem]
		if l == langGLSL {
			prefix := map[uint32]string{baseBoolean: "b", baseInt: "i", baseUInt: "u", baseDouble: "d"}[e.m.scalarBase(comp)]
			return fmt.Sprintf("%svec%d", prefix, t.count)
		}
		return fmt.Sprintf("%s%d", e.scalarName(l, comp), t.count)
	case spirvbin.OpTypeMatrix:
		col := e.m.types[t.elem]
		rows := col.count
		if l == langGLSL {
			prefix := ""
			if e.m.scalarBase(col) == baseDouble {
				prefix = "d"
			}
			if rows == t.count {
				return fmt.Sprintf("%smat%d", prefix, t.count)
			}
			return fmt.Sprintf("%smat%dx%d", prefix, t.count, rows)
		}
		return fmt.Sprintf("%s%dx%d", e.scalarName(l, e.m.types[col.elem]), t.count, rows)
	case spirvbin.OpTypeStruct:
		return e.name(t.id)
	case spirvbin.OpTypeSampler:
		switch l {
		case langHLSL:
			return "SamplerState"
		default:
			return "sampler"
		}
	case spirvbin.OpTypeImage:
		return e.imageName(l, t, false)
	case spirvbin.OpTypeSampledImage:
		return e.imageName(l, e.m.types[t.elem], true)
	}
	return "void"
}

func (e *emitter) scalarName(l lang, t *typeInfo) string {
	switch e.m.scalarBase(t) {
	case baseBoolean:
		return "bool"
	case baseSByte, baseShort, baseInt:
		return "int"
	case baseUByte, baseUShort, baseUInt:
		return "uint"
	case baseInt64:
		if l == langGLSL {
			return "int64_t"
		}
		return "long"
	case baseUInt64:
		if l == langGLSL {
			return "uint64_t"
		}
		return "ulong"
	case baseHalf:
		if l == langGLSL {
			return "float16_t"
		}
		return "half"
	case baseDouble:
		return "double"
	default:
		return "float"
	}
}

func (e *emitter) imageName(l lang, img *typeInfo, combined bool) string {
	if img == nil {
		return "void"
	}
	dim := imageDims[img.dim]
	switch l {
	case langGLSL:
		switch {
		case img.dim == spirvbin.DimSubpassData:
			return "subpassInput"
		case combined:
			return "sampler" + dim
		case img.sampled == 2:
			return "image" + dim
		default:
			return "texture" + dim
		}
	case langHLSL:
		scalar := e.scalarName(l, e.m.types[img.elem])
		if img.sampled == 2 {
			return fmt.Sprintf("RWTexture%s<%s4>", dim, scalar)
		}
		return fmt.Sprintf("Texture%s<%s4>", dim, scalar)
	default:
		scalar := e.scalarName(l, e.m.types[img.elem])
		access := ""
		if img.sampled == 2 {
			access = ", access::read_write"
		}
		return fmt.Sprintf("texture%s<%s%s>", strings.ToLower(dim), scalar, access)
	}
}

// arraySuffix renders array dimensions outermost first.
func (e *emitter) arraySuffix(id uint32) string {
	var s strings.Builder
	t := e.m.types[e.m.pointee(id)]
	for t != nil && (t.op == spirvbin.OpTypeArray || t.op == spirvbin.OpTypeRuntimeArray) {
		if t.runtime {
			s.WriteString("[]")
		} else {
			n, _ := e.m.constValue(t.count)
			fmt.Fprintf(&s, "[%d]", n)
		}
		t = e.m.types[t.elem]
	}
	return s.String()
}

func (e *emitter) structOf(v variable) *typeInfo {
	t := e.m.types[e.m.baseOf(v.typeID)]
	if t == nil || t.op != spirvbin.OpTypeStruct {
		return nil
	}
	return t
}

// userStructs lists struct types reachable from block members that need
// their own declaration, innermost first.
func (e *emitter) userStructs(roots []uint32) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	var visit func(id uint32)
	visit = func(id uint32) {
		t := e.m.types[id]
		if t == nil || t.op != spirvbin.OpTypeStruct || seen[id] {
			return
		}
		seen[id] = true
		for _, mem := range t.members {
			visit(e.m.baseOf(mem))
		}
		out = append(out, id)
	}
	for _, r := range roots {
		t := e.m.types[r]
		if t == nil {
			continue
		}
		for _, mem := range t.members {
			visit(e.m.baseOf(mem))
		}
	}
	return out
}

func (e *emitter) blockRoots() []uint32 {
	var roots []uint32
	for _, cat := range []int{catUniformBuffers, catStorageBuffers, catPushConstantBuffers} {
		for _, r := range e.res[cat] {
			roots = append(roots, r.baseTypeID)
		}
	}
	return roots
}

func (e *emitter) location(id uint32) uint32 {
	loc, _ := e.dec(id, spirvbin.DecorationLocation)
	return loc
}

func (e *emitter) binding(id uint32) (set, binding uint32) {
	set, _ = e.dec(id, spirvbin.DecorationDescriptor)
	binding, _ = e.dec(id, spirvbin.DecorationBinding)
	return set, binding
}

func (e *emitter) builtinOutputs() []variable {
	var out []variable
	for _, v := range e.m.variables {
		if v.storage == spirvbin.StorageOutput && e.m.isBuiltin(v) {
			out = append(out, v)
		}
	}
	return out
}

func (e *emitter) stageName() string {
	switch e.ep.model {
	case 0:
		return "vertex"
	case 1:
		return "tessellation control"
	case 2:
		return "tessellation evaluation"
	case 3:
		return "geometry"
	case 4:
		return "fragment"
	case 5:
		return "compute"
	}
	return "kernel"
}
