package refcore

import (
	"fmt"
	"sort"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

type resource struct {
	id         uint32
	typeID     uint32
	baseTypeID uint32
	name       string
}

// Resource category indexes, matching abi.ResourceCategories.
const (
	catUniformBuffers = iota
	catStorageBuffers
	catStageInputs
	catStageOutputs
	catSubpassInputs
	catStorageImages
	catSampledImages
	catAtomicCounters
	catPushConstantBuffers
	catSeparateImages
	catSeparateSamplers
	numCategories
)

func (m *module) blockName(v variable) string {
	if n := m.names[m.baseOf(v.typeID)]; n != "" {
		return n
	}
	return m.names[v.id]
}

func (m *module) shaderResources() [numCategories][]resource {
	var out [numCategories][]resource
	for _, v := range m.variables {
		if m.isBuiltin(v) {
			continue
		}
		base := m.baseOf(v.typeID)
		t := m.types[base]
		res := resource{id: v.id, typeID: v.typeID, baseTypeID: base, name: m.names[v.id]}

		cat := -1
		switch v.storage {
		case spirvbin.StorageInput:
			cat = catStageInputs
		case spirvbin.StorageOutput:
			cat = catStageOutputs
		case spirvbin.StorageUniform:
			if _, ok := m.decoration(base, spirvbin.DecorationBufferBlock); ok {
				cat = catStorageBuffers
			} else if _, ok := m.decoration(base, spirvbin.DecorationBlock); ok {
				cat = catUniformBuffers
			}
			res.name = m.blockName(v)
		case spirvbin.StorageStorageBuffer:
			cat = catStorageBuffers
			res.name = m.blockName(v)
		case spirvbin.StoragePushConstant:
			cat = catPushConstantBuffers
		case spirvbin.StorageAtomicCounter:
			cat = catAtomicCounters
		case spirvbin.StorageUniformConstant:
			switch {
			case t == nil:
			case t.op == spirvbin.OpTypeImage && t.dim == spirvbin.DimSubpassData:
				cat = catSubpassInputs
			case t.op == spirvbin.OpTypeImage && t.sampled == 2:
				cat = catStorageImages
			case t.op == spirvbin.OpTypeImage:
				cat = catSeparateImages
			case t.op == spirvbin.OpTypeSampledImage:
				cat = catSampledImages
			case t.op == spirvbin.OpTypeSampler:
				cat = catSeparateSamplers
			}
		}
		if cat >= 0 {
			out[cat] = append(out[cat], res)
		}
	}
	return out
}

// Base type numbering of the contract's ScType.type.
const (
	baseUnknown uint32 = iota
	baseVoid
	baseBoolean
	baseSByte
	baseUByte
	baseShort
	baseUShort
	baseInt
	baseUInt
	baseInt64
	baseUInt64
	baseAtomicCounter
	baseHalf
	baseFloat
	baseDouble
	baseStruct
	baseImage
	baseSampledImage
	baseSampler
)

type typeDesc struct {
	base    uint32
	members []uint32
	array   []uint32
}

func (m *module) describeType(id uint32) (typeDesc, error) {
	t, ok := m.types[id]
	if !ok {
		return typeDesc{}, fmt.Errorf("Bad cast: %%%d is not a type", id)
	}
	var d typeDesc
	for {
		switch t.op {
		case spirvbin.OpTypePointer:
			t = m.types[t.elem]
			continue
		case spirvbin.OpTypeArray:
			n, _ := m.constValue(t.count)
			d.array = append(d.array, n)
			t = m.types[t.elem]
			continue
		case spirvbin.OpTypeRuntimeArray:
			d.array = append(d.array, 0)
			t = m.types[t.elem]
			continue
		}
		break
	}
	// Array dimensions are reported innermost first.
	for i, j := 0, len(d.array)-1; i < j; i, j = i+1, j-1 {
		d.array[i], d.array[j] = d.array[j], d.array[i]
	}
	d.base = m.scalarBase(t)
	if t.op == spirvbin.OpTypeStruct {
		d.members = append([]uint32(nil), t.members...)
	}
	return d, nil
}

func (m *module) scalarBase(t *typeInfo) uint32 {
	for t != nil && (t.op == spirvbin.OpTypeVector || t.op == spirvbin.OpTypeMatrix) {
		t = m.types[t.elem]
	}
	if t == nil {
		return baseUnknown
	}
	switch t.op {
	case spirvbin.OpTypeVoid:
		return baseVoid
	case spirvbin.OpTypeBool:
		return baseBoolean
	case spirvbin.OpTypeInt:
		signed := map[uint32]uint32{8: baseSByte, 16: baseShort, 32: baseInt, 64: baseInt64}
		unsigned := map[uint32]uint32{8: baseUByte, 16: baseUShort, 32: baseUInt, 64: baseUInt64}
		if t.signed {
			return signed[t.width]
		}
		return unsigned[t.width]
	case spirvbin.OpTypeFloat:
		switch t.width {
		case 16:
			return baseHalf
		case 32:
			return baseFloat
		case 64:
			return baseDouble
		}
	case spirvbin.OpTypeStruct:
		return baseStruct
	case spirvbin.OpTypeImage:
		return baseImage
	case spirvbin.OpTypeSampledImage:
		return baseSampledImage
	case spirvbin.OpTypeSampler:
		return baseSampler
	}
	return baseUnknown
}

func (m *module) structType(id uint32) (*typeInfo, error) {
	t, ok := m.types[m.pointee(id)]
	if !ok || t.op != spirvbin.OpTypeStruct {
		return nil, fmt.Errorf("Bad cast: %%%d is not a struct type", id)
	}
	return t, nil
}

func (m *module) declaredStructSize(id uint32) (uint32, error) {
	t, err := m.structType(id)
	if err != nil {
		return 0, err
	}
	if len(t.members) == 0 {
		return 0, fmt.Errorf("Declared struct in block cannot be empty.")
	}
	last := uint32(len(t.members) - 1)
	off, ok := m.memberDecoration(t.id, last, spirvbin.DecorationOffset)
	if !ok {
		return 0, fmt.Errorf("Struct member %d of %%%d has no Offset decoration", last, t.id)
	}
	size, err := m.declaredMemberSize(t.id, last)
	if err != nil {
		return 0, err
	}
	return off + size, nil
}

func (m *module) declaredMemberSize(structID, index uint32) (uint32, error) {
	t, err := m.structType(structID)
	if err != nil {
		return 0, err
	}
	if int(index) >= len(t.members) {
		return 0, fmt.Errorf("Member index %d out of range for struct %%%d", index, t.id)
	}
	mem := m.types[t.members[index]]

	if mem.op == spirvbin.OpTypeArray || mem.op == spirvbin.OpTypeRuntimeArray {
		stride, ok := m.decoration(mem.id, spirvbin.DecorationArrayStride)
		if !ok {
			return 0, fmt.Errorf("Array type %%%d has no ArrayStride decoration", mem.id)
		}
		if mem.runtime {
			return 0, nil
		}
		n, _ := m.constValue(mem.count)
		return stride * n, nil
	}

	switch mem.op {
	case spirvbin.OpTypeStruct:
		return m.declaredStructSize(mem.id)
	case spirvbin.OpTypeMatrix:
		stride, ok := m.memberDecoration(t.id, index, spirvbin.DecorationMatrixStride)
		if !ok {
			return 0, fmt.Errorf("Matrix member %d of %%%d has no MatrixStride decoration", index, t.id)
		}
		// Row-major matrices stride over rows instead of columns.
		if _, row := m.memberDecoration(t.id, index, 4); row {
			col := m.types[mem.elem]
			return stride * col.count, nil
		}
		return stride * mem.count, nil
	case spirvbin.OpTypeVector:
		return m.scalarWidth(m.types[mem.elem]) * mem.count, nil
	default:
		return m.scalarWidth(mem), nil
	}
}

func (m *module) scalarWidth(t *typeInfo) uint32 {
	if t == nil {
		return 0
	}
	switch t.op {
	case spirvbin.OpTypeInt, spirvbin.OpTypeFloat:
		return t.width / 8
	case spirvbin.OpTypeBool:
		return 4
	}
	return 0
}

type bufferRange struct {
	index  uint32
	offset uint32
	size   uint32
}

func (m *module) activeBufferRanges(id uint32) ([]bufferRange, error) {
	v, ok := m.variable(id)
	if !ok {
		return nil, fmt.Errorf("Bad cast: %%%d is not a variable", id)
	}
	t, err := m.structType(v.typeID)
	if err != nil {
		return nil, err
	}

	used := m.accesses[id]
	if m.wholeLoads[id] {
		used = make(map[uint32]bool, len(t.members))
		for i := range t.members {
			used[uint32(i)] = true
		}
	}

	var out []bufferRange
	for _, idx := range sortedKeys(used) {
		if int(idx) >= len(t.members) {
			continue
		}
		off, _ := m.memberDecoration(t.id, idx, spirvbin.DecorationOffset)
		size, err := m.declaredMemberSize(t.id, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, bufferRange{index: idx, offset: off, size: size})
	}
	return out, nil
}

type specConstant struct {
	id         uint32
	constantID uint32
}

func (m *module) specializationConstants() []specConstant {
	var out []specConstant
	for _, id := range m.constOrder {
		if !m.constants[id].spec {
			continue
		}
		if cid, ok := m.decoration(id, spirvbin.DecorationSpecID); ok {
			out = append(out, specConstant{id: id, constantID: cid})
		}
	}
	return out
}

func (m *module) workGroupSizeConstants() [3]specConstant {
	var out [3]specConstant
	for _, id := range m.constOrder {
		if b, ok := m.decoration(id, spirvbin.DecorationBuiltIn); !ok || b != spirvbin.BuiltInWorkgroupSize {
			continue
		}
		c := m.constants[id]
		for i := 0; i < 3 && i < len(c.parts); i++ {
			part := c.parts[i]
			if cid, ok := m.decoration(part, spirvbin.DecorationSpecID); ok {
				out[i] = specConstant{id: part, constantID: cid}
			}
		}
		break
	}
	return out
}

// workGroupSize resolves the effective local size, preferring the
// WorkgroupSize builtin constant over the LocalSize execution mode.
func (m *module) workGroupSize(ep *entryPoint) [3]uint32 {
	size := ep.localSize
	for _, id := range m.constOrder {
		if b, ok := m.decoration(id, spirvbin.DecorationBuiltIn); ok && b == spirvbin.BuiltInWorkgroupSize {
			for i, part := range m.constants[id].parts {
				if i < 3 {
					if v, ok := m.constValue(part); ok {
						size[i] = v
					}
				}
			}
		}
	}
	return size
}

func (m *module) setScalarConstant(id, high, low uint32) error {
	c, ok := m.constants[id]
	if !ok || len(c.parts) > 0 {
		return fmt.Errorf("Bad cast: %%%d is not a scalar constant", id)
	}
	c.value = [2]uint32{low, high}
	return nil
}

type combinedSampler struct {
	combined uint32
	image    uint32
	sampler  uint32
}

// buildCombinedSamplers pairs every separate image with the samplers it is
// sampled through. Pairs get fresh ids past the module bound.
func (m *module) buildCombinedSamplers(existing []combinedSampler) []combinedSampler {
	seen := make(map[[2]uint32]bool, len(existing))
	for _, c := range existing {
		seen[[2]uint32{c.image, c.sampler}] = true
	}
	out := existing
	for _, s := range m.samplings {
		if _, ok := m.variable(s.image); !ok {
			continue
		}
		if _, ok := m.variable(s.sampler); !ok {
			continue
		}
		key := [2]uint32{s.image, s.sampler}
		if seen[key] {
			continue
		}
		seen[key] = true
		id := m.bound
		m.bound++
		m.names[id] = "SPIRV_Cross_Combined" + m.nameOf(s.image) + m.nameOf(s.sampler)
		out = append(out, combinedSampler{combined: id, image: s.image, sampler: s.sampler})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].combined < out[j].combined })
	return out
}

// nameOf returns the debug name of id, or the "_<id>" fallback used in
// generated source.
func (m *module) nameOf(id uint32) string {
	if n := m.names[id]; n != "" {
		return n
	}
	return fmt.Sprintf("_%d", id)
}
