package spirv

import (
	"encoding/binary"

	"github.com/wippyai/spirv-cross/errors"
)

// Module is a SPIR-V module as 32-bit words. It is immutable once built and
// may be bound to any number of compilers.
type Module struct {
	words []uint32
}

// ModuleFromWords copies words into a Module.
func ModuleFromWords(words []uint32) Module {
	return Module{words: append([]uint32(nil), words...)}
}

// ModuleFromBytes decodes little-endian words, the on-disk .spv layout.
func ModuleFromBytes(data []byte) (Module, error) {
	if len(data)%4 != 0 {
		return Module{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Value(len(data)).
			Detail("module size %d is not a multiple of 4", len(data)).
			Build()
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return Module{words: words}, nil
}

// Words returns a copy of the module words.
func (m Module) Words() []uint32 {
	return append([]uint32(nil), m.words...)
}

// Len returns the number of words.
func (m Module) Len() int { return len(m.words) }

// WorkgroupSize is the local size of a compute entry point.
type WorkgroupSize struct {
	X, Y, Z uint32
}

// EntryPoint is a named shader stage function of the module.
type EntryPoint struct {
	Name           string
	ExecutionModel ExecutionModel
	WorkgroupSize  WorkgroupSize
}

// Resource is a shader-visible binding found by reflection.
type Resource struct {
	ID         uint32
	TypeID     uint32
	BaseTypeID uint32
	Name       string
}

// ShaderResources groups the module's resources by category.
type ShaderResources struct {
	UniformBuffers      []Resource
	StorageBuffers      []Resource
	StageInputs         []Resource
	StageOutputs        []Resource
	SubpassInputs       []Resource
	StorageImages       []Resource
	SampledImages       []Resource
	AtomicCounters      []Resource
	PushConstantBuffers []Resource
	SeparateImages      []Resource
	SeparateSamplers    []Resource
}

// categories returns pointers to the category slices in contract order.
func (r *ShaderResources) categories() []*[]Resource {
	return []*[]Resource{
		&r.UniformBuffers, &r.StorageBuffers, &r.StageInputs, &r.StageOutputs,
		&r.SubpassInputs, &r.StorageImages, &r.SampledImages, &r.AtomicCounters,
		&r.PushConstantBuffers, &r.SeparateImages, &r.SeparateSamplers,
	}
}

// SpecializationConstant ties a constant id to its SpecId.
type SpecializationConstant struct {
	ID         uint32
	ConstantID uint32
}

// WorkGroupSizeSpecializationConstants holds the constants driving each
// local size dimension. A zero ID means the dimension is not specializable.
type WorkGroupSizeSpecializationConstants struct {
	X, Y, Z SpecializationConstant
}

// BufferRange is the part of a buffer block a shader accesses.
type BufferRange struct {
	Index  uint32
	Offset uint64
	Range  uint64
}

// CombinedImageSampler is a sampler2D synthesized from a separate image and
// sampler.
type CombinedImageSampler struct {
	CombinedID uint32
	ImageID    uint32
	SamplerID  uint32
}

// Type describes a type id. Array dimensions are innermost first; a zero
// dimension is a runtime array.
type Type struct {
	BaseType    BaseType
	MemberTypes []uint32
	Array       []uint32
}
