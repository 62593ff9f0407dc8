package abi

import (
	"fmt"
	"sync"
)

// FieldKind is the C type of a struct field.
type FieldKind uint8

const (
	FieldBool    FieldKind = iota // bool
	FieldU8                       // uint8_t
	FieldU32                      // uint32_t or a 32-bit enum
	FieldI32                      // int32_t
	FieldPointer                  // T*
	FieldSize                     // size_t
	FieldStruct                   // nested struct
)

// FieldSpec declares one field of a C struct.
type FieldSpec struct {
	Name   string
	Kind   FieldKind
	Struct *Layout
}

// Info holds size and alignment.
type Info struct {
	Size  uint32
	Align uint32
}

// Layout is a C struct laid out for one pointer width.
type Layout struct {
	Name    string
	Size    uint32
	Align   uint32
	fields  []FieldSpec
	offsets map[string]uint32
}

// AlignTo rounds offset up to align.
func AlignTo(offset, align uint32) uint32 {
	return (offset + align - 1) &^ (align - 1)
}

func kindInfo(k FieldKind, ptrSize uint32, sub *Layout) Info {
	switch k {
	case FieldBool, FieldU8:
		return Info{Size: 1, Align: 1}
	case FieldU32, FieldI32:
		return Info{Size: 4, Align: 4}
	case FieldPointer, FieldSize:
		return Info{Size: ptrSize, Align: ptrSize}
	case FieldStruct:
		return Info{Size: sub.Size, Align: sub.Align}
	default:
		return Info{Size: 0, Align: 1}
	}
}

// NewLayout computes field offsets with C alignment rules.
func NewLayout(name string, ptrSize uint32, fields ...FieldSpec) *Layout {
	l := &Layout{
		Name:    name,
		Align:   1,
		fields:  fields,
		offsets: make(map[string]uint32, len(fields)),
	}

	offset := uint32(0)
	for _, f := range fields {
		info := kindInfo(f.Kind, ptrSize, f.Struct)
		offset = AlignTo(offset, info.Align)
		l.offsets[f.Name] = offset
		offset += info.Size
		if info.Align > l.Align {
			l.Align = info.Align
		}
	}
	l.Size = AlignTo(offset, l.Align)
	return l
}

// Offset returns the byte offset of a field. Unknown fields are a
// programming error.
func (l *Layout) Offset(field string) uint32 {
	off, ok := l.offsets[field]
	if !ok {
		panic(fmt.Sprintf("abi: %s has no field %q", l.Name, field))
	}
	return off
}

// Field returns the declaration of a field.
func (l *Layout) Field(field string) FieldSpec {
	for _, f := range l.fields {
		if f.Name == field {
			return f
		}
	}
	panic(fmt.Sprintf("abi: %s has no field %q", l.Name, field))
}

// Fields returns the declarations in order.
func (l *Layout) Fields() []FieldSpec {
	return l.fields
}

// ResourceCategories names the ScResourceArray fields of ScShaderResources
// in declaration order.
var ResourceCategories = []string{
	"uniform_buffers",
	"storage_buffers",
	"stage_inputs",
	"stage_outputs",
	"subpass_inputs",
	"storage_images",
	"sampled_images",
	"atomic_counters",
	"push_constant_buffers",
	"separate_images",
	"separate_samplers",
}

// Layouts holds every struct of the contract for one pointer width.
type Layouts struct {
	PointerSize            uint32
	EntryPoint             *Layout
	Resource               *Layout
	ResourceArray          *Layout
	ShaderResources        *Layout
	Type                   *Layout
	SpecializationConstant *Layout
	BufferRange            *Layout
	CombinedImageSampler   *Layout
	GLSLOptions            *Layout
	HLSLOptions            *Layout
	MSLOptions             *Layout
	MSLVertexAttr          *Layout
	MSLResourceBinding     *Layout
}

var (
	layoutsMu    sync.Mutex
	layoutsCache = make(map[uint32]*Layouts)
)

// LayoutsFor returns the contract's layouts for a pointer width of 4 or 8.
func LayoutsFor(ptrSize uint32) *Layouts {
	layoutsMu.Lock()
	defer layoutsMu.Unlock()
	if l, ok := layoutsCache[ptrSize]; ok {
		return l
	}
	l := buildLayouts(ptrSize)
	layoutsCache[ptrSize] = l
	return l
}

func buildLayouts(p uint32) *Layouts {
	l := &Layouts{PointerSize: p}

	l.EntryPoint = NewLayout("ScEntryPoint", p,
		FieldSpec{Name: "name", Kind: FieldPointer},
		FieldSpec{Name: "execution_model", Kind: FieldU32},
		FieldSpec{Name: "workgroup_size_x", Kind: FieldU32},
		FieldSpec{Name: "workgroup_size_y", Kind: FieldU32},
		FieldSpec{Name: "workgroup_size_z", Kind: FieldU32},
	)

	l.Resource = NewLayout("ScResource", p,
		FieldSpec{Name: "id", Kind: FieldU32},
		FieldSpec{Name: "type_id", Kind: FieldU32},
		FieldSpec{Name: "base_type_id", Kind: FieldU32},
		FieldSpec{Name: "name", Kind: FieldPointer},
	)

	l.ResourceArray = NewLayout("ScResourceArray", p,
		FieldSpec{Name: "data", Kind: FieldPointer},
		FieldSpec{Name: "num", Kind: FieldSize},
	)

	categories := make([]FieldSpec, len(ResourceCategories))
	for i, name := range ResourceCategories {
		categories[i] = FieldSpec{Name: name, Kind: FieldStruct, Struct: l.ResourceArray}
	}
	l.ShaderResources = NewLayout("ScShaderResources", p, categories...)

	l.Type = NewLayout("ScType", p,
		FieldSpec{Name: "type", Kind: FieldU32},
		FieldSpec{Name: "member_types", Kind: FieldPointer},
		FieldSpec{Name: "member_types_size", Kind: FieldSize},
		FieldSpec{Name: "array", Kind: FieldPointer},
		FieldSpec{Name: "array_size", Kind: FieldSize},
	)

	l.SpecializationConstant = NewLayout("ScSpecializationConstant", p,
		FieldSpec{Name: "id", Kind: FieldU32},
		FieldSpec{Name: "constant_id", Kind: FieldU32},
	)

	l.BufferRange = NewLayout("ScBufferRange", p,
		FieldSpec{Name: "index", Kind: FieldU32},
		FieldSpec{Name: "offset", Kind: FieldSize},
		FieldSpec{Name: "range", Kind: FieldSize},
	)

	l.CombinedImageSampler = NewLayout("ScCombinedImageSampler", p,
		FieldSpec{Name: "combined_id", Kind: FieldU32},
		FieldSpec{Name: "image_id", Kind: FieldU32},
		FieldSpec{Name: "sampler_id", Kind: FieldU32},
	)

	l.GLSLOptions = NewLayout("ScGlslCompilerOptions", p,
		FieldSpec{Name: "vertex_invert_y", Kind: FieldBool},
		FieldSpec{Name: "vertex_transform_clip_space", Kind: FieldBool},
		FieldSpec{Name: "version", Kind: FieldU32},
		FieldSpec{Name: "es", Kind: FieldBool},
		FieldSpec{Name: "vertex_support_nonzero_base_instance", Kind: FieldBool},
		FieldSpec{Name: "fragment_default_float_precision", Kind: FieldU8},
		FieldSpec{Name: "fragment_default_int_precision", Kind: FieldU8},
		FieldSpec{Name: "force_temporary", Kind: FieldBool},
		FieldSpec{Name: "vulkan_semantics", Kind: FieldBool},
		FieldSpec{Name: "separate_shader_objects", Kind: FieldBool},
		FieldSpec{Name: "flatten_multidimensional_arrays", Kind: FieldBool},
		FieldSpec{Name: "enable_420_pack_extension", Kind: FieldBool},
		FieldSpec{Name: "emit_push_constant_as_uniform_buffer", Kind: FieldBool},
		FieldSpec{Name: "emit_uniform_buffer_as_plain_uniforms", Kind: FieldBool},
		FieldSpec{Name: "emit_line_directives", Kind: FieldBool},
		FieldSpec{Name: "enable_storage_image_qualifier_deduction", Kind: FieldBool},
		FieldSpec{Name: "force_zero_initialized_variables", Kind: FieldBool},
	)

	l.HLSLOptions = NewLayout("ScHlslCompilerOptions", p,
		FieldSpec{Name: "shader_model", Kind: FieldI32},
		FieldSpec{Name: "vertex_invert_y", Kind: FieldBool},
		FieldSpec{Name: "vertex_transform_clip_space", Kind: FieldBool},
		FieldSpec{Name: "point_size_compat", Kind: FieldBool},
		FieldSpec{Name: "point_coord_compat", Kind: FieldBool},
		FieldSpec{Name: "force_storage_buffer_as_uav", Kind: FieldBool},
		FieldSpec{Name: "nonwritable_uav_texture_as_srv", Kind: FieldBool},
	)

	l.MSLOptions = NewLayout("ScMslCompilerOptions", p,
		FieldSpec{Name: "vertex_invert_y", Kind: FieldBool},
		FieldSpec{Name: "vertex_transform_clip_space", Kind: FieldBool},
		FieldSpec{Name: "platform", Kind: FieldU8},
		FieldSpec{Name: "version", Kind: FieldU32},
		FieldSpec{Name: "enable_point_size_builtin", Kind: FieldBool},
		FieldSpec{Name: "disable_rasterization", Kind: FieldBool},
		FieldSpec{Name: "swizzle_buffer_index", Kind: FieldU32},
		FieldSpec{Name: "indirect_params_buffer_index", Kind: FieldU32},
		FieldSpec{Name: "shader_output_buffer_index", Kind: FieldU32},
		FieldSpec{Name: "buffer_size_buffer_index", Kind: FieldU32},
		FieldSpec{Name: "capture_output_to_buffer", Kind: FieldBool},
		FieldSpec{Name: "swizzle_texture_samples", Kind: FieldBool},
		FieldSpec{Name: "tess_domain_origin_lower_left", Kind: FieldBool},
		FieldSpec{Name: "argument_buffers", Kind: FieldBool},
		FieldSpec{Name: "pad_fragment_output_components", Kind: FieldBool},
	)

	l.MSLVertexAttr = NewLayout("MSLVertexAttr", p,
		FieldSpec{Name: "location", Kind: FieldU32},
		FieldSpec{Name: "msl_buffer", Kind: FieldU32},
		FieldSpec{Name: "msl_offset", Kind: FieldU32},
		FieldSpec{Name: "msl_stride", Kind: FieldU32},
		FieldSpec{Name: "per_instance", Kind: FieldBool},
		FieldSpec{Name: "format", Kind: FieldU32},
		FieldSpec{Name: "used_by_shader", Kind: FieldBool},
	)

	l.MSLResourceBinding = NewLayout("MSLResourceBinding", p,
		FieldSpec{Name: "stage", Kind: FieldU32},
		FieldSpec{Name: "desc_set", Kind: FieldU32},
		FieldSpec{Name: "binding", Kind: FieldU32},
		FieldSpec{Name: "msl_buffer", Kind: FieldU32},
		FieldSpec{Name: "msl_texture", Kind: FieldU32},
		FieldSpec{Name: "msl_sampler", Kind: FieldU32},
		FieldSpec{Name: "used_by_shader", Kind: FieldBool},
	)

	return l
}
