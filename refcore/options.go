package refcore

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
)

type glslOptions struct {
	vertexInvertY                   bool
	vertexTransformClipSpace        bool
	version                         uint32
	es                              bool
	supportNonzeroBaseInstance      bool
	floatPrecision                  uint8
	intPrecision                    uint8
	forceTemporary                  bool
	vulkanSemantics                 bool
	separateShaderObjects           bool
	flattenMultidimensionalArrays   bool
	enable420Pack                   bool
	emitPushConstantAsUniformBuffer bool
	emitUniformBufferAsPlain        bool
	emitLineDirectives              bool
	storageImageQualifierDeduction  bool
	forceZeroInitializedVariables   bool
}

func defaultGLSLOptions() glslOptions {
	return glslOptions{
		version:                        450,
		supportNonzeroBaseInstance:     true,
		floatPrecision:                 precisionMedium,
		intPrecision:                   precisionHigh,
		enable420Pack:                  true,
		storageImageQualifierDeduction: true,
	}
}

const (
	precisionDontCare uint8 = iota
	precisionLow
	precisionMedium
	precisionHigh
)

func readGLSLOptions(t spirvcross.Transport, addr abi.Address) (glslOptions, error) {
	r := abi.NewRecord(t, abi.LayoutsFor(t.PointerSize()).GLSLOptions, addr)
	o := glslOptions{
		vertexInvertY:                   r.Bool("vertex_invert_y"),
		vertexTransformClipSpace:        r.Bool("vertex_transform_clip_space"),
		version:                         r.U32("version"),
		es:                              r.Bool("es"),
		supportNonzeroBaseInstance:      r.Bool("vertex_support_nonzero_base_instance"),
		floatPrecision:                  r.U8("fragment_default_float_precision"),
		intPrecision:                    r.U8("fragment_default_int_precision"),
		forceTemporary:                  r.Bool("force_temporary"),
		vulkanSemantics:                 r.Bool("vulkan_semantics"),
		separateShaderObjects:           r.Bool("separate_shader_objects"),
		flattenMultidimensionalArrays:   r.Bool("flatten_multidimensional_arrays"),
		enable420Pack:                   r.Bool("enable_420_pack_extension"),
		emitPushConstantAsUniformBuffer: r.Bool("emit_push_constant_as_uniform_buffer"),
		emitUniformBufferAsPlain:        r.Bool("emit_uniform_buffer_as_plain_uniforms"),
		emitLineDirectives:              r.Bool("emit_line_directives"),
		storageImageQualifierDeduction:  r.Bool("enable_storage_image_qualifier_deduction"),
		forceZeroInitializedVariables:   r.Bool("force_zero_initialized_variables"),
	}
	return o, r.Err()
}

type hlslOptions struct {
	shaderModel                int32
	vertexInvertY              bool
	vertexTransformClipSpace   bool
	pointSizeCompat            bool
	pointCoordCompat           bool
	forceStorageBufferAsUAV    bool
	nonwritableUAVTextureAsSRV bool
}

func defaultHLSLOptions() hlslOptions {
	return hlslOptions{shaderModel: 30}
}

func readHLSLOptions(t spirvcross.Transport, addr abi.Address) (hlslOptions, error) {
	r := abi.NewRecord(t, abi.LayoutsFor(t.PointerSize()).HLSLOptions, addr)
	o := hlslOptions{
		shaderModel:                r.I32("shader_model"),
		vertexInvertY:              r.Bool("vertex_invert_y"),
		vertexTransformClipSpace:   r.Bool("vertex_transform_clip_space"),
		pointSizeCompat:            r.Bool("point_size_compat"),
		pointCoordCompat:           r.Bool("point_coord_compat"),
		forceStorageBufferAsUAV:    r.Bool("force_storage_buffer_as_uav"),
		nonwritableUAVTextureAsSRV: r.Bool("nonwritable_uav_texture_as_srv"),
	}
	return o, r.Err()
}

type mslOptions struct {
	vertexInvertY              bool
	vertexTransformClipSpace   bool
	platform                   uint8
	version                    uint32
	enablePointSizeBuiltin     bool
	disableRasterization       bool
	swizzleBufferIndex         uint32
	indirectParamsBufferIndex  uint32
	shaderOutputBufferIndex    uint32
	bufferSizeBufferIndex      uint32
	captureOutputToBuffer      bool
	swizzleTextureSamples      bool
	tessDomainOriginLowerLeft  bool
	argumentBuffers            bool
	padFragmentOutputComponent bool
}

const (
	platformIOS uint8 = iota
	platformMacOS
)

func defaultMSLOptions() mslOptions {
	return mslOptions{
		platform:                  platformMacOS,
		version:                   10200,
		enablePointSizeBuiltin:    true,
		swizzleBufferIndex:        30,
		indirectParamsBufferIndex: 29,
		shaderOutputBufferIndex:   28,
		bufferSizeBufferIndex:     25,
	}
}

func readMSLOptions(t spirvcross.Transport, addr abi.Address) (mslOptions, error) {
	r := abi.NewRecord(t, abi.LayoutsFor(t.PointerSize()).MSLOptions, addr)
	o := mslOptions{
		vertexInvertY:              r.Bool("vertex_invert_y"),
		vertexTransformClipSpace:   r.Bool("vertex_transform_clip_space"),
		platform:                   r.U8("platform"),
		version:                    r.U32("version"),
		enablePointSizeBuiltin:     r.Bool("enable_point_size_builtin"),
		disableRasterization:       r.Bool("disable_rasterization"),
		swizzleBufferIndex:         r.U32("swizzle_buffer_index"),
		indirectParamsBufferIndex:  r.U32("indirect_params_buffer_index"),
		shaderOutputBufferIndex:    r.U32("shader_output_buffer_index"),
		bufferSizeBufferIndex:      r.U32("buffer_size_buffer_index"),
		captureOutputToBuffer:      r.Bool("capture_output_to_buffer"),
		swizzleTextureSamples:      r.Bool("swizzle_texture_samples"),
		tessDomainOriginLowerLeft:  r.Bool("tess_domain_origin_lower_left"),
		argumentBuffers:            r.Bool("argument_buffers"),
		padFragmentOutputComponent: r.Bool("pad_fragment_output_components"),
	}
	return o, r.Err()
}

type mslVertexAttr struct {
	location    uint32
	buffer      uint32
	offset      uint32
	stride      uint32
	perInstance bool
	format      uint32
	addr        abi.Address
}

type mslResourceBinding struct {
	stage    uint32
	descSet  uint32
	binding  uint32
	buffer   uint32
	texture  uint32
	sampler  uint32
	addr     abi.Address
}

func readVertexAttrs(t spirvcross.Transport, base abi.Address, count uint32) ([]mslVertexAttr, error) {
	l := abi.LayoutsFor(t.PointerSize()).MSLVertexAttr
	out := make([]mslVertexAttr, 0, count)
	for i := 0; i < int(count); i++ {
		r := abi.Element(t, l, base, i)
		a := mslVertexAttr{
			location:    r.U32("location"),
			buffer:      r.U32("msl_buffer"),
			offset:      r.U32("msl_offset"),
			stride:      r.U32("msl_stride"),
			perInstance: r.Bool("per_instance"),
			format:      r.U32("format"),
			addr:        r.Base(),
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func readResourceBindings(t spirvcross.Transport, base abi.Address, count uint32) ([]mslResourceBinding, error) {
	l := abi.LayoutsFor(t.PointerSize()).MSLResourceBinding
	out := make([]mslResourceBinding, 0, count)
	for i := 0; i < int(count); i++ {
		r := abi.Element(t, l, base, i)
		b := mslResourceBinding{
			stage:   r.U32("stage"),
			descSet: r.U32("desc_set"),
			binding: r.U32("binding"),
			buffer:  r.U32("msl_buffer"),
			texture: r.U32("msl_texture"),
			sampler: r.U32("msl_sampler"),
			addr:    r.Base(),
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
