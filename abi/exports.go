package abi

// Names of the core's exported entry points.
const (
	FnGetLatestExceptionMessage                       = "sc_internal_get_latest_exception_message"
	FnCompilerGLSLNew                                 = "sc_internal_compiler_glsl_new"
	FnCompilerGLSLSetOptions                          = "sc_internal_compiler_glsl_set_options"
	FnCompilerGLSLBuildCombinedImageSamplers          = "sc_internal_compiler_glsl_build_combined_image_samplers"
	FnCompilerGLSLGetCombinedImageSamplers            = "sc_internal_compiler_glsl_get_combined_image_samplers"
	FnCompilerGLSLAddHeaderLine                       = "sc_internal_compiler_glsl_add_header_line"
	FnCompilerGLSLFlattenBufferBlock                  = "sc_internal_compiler_glsl_flatten_buffer_block"
	FnCompilerHLSLNew                                 = "sc_internal_compiler_hlsl_new"
	FnCompilerHLSLSetOptions                          = "sc_internal_compiler_hlsl_set_options"
	FnCompilerMSLNew                                  = "sc_internal_compiler_msl_new"
	FnCompilerMSLSetOptions                           = "sc_internal_compiler_msl_set_options"
	FnCompilerMSLCompile                              = "sc_internal_compiler_msl_compile"
	FnCompilerMSLGetIsRasterizationDisabled           = "sc_internal_compiler_msl_get_is_rasterization_disabled"
	FnCompilerGetDecoration                           = "sc_internal_compiler_get_decoration"
	FnCompilerSetDecoration                           = "sc_internal_compiler_set_decoration"
	FnCompilerUnsetDecoration                         = "sc_internal_compiler_unset_decoration"
	FnCompilerGetName                                 = "sc_internal_compiler_get_name"
	FnCompilerSetName                                 = "sc_internal_compiler_set_name"
	FnCompilerGetEntryPoints                          = "sc_internal_compiler_get_entry_points"
	FnCompilerGetActiveBufferRanges                   = "sc_internal_compiler_get_active_buffer_ranges"
	FnCompilerGetCleansedEntryPointName               = "sc_internal_compiler_get_cleansed_entry_point_name"
	FnCompilerGetShaderResources                      = "sc_internal_compiler_get_shader_resources"
	FnCompilerGetSpecializationConstants              = "sc_internal_compiler_get_specialization_constants"
	FnCompilerSetScalarConstant                       = "sc_internal_compiler_set_scalar_constant"
	FnCompilerGetType                                 = "sc_internal_compiler_get_type"
	FnCompilerGetMemberName                           = "sc_internal_compiler_get_member_name"
	FnCompilerGetMemberDecoration                     = "sc_internal_compiler_get_member_decoration"
	FnCompilerSetMemberDecoration                     = "sc_internal_compiler_set_member_decoration"
	FnCompilerGetDeclaredStructSize                   = "sc_internal_compiler_get_declared_struct_size"
	FnCompilerGetDeclaredStructMemberSize             = "sc_internal_compiler_get_declared_struct_member_size"
	FnCompilerRenameInterfaceVariable                 = "sc_internal_compiler_rename_interface_variable"
	FnCompilerGetWorkGroupSizeSpecializationConstants = "sc_internal_compiler_get_work_group_size_specialization_constants"
	FnCompilerCompile                                 = "sc_internal_compiler_compile"
	FnCompilerDelete                                  = "sc_internal_compiler_delete"
	FnFreePointer                                     = "sc_internal_free_pointer"
)

// Export describes one entry point of the contract as a WIT function.
// All parameters lower to i32 on wasm32 and to machine words natively.
type Export struct {
	Name   string
	Params []string
}

// WIT renders the export as a WIT function declaration.
func (e Export) WIT() string {
	s := e.Name + ": func("
	for i, p := range e.Params {
		if i > 0 {
			s += ", "
		}
		s += p + ": u32"
	}
	return s + ") -> u32;"
}

// Exports lists the whole contract in declaration order.
var Exports = []Export{
	{FnGetLatestExceptionMessage, []string{"message"}},
	{FnCompilerGLSLNew, []string{"compiler", "ir", "size"}},
	{FnCompilerGLSLSetOptions, []string{"compiler", "options"}},
	{FnCompilerGLSLBuildCombinedImageSamplers, []string{"compiler"}},
	{FnCompilerGLSLGetCombinedImageSamplers, []string{"compiler", "samplers", "size"}},
	{FnCompilerGLSLAddHeaderLine, []string{"compiler", "str"}},
	{FnCompilerGLSLFlattenBufferBlock, []string{"compiler", "id"}},
	{FnCompilerHLSLNew, []string{"compiler", "ir", "size"}},
	{FnCompilerHLSLSetOptions, []string{"compiler", "options"}},
	{FnCompilerMSLNew, []string{"compiler", "ir", "size"}},
	{FnCompilerMSLSetOptions, []string{"compiler", "options"}},
	{FnCompilerMSLCompile, []string{"compiler", "shader", "vat-overrides", "vat-count", "res-overrides", "res-count"}},
	{FnCompilerMSLGetIsRasterizationDisabled, []string{"compiler", "is-disabled"}},
	{FnCompilerGetDecoration, []string{"compiler", "result", "id", "decoration"}},
	{FnCompilerSetDecoration, []string{"compiler", "id", "decoration", "argument"}},
	{FnCompilerUnsetDecoration, []string{"compiler", "id", "decoration"}},
	{FnCompilerGetName, []string{"compiler", "id", "name"}},
	{FnCompilerSetName, []string{"compiler", "id", "name"}},
	{FnCompilerGetEntryPoints, []string{"compiler", "entry-points", "size"}},
	{FnCompilerGetActiveBufferRanges, []string{"compiler", "id", "ranges", "size"}},
	{FnCompilerGetCleansedEntryPointName, []string{"compiler", "original", "execution-model", "compiled"}},
	{FnCompilerGetShaderResources, []string{"compiler", "resources"}},
	{FnCompilerGetSpecializationConstants, []string{"compiler", "constants", "size"}},
	{FnCompilerSetScalarConstant, []string{"compiler", "id", "high", "low"}},
	{FnCompilerGetType, []string{"compiler", "id", "spirv-type"}},
	{FnCompilerGetMemberName, []string{"compiler", "id", "index", "name"}},
	{FnCompilerGetMemberDecoration, []string{"compiler", "id", "index", "decoration", "result"}},
	{FnCompilerSetMemberDecoration, []string{"compiler", "id", "index", "decoration", "argument"}},
	{FnCompilerGetDeclaredStructSize, []string{"compiler", "id", "result"}},
	{FnCompilerGetDeclaredStructMemberSize, []string{"compiler", "id", "index", "result"}},
	{FnCompilerRenameInterfaceVariable, []string{"compiler", "resources", "count", "location", "name"}},
	{FnCompilerGetWorkGroupSizeSpecializationConstants, []string{"compiler", "constants"}},
	{FnCompilerCompile, []string{"compiler", "shader"}},
	{FnCompilerDelete, []string{"compiler"}},
	{FnFreePointer, []string{"pointer"}},
}

// Lookup returns the export with the given name.
func Lookup(name string) (Export, bool) {
	for _, e := range Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}
