package abi

import spirvcross "github.com/wippyai/spirv-cross"

// Address aliases the transport address type for brevity in signatures.
type Address = spirvcross.Address

// Core is the narrow C contract of a compiler core. Every pointer argument
// is an address in the Transport the core was bound to. Out parameters are
// written only when the call returns Success.
//
// Array results come back as a (pointer, size_t count) pair written to two
// out slots; the array and every string it references are owned by the
// caller afterwards and must be released with FreePointer.
type Core interface {
	// GetLatestExceptionMessage writes a char* to message. A core built
	// without exceptions may leave the slot untouched and still succeed.
	GetLatestExceptionMessage(message Address) Result

	CompilerGLSLNew(compiler, ir Address, size uint32) Result
	CompilerGLSLSetOptions(compiler, options Address) Result
	CompilerGLSLBuildCombinedImageSamplers(compiler Address) Result
	CompilerGLSLGetCombinedImageSamplers(compiler, samplers, size Address) Result
	CompilerGLSLAddHeaderLine(compiler, str Address) Result
	CompilerGLSLFlattenBufferBlock(compiler Address, id uint32) Result

	CompilerHLSLNew(compiler, ir Address, size uint32) Result
	CompilerHLSLSetOptions(compiler, options Address) Result

	CompilerMSLNew(compiler, ir Address, size uint32) Result
	CompilerMSLSetOptions(compiler, options Address) Result
	CompilerMSLCompile(compiler, shader, vatOverrides Address, vatCount uint32, resOverrides Address, resCount uint32) Result
	CompilerMSLGetIsRasterizationDisabled(compiler, isDisabled Address) Result

	CompilerGetDecoration(compiler, result Address, id, decoration uint32) Result
	CompilerSetDecoration(compiler Address, id, decoration, argument uint32) Result
	CompilerUnsetDecoration(compiler Address, id, decoration uint32) Result
	CompilerGetName(compiler Address, id uint32, name Address) Result
	CompilerSetName(compiler Address, id uint32, name Address) Result
	CompilerGetEntryPoints(compiler, entryPoints, size Address) Result
	CompilerGetActiveBufferRanges(compiler Address, id uint32, ranges, size Address) Result
	CompilerGetCleansedEntryPointName(compiler, original Address, executionModel uint32, compiled Address) Result
	CompilerGetShaderResources(compiler, resources Address) Result
	CompilerGetSpecializationConstants(compiler, constants, size Address) Result
	CompilerSetScalarConstant(compiler Address, id, high, low uint32) Result
	CompilerGetType(compiler Address, id uint32, spirvType Address) Result
	CompilerGetMemberName(compiler Address, id, index uint32, name Address) Result
	CompilerGetMemberDecoration(compiler Address, id, index, decoration uint32, result Address) Result
	CompilerSetMemberDecoration(compiler Address, id, index, decoration, argument uint32) Result
	CompilerGetDeclaredStructSize(compiler Address, id uint32, result Address) Result
	CompilerGetDeclaredStructMemberSize(compiler Address, id, index uint32, result Address) Result
	CompilerRenameInterfaceVariable(compiler, resources Address, count, location uint32, name Address) Result
	CompilerGetWorkGroupSizeSpecializationConstants(compiler, constants Address) Result
	CompilerCompile(compiler, shader Address) Result
	CompilerDelete(compiler Address) Result

	FreePointer(pointer Address) Result
}
