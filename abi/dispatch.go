package abi

import (
	"go.uber.org/zap"
)

// CallFunc invokes an exported entry point by name and returns its raw
// status word. An error means the call itself trapped or could not be made.
type CallFunc func(name string, args ...uint64) (uint64, error)

var _ Core = (*Dispatch)(nil)

// Dispatch adapts a by-name call function into a Core. Both the wasm engine
// and the native loader expose their entry points this way.
type Dispatch struct {
	call CallFunc
}

// NewDispatch wraps call.
func NewDispatch(call CallFunc) *Dispatch {
	return &Dispatch{call: call}
}

func (d *Dispatch) invoke(name string, args ...uint64) Result {
	raw, err := d.call(name, args...)
	if err != nil {
		Logger().Warn("core call failed", zap.String("fn", name), zap.Error(err))
		return Unhandled
	}
	return ResultFromRaw(raw)
}

func (d *Dispatch) GetLatestExceptionMessage(message Address) Result {
	return d.invoke(FnGetLatestExceptionMessage, uint64(message))
}

func (d *Dispatch) CompilerGLSLNew(compiler, ir Address, size uint32) Result {
	return d.invoke(FnCompilerGLSLNew, uint64(compiler), uint64(ir), uint64(size))
}

func (d *Dispatch) CompilerGLSLSetOptions(compiler, options Address) Result {
	return d.invoke(FnCompilerGLSLSetOptions, uint64(compiler), uint64(options))
}

func (d *Dispatch) CompilerGLSLBuildCombinedImageSamplers(compiler Address) Result {
	return d.invoke(FnCompilerGLSLBuildCombinedImageSamplers, uint64(compiler))
}

func (d *Dispatch) CompilerGLSLGetCombinedImageSamplers(compiler, samplers, size Address) Result {
	return d.invoke(FnCompilerGLSLGetCombinedImageSamplers, uint64(compiler), uint64(samplers), uint64(size))
}

func (d *Dispatch) CompilerGLSLAddHeaderLine(compiler, str Address) Result {
	return d.invoke(FnCompilerGLSLAddHeaderLine, uint64(compiler), uint64(str))
}

func (d *Dispatch) CompilerGLSLFlattenBufferBlock(compiler Address, id uint32) Result {
	return d.invoke(FnCompilerGLSLFlattenBufferBlock, uint64(compiler), uint64(id))
}

func (d *Dispatch) CompilerHLSLNew(compiler, ir Address, size uint32) Result {
	return d.invoke(FnCompilerHLSLNew, uint64(compiler), uint64(ir), uint64(size))
}

func (d *Dispatch) CompilerHLSLSetOptions(compiler, options Address) Result {
	return d.invoke(FnCompilerHLSLSetOptions, uint64(compiler), uint64(options))
}

func (d *Dispatch) CompilerMSLNew(compiler, ir Address, size uint32) Result {
	return d.invoke(FnCompilerMSLNew, uint64(compiler), uint64(ir), uint64(size))
}

func (d *Dispatch) CompilerMSLSetOptions(compiler, options Address) Result {
	return d.invoke(FnCompilerMSLSetOptions, uint64(compiler), uint64(options))
}

func (d *Dispatch) CompilerMSLCompile(compiler, shader, vatOverrides Address, vatCount uint32, resOverrides Address, resCount uint32) Result {
	return d.invoke(FnCompilerMSLCompile, uint64(compiler), uint64(shader),
		uint64(vatOverrides), uint64(vatCount), uint64(resOverrides), uint64(resCount))
}

func (d *Dispatch) CompilerMSLGetIsRasterizationDisabled(compiler, isDisabled Address) Result {
	return d.invoke(FnCompilerMSLGetIsRasterizationDisabled, uint64(compiler), uint64(isDisabled))
}

func (d *Dispatch) CompilerGetDecoration(compiler, result Address, id, decoration uint32) Result {
	return d.invoke(FnCompilerGetDecoration, uint64(compiler), uint64(result), uint64(id), uint64(decoration))
}

func (d *Dispatch) CompilerSetDecoration(compiler Address, id, decoration, argument uint32) Result {
	return d.invoke(FnCompilerSetDecoration, uint64(compiler), uint64(id), uint64(decoration), uint64(argument))
}

func (d *Dispatch) CompilerUnsetDecoration(compiler Address, id, decoration uint32) Result {
	return d.invoke(FnCompilerUnsetDecoration, uint64(compiler), uint64(id), uint64(decoration))
}

func (d *Dispatch) CompilerGetName(compiler Address, id uint32, name Address) Result {
	return d.invoke(FnCompilerGetName, uint64(compiler), uint64(id), uint64(name))
}

func (d *Dispatch) CompilerSetName(compiler Address, id uint32, name Address) Result {
	return d.invoke(FnCompilerSetName, uint64(compiler), uint64(id), uint64(name))
}

func (d *Dispatch) CompilerGetEntryPoints(compiler, entryPoints, size Address) Result {
	return d.invoke(FnCompilerGetEntryPoints, uint64(compiler), uint64(entryPoints), uint64(size))
}

func (d *Dispatch) CompilerGetActiveBufferRanges(compiler Address, id uint32, ranges, size Address) Result {
	return d.invoke(FnCompilerGetActiveBufferRanges, uint64(compiler), uint64(id), uint64(ranges), uint64(size))
}

func (d *Dispatch) CompilerGetCleansedEntryPointName(compiler, original Address, executionModel uint32, compiled Address) Result {
	return d.invoke(FnCompilerGetCleansedEntryPointName, uint64(compiler), uint64(original), uint64(executionModel), uint64(compiled))
}

func (d *Dispatch) CompilerGetShaderResources(compiler, resources Address) Result {
	return d.invoke(FnCompilerGetShaderResources, uint64(compiler), uint64(resources))
}

func (d *Dispatch) CompilerGetSpecializationConstants(compiler, constants, size Address) Result {
	return d.invoke(FnCompilerGetSpecializationConstants, uint64(compiler), uint64(constants), uint64(size))
}

func (d *Dispatch) CompilerSetScalarConstant(compiler Address, id, high, low uint32) Result {
	return d.invoke(FnCompilerSetScalarConstant, uint64(compiler), uint64(id), uint64(high), uint64(low))
}

func (d *Dispatch) CompilerGetType(compiler Address, id uint32, spirvType Address) Result {
	return d.invoke(FnCompilerGetType, uint64(compiler), uint64(id), uint64(spirvType))
}

func (d *Dispatch) CompilerGetMemberName(compiler Address, id, index uint32, name Address) Result {
	return d.invoke(FnCompilerGetMemberName, uint64(compiler), uint64(id), uint64(index), uint64(name))
}

func (d *Dispatch) CompilerGetMemberDecoration(compiler Address, id, index, decoration uint32, result Address) Result {
	return d.invoke(FnCompilerGetMemberDecoration, uint64(compiler), uint64(id), uint64(index), uint64(decoration), uint64(result))
}

func (d *Dispatch) CompilerSetMemberDecoration(compiler Address, id, index, decoration, argument uint32) Result {
	return d.invoke(FnCompilerSetMemberDecoration, uint64(compiler), uint64(id), uint64(index), uint64(decoration), uint64(argument))
}

func (d *Dispatch) CompilerGetDeclaredStructSize(compiler Address, id uint32, result Address) Result {
	return d.invoke(FnCompilerGetDeclaredStructSize, uint64(compiler), uint64(id), uint64(result))
}

func (d *Dispatch) CompilerGetDeclaredStructMemberSize(compiler Address, id, index uint32, result Address) Result {
	return d.invoke(FnCompilerGetDeclaredStructMemberSize, uint64(compiler), uint64(id), uint64(index), uint64(result))
}

func (d *Dispatch) CompilerRenameInterfaceVariable(compiler, resources Address, count, location uint32, name Address) Result {
	return d.invoke(FnCompilerRenameInterfaceVariable, uint64(compiler), uint64(resources), uint64(count), uint64(location), uint64(name))
}

func (d *Dispatch) CompilerGetWorkGroupSizeSpecializationConstants(compiler, constants Address) Result {
	return d.invoke(FnCompilerGetWorkGroupSizeSpecializationConstants, uint64(compiler), uint64(constants))
}

func (d *Dispatch) CompilerCompile(compiler, shader Address) Result {
	return d.invoke(FnCompilerCompile, uint64(compiler), uint64(shader))
}

func (d *Dispatch) CompilerDelete(compiler Address) Result {
	return d.invoke(FnCompilerDelete, uint64(compiler))
}

func (d *Dispatch) FreePointer(pointer Address) Result {
	return d.invoke(FnFreePointer, uint64(pointer))
}

// Serve invokes the Core method that implements the named export. It is
// the inverse of Dispatch and lets a Go core be exported to a wasm guest.
// ok is false for names outside the contract or a wrong argument count.
func Serve(core Core, name string, args []uint64) (result Result, ok bool) {
	exp, found := Lookup(name)
	if !found || len(args) != len(exp.Params) {
		return Unhandled, false
	}
	a := func(i int) Address { return Address(args[i]) }
	u := func(i int) uint32 { return uint32(args[i]) }

	switch name {
	case FnGetLatestExceptionMessage:
		return core.GetLatestExceptionMessage(a(0)), true
	case FnCompilerGLSLNew:
		return core.CompilerGLSLNew(a(0), a(1), u(2)), true
	case FnCompilerGLSLSetOptions:
		return core.CompilerGLSLSetOptions(a(0), a(1)), true
	case FnCompilerGLSLBuildCombinedImageSamplers:
		return core.CompilerGLSLBuildCombinedImageSamplers(a(0)), true
	case FnCompilerGLSLGetCombinedImageSamplers:
		return core.CompilerGLSLGetCombinedImageSamplers(a(0), a(1), a(2)), true
	case FnCompilerGLSLAddHeaderLine:
		return core.CompilerGLSLAddHeaderLine(a(0), a(1)), true
	case FnCompilerGLSLFlattenBufferBlock:
		return core.CompilerGLSLFlattenBufferBlock(a(0), u(1)), true
	case FnCompilerHLSLNew:
		return core.CompilerHLSLNew(a(0), a(1), u(2)), true
	case FnCompilerHLSLSetOptions:
		return core.CompilerHLSLSetOptions(a(0), a(1)), true
	case FnCompilerMSLNew:
		return core.CompilerMSLNew(a(0), a(1), u(2)), true
	case FnCompilerMSLSetOptions:
		return core.CompilerMSLSetOptions(a(0), a(1)), true
	case FnCompilerMSLCompile:
		return core.CompilerMSLCompile(a(0), a(1), a(2), u(3), a(4), u(5)), true
	case FnCompilerMSLGetIsRasterizationDisabled:
		return core.CompilerMSLGetIsRasterizationDisabled(a(0), a(1)), true
	case FnCompilerGetDecoration:
		return core.CompilerGetDecoration(a(0), a(1), u(2), u(3)), true
	case FnCompilerSetDecoration:
		return core.CompilerSetDecoration(a(0), u(1), u(2), u(3)), true
	case FnCompilerUnsetDecoration:
		return core.CompilerUnsetDecoration(a(0), u(1), u(2)), true
	case FnCompilerGetName:
		return core.CompilerGetName(a(0), u(1), a(2)), true
	case FnCompilerSetName:
		return core.CompilerSetName(a(0), u(1), a(2)), true
	case FnCompilerGetEntryPoints:
		return core.CompilerGetEntryPoints(a(0), a(1), a(2)), true
	case FnCompilerGetActiveBufferRanges:
		return core.CompilerGetActiveBufferRanges(a(0), u(1), a(2), a(3)), true
	case FnCompilerGetCleansedEntryPointName:
		return core.CompilerGetCleansedEntryPointName(a(0), a(1), u(2), a(3)), true
	case FnCompilerGetShaderResources:
		return core.CompilerGetShaderResources(a(0), a(1)), true
	case FnCompilerGetSpecializationConstants:
		return core.CompilerGetSpecializationConstants(a(0), a(1), a(2)), true
	case FnCompilerSetScalarConstant:
		return core.CompilerSetScalarConstant(a(0), u(1), u(2), u(3)), true
	case FnCompilerGetType:
		return core.CompilerGetType(a(0), u(1), a(2)), true
	case FnCompilerGetMemberName:
		return core.CompilerGetMemberName(a(0), u(1), u(2), a(3)), true
	case FnCompilerGetMemberDecoration:
		return core.CompilerGetMemberDecoration(a(0), u(1), u(2), u(3), a(4)), true
	case FnCompilerSetMemberDecoration:
		return core.CompilerSetMemberDecoration(a(0), u(1), u(2), u(3), u(4)), true
	case FnCompilerGetDeclaredStructSize:
		return core.CompilerGetDeclaredStructSize(a(0), u(1), a(2)), true
	case FnCompilerGetDeclaredStructMemberSize:
		return core.CompilerGetDeclaredStructMemberSize(a(0), u(1), u(2), a(3)), true
	case FnCompilerRenameInterfaceVariable:
		return core.CompilerRenameInterfaceVariable(a(0), a(1), u(2), u(3), a(4)), true
	case FnCompilerGetWorkGroupSizeSpecializationConstants:
		return core.CompilerGetWorkGroupSizeSpecializationConstants(a(0), a(1)), true
	case FnCompilerCompile:
		return core.CompilerCompile(a(0), a(1)), true
	case FnCompilerDelete:
		return core.CompilerDelete(a(0)), true
	case FnFreePointer:
		return core.FreePointer(a(0)), true
	}
	return Unhandled, false
}
