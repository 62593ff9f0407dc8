// Package spvtest assembles small SPIR-V modules for tests.
package spvtest

import (
	"encoding/binary"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

// Builder assembles a module section by section.
type Builder struct {
	nextID      uint32
	capability  []uint32
	memoryModel []uint32
	entryPoints []uint32
	execModes   []uint32
	names       []uint32
	annotations []uint32
	types       []uint32
	functions   []uint32
}

// NewBuilder returns a builder with Shader capability and the GLSL450
// memory model.
func NewBuilder() *Builder {
	b := &Builder{nextID: 1}
	b.capability = spirvbin.Encode(spirvbin.OpCapability, 1)
	b.memoryModel = spirvbin.Encode(spirvbin.OpMemoryModel, 0, 1)
	return b
}

// ID allocates a result id.
func (b *Builder) ID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Builder) typeOp(op spirvbin.Op, operands ...uint32) uint32 {
	id := b.ID()
	b.types = append(b.types, spirvbin.Encode(op, append([]uint32{id}, operands...)...)...)
	return id
}

func (b *Builder) resultOp(op spirvbin.Op, resultType uint32, operands ...uint32) uint32 {
	id := b.ID()
	b.types = append(b.types, spirvbin.Encode(op, append([]uint32{resultType, id}, operands...)...)...)
	return id
}

// EntryPoint declares an entry point.
func (b *Builder) EntryPoint(model, fn uint32, name string, interfaces ...uint32) {
	ops := []uint32{model, fn}
	ops = append(ops, spirvbin.EncodeString(name)...)
	ops = append(ops, interfaces...)
	b.entryPoints = append(b.entryPoints, spirvbin.Encode(spirvbin.OpEntryPoint, ops...)...)
}

// ExecutionMode declares an execution mode.
func (b *Builder) ExecutionMode(fn, mode uint32, literals ...uint32) {
	b.execModes = append(b.execModes, spirvbin.Encode(spirvbin.OpExecutionMode, append([]uint32{fn, mode}, literals...)...)...)
}

// Name attaches a debug name.
func (b *Builder) Name(id uint32, name string) {
	b.names = append(b.names, spirvbin.Encode(spirvbin.OpName, append([]uint32{id}, spirvbin.EncodeString(name)...)...)...)
}

// MemberName attaches a debug name to a struct member.
func (b *Builder) MemberName(id, member uint32, name string) {
	b.names = append(b.names, spirvbin.Encode(spirvbin.OpMemberName, append([]uint32{id, member}, spirvbin.EncodeString(name)...)...)...)
}

// Decorate adds OpDecorate.
func (b *Builder) Decorate(id, decoration uint32, literals ...uint32) {
	b.annotations = append(b.annotations, spirvbin.Encode(spirvbin.OpDecorate, append([]uint32{id, decoration}, literals...)...)...)
}

// MemberDecorate adds OpMemberDecorate.
func (b *Builder) MemberDecorate(id, member, decoration uint32, literals ...uint32) {
	b.annotations = append(b.annotations, spirvbin.Encode(spirvbin.OpMemberDecorate, append([]uint32{id, member, decoration}, literals...)...)...)
}

func (b *Builder) TypeVoid() uint32                 { return b.typeOp(spirvbin.OpTypeVoid) }
func (b *Builder) TypeBool() uint32                 { return b.typeOp(spirvbin.OpTypeBool) }
func (b *Builder) TypeFloat(width uint32) uint32    { return b.typeOp(spirvbin.OpTypeFloat, width) }
func (b *Builder) TypeVector(c, n uint32) uint32    { return b.typeOp(spirvbin.OpTypeVector, c, n) }
func (b *Builder) TypeMatrix(col, n uint32) uint32  { return b.typeOp(spirvbin.OpTypeMatrix, col, n) }
func (b *Builder) TypeSampler() uint32              { return b.typeOp(spirvbin.OpTypeSampler) }
func (b *Builder) TypeSampledImage(img uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeSampledImage, img)
}
func (b *Builder) TypeRuntimeArray(elem uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeRuntimeArray, elem)
}

func (b *Builder) TypeInt(width uint32, signed bool) uint32 {
	var s uint32
	if signed {
		s = 1
	}
	return b.typeOp(spirvbin.OpTypeInt, width, s)
}

// TypeImage declares a sampled 2D-style image of the given dimension.
func (b *Builder) TypeImage(sampled, dim, sampledFlag uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeImage, sampled, dim, 0, 0, 0, sampledFlag, 0)
}

// TypeArray declares a fixed array; length is a constant id.
func (b *Builder) TypeArray(elem, length uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeArray, elem, length)
}

func (b *Builder) TypeStruct(members ...uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeStruct, members...)
}

func (b *Builder) TypePointer(storage, pointee uint32) uint32 {
	return b.typeOp(spirvbin.OpTypePointer, storage, pointee)
}

func (b *Builder) TypeFunction(ret uint32, params ...uint32) uint32 {
	return b.typeOp(spirvbin.OpTypeFunction, append([]uint32{ret}, params...)...)
}

func (b *Builder) Constant(typ uint32, values ...uint32) uint32 {
	return b.resultOp(spirvbin.OpConstant, typ, values...)
}

func (b *Builder) SpecConstant(typ uint32, values ...uint32) uint32 {
	return b.resultOp(spirvbin.OpSpecConstant, typ, values...)
}

func (b *Builder) SpecConstantTrue(typ uint32) uint32 {
	return b.resultOp(spirvbin.OpSpecConstantTrue, typ)
}

func (b *Builder) SpecConstantComposite(typ uint32, parts ...uint32) uint32 {
	return b.resultOp(spirvbin.OpSpecConstantComposite, typ, parts...)
}

func (b *Builder) ConstantComposite(typ uint32, parts ...uint32) uint32 {
	return b.resultOp(spirvbin.OpConstantComposite, typ, parts...)
}

// Variable declares a global variable.
func (b *Builder) Variable(ptrType, storage uint32) uint32 {
	return b.resultOp(spirvbin.OpVariable, ptrType, storage)
}

// Function is an open function body.
type Function struct {
	b  *Builder
	ID uint32
}

// Function opens a function and its entry block.
func (b *Builder) Function(ret, fnType uint32) *Function {
	id := b.ID()
	b.functions = append(b.functions, spirvbin.Encode(spirvbin.OpFunction, ret, id, 0, fnType)...)
	b.functions = append(b.functions, spirvbin.Encode(spirvbin.OpLabel, b.ID())...)
	return &Function{b: b, ID: id}
}

func (f *Function) op(op spirvbin.Op, resultType uint32, operands ...uint32) uint32 {
	id := f.b.ID()
	f.b.functions = append(f.b.functions, spirvbin.Encode(op, append([]uint32{resultType, id}, operands...)...)...)
	return id
}

// AccessChain emits OpAccessChain.
func (f *Function) AccessChain(ptrType, base uint32, indices ...uint32) uint32 {
	return f.op(spirvbin.OpAccessChain, ptrType, append([]uint32{base}, indices...)...)
}

// Load emits OpLoad.
func (f *Function) Load(typ, ptr uint32) uint32 {
	return f.op(spirvbin.OpLoad, typ, ptr)
}

// SampledImage emits OpSampledImage.
func (f *Function) SampledImage(typ, image, sampler uint32) uint32 {
	return f.op(spirvbin.OpSampledImage, typ, image, sampler)
}

// Store emits OpStore.
func (f *Function) Store(ptr, value uint32) {
	f.b.functions = append(f.b.functions, spirvbin.Encode(spirvbin.OpStore, ptr, value)...)
}

// End closes the function.
func (f *Function) End() {
	f.b.functions = append(f.b.functions, spirvbin.Encode(spirvbin.OpReturn)...)
	f.b.functions = append(f.b.functions, spirvbin.Encode(spirvbin.OpFunctionEnd)...)
}

// Words returns the assembled module.
func (b *Builder) Words() []uint32 {
	out := []uint32{spirvbin.Magic, spirvbin.Version1_0, 0, b.nextID, 0}
	for _, s := range [][]uint32{
		b.capability, b.memoryModel, b.entryPoints, b.execModes,
		b.names, b.annotations, b.types, b.functions,
	} {
		out = append(out, s...)
	}
	return out
}

// Bytes returns the module as little-endian bytes.
func Bytes(words []uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
