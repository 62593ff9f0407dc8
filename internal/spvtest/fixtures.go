package spvtest

import (
	"math"

	"github.com/wippyai/spirv-cross/internal/spirvbin"
)

// Execution models used by the fixtures.
const (
	ModelVertex   uint32 = 0
	ModelFragment uint32 = 4
	ModelCompute  uint32 = 5
)

// Vertex is a vertex shader with one uniform block, two inputs and one
// user output next to gl_Position:
//
//	layout(std140) uniform uniform_buffer_object {
//	    mat4 u_model_view_projection; // offset 0
//	    float u_scale;                // offset 64
//	};
//	layout(location = 0) in vec4 a_position;
//	layout(location = 1) in vec3 a_normal;
//	layout(location = 0) out vec3 v_normal;
type Vertex struct {
	Words []uint32

	Main        uint32
	Float       uint32
	Vec4        uint32
	Vec3        uint32
	Mat4        uint32
	BlockType   uint32
	Block       uint32
	Position    uint32
	Normal      uint32
	VNormal     uint32
	GLPosition  uint32
	ScaleMember uint32
}

// NewVertex assembles the vertex fixture.
func NewVertex() *Vertex {
	b := NewBuilder()
	v := &Vertex{}

	void := b.TypeVoid()
	fnType := b.TypeFunction(void)
	v.Float = b.TypeFloat(32)
	i32 := b.TypeInt(32, true)
	v.Vec4 = b.TypeVector(v.Float, 4)
	v.Vec3 = b.TypeVector(v.Float, 3)
	v.Mat4 = b.TypeMatrix(v.Vec4, 4)

	v.BlockType = b.TypeStruct(v.Mat4, v.Float)
	blockPtr := b.TypePointer(spirvbin.StorageUniform, v.BlockType)
	v.Block = b.Variable(blockPtr, spirvbin.StorageUniform)

	inVec4 := b.TypePointer(spirvbin.StorageInput, v.Vec4)
	inVec3 := b.TypePointer(spirvbin.StorageInput, v.Vec3)
	outVec3 := b.TypePointer(spirvbin.StorageOutput, v.Vec3)
	outVec4 := b.TypePointer(spirvbin.StorageOutput, v.Vec4)
	uniFloat := b.TypePointer(spirvbin.StorageUniform, v.Float)

	v.Position = b.Variable(inVec4, spirvbin.StorageInput)
	v.Normal = b.Variable(inVec3, spirvbin.StorageInput)
	v.VNormal = b.Variable(outVec3, spirvbin.StorageOutput)
	v.GLPosition = b.Variable(outVec4, spirvbin.StorageOutput)
	one := b.Constant(i32, 1)
	v.ScaleMember = 1

	b.Name(v.BlockType, "uniform_buffer_object")
	b.MemberName(v.BlockType, 0, "u_model_view_projection")
	b.MemberName(v.BlockType, 1, "u_scale")
	b.Name(v.Position, "a_position")
	b.Name(v.Normal, "a_normal")
	b.Name(v.VNormal, "v_normal")
	b.Name(v.GLPosition, "gl_Position")

	b.Decorate(v.BlockType, spirvbin.DecorationBlock)
	b.MemberDecorate(v.BlockType, 0, 5) // ColMajor
	b.MemberDecorate(v.BlockType, 0, spirvbin.DecorationOffset, 0)
	b.MemberDecorate(v.BlockType, 0, spirvbin.DecorationMatrixStride, 16)
	b.MemberDecorate(v.BlockType, 1, spirvbin.DecorationOffset, 64)
	b.Decorate(v.Block, spirvbin.DecorationDescriptor, 0)
	b.Decorate(v.Block, spirvbin.DecorationBinding, 0)
	b.Decorate(v.Position, spirvbin.DecorationLocation, 0)
	b.Decorate(v.Normal, spirvbin.DecorationLocation, 1)
	b.Decorate(v.VNormal, spirvbin.DecorationLocation, 0)
	b.Decorate(v.GLPosition, spirvbin.DecorationBuiltIn, spirvbin.BuiltInPosition)

	fn := b.Function(void, fnType)
	v.Main = fn.ID
	scale := fn.AccessChain(uniFloat, v.Block, one)
	fn.Load(v.Float, scale)
	pos := fn.Load(v.Vec4, v.Position)
	fn.Store(v.GLPosition, pos)
	n := fn.Load(v.Vec3, v.Normal)
	fn.Store(v.VNormal, n)
	fn.End()

	b.Name(v.Main, "main")
	b.EntryPoint(ModelVertex, v.Main, "main", v.Position, v.Normal, v.VNormal, v.GLPosition)

	v.Words = b.Words()
	return v
}

// Compute is a compute shader with a storage buffer, a push constant block
// and a workgroup size driven by specialization constants:
//
//	layout(local_size_x_id = 0, local_size_y_id = 1, local_size_z = 1) in;
//	layout(constant_id = 2) const bool use_scale = true;
//	buffer data { float values[]; };
//	layout(push_constant) uniform params { float scale; };
type Compute struct {
	Words []uint32

	Main          uint32
	SizeX         uint32
	SizeY         uint32
	UseScale      uint32
	WorkgroupSize uint32
	Buffer        uint32
	BufferType    uint32
	Push          uint32
	PushType      uint32
}

// NewCompute assembles the compute fixture.
func NewCompute() *Compute {
	b := NewBuilder()
	c := &Compute{}

	void := b.TypeVoid()
	fnType := b.TypeFunction(void)
	boolT := b.TypeBool()
	u32 := b.TypeInt(32, false)
	f32 := b.TypeFloat(32)
	uvec3 := b.TypeVector(u32, 3)

	c.SizeX = b.SpecConstant(u32, 8)
	c.SizeY = b.SpecConstant(u32, 4)
	oneU := b.Constant(u32, 1)
	c.WorkgroupSize = b.SpecConstantComposite(uvec3, c.SizeX, c.SizeY, oneU)
	c.UseScale = b.SpecConstantTrue(boolT)

	floats := b.TypeRuntimeArray(f32)
	c.BufferType = b.TypeStruct(floats)
	bufPtr := b.TypePointer(spirvbin.StorageUniform, c.BufferType)
	c.Buffer = b.Variable(bufPtr, spirvbin.StorageUniform)

	c.PushType = b.TypeStruct(f32)
	pushPtr := b.TypePointer(spirvbin.StoragePushConstant, c.PushType)
	c.Push = b.Variable(pushPtr, spirvbin.StoragePushConstant)

	b.Name(c.SizeX, "wg_x")
	b.Name(c.SizeY, "wg_y")
	b.Name(c.UseScale, "use_scale")
	b.Name(c.BufferType, "data")
	b.MemberName(c.BufferType, 0, "values")
	b.Name(c.PushType, "params")
	b.MemberName(c.PushType, 0, "scale")

	b.Decorate(c.SizeX, spirvbin.DecorationSpecID, 0)
	b.Decorate(c.SizeY, spirvbin.DecorationSpecID, 1)
	b.Decorate(c.UseScale, spirvbin.DecorationSpecID, 2)
	b.Decorate(c.WorkgroupSize, spirvbin.DecorationBuiltIn, spirvbin.BuiltInWorkgroupSize)
	b.Decorate(floats, spirvbin.DecorationArrayStride, 4)
	b.Decorate(c.BufferType, spirvbin.DecorationBufferBlock)
	b.MemberDecorate(c.BufferType, 0, spirvbin.DecorationOffset, 0)
	b.Decorate(c.Buffer, spirvbin.DecorationDescriptor, 0)
	b.Decorate(c.Buffer, spirvbin.DecorationBinding, 0)
	b.Decorate(c.PushType, spirvbin.DecorationBlock)
	b.MemberDecorate(c.PushType, 0, spirvbin.DecorationOffset, 0)

	fn := b.Function(void, fnType)
	c.Main = fn.ID
	fn.End()

	b.Name(c.Main, "main")
	b.EntryPoint(ModelCompute, c.Main, "main")
	b.ExecutionMode(c.Main, spirvbin.ExecutionModeLocalSize, 8, 4, 1)

	c.Words = b.Words()
	return c
}

// Fragment is a fragment shader sampling through a combined sampler and a
// separate image/sampler pair:
//
//	layout(set = 0, binding = 1) uniform sampler2D u_texture;
//	layout(set = 0, binding = 2) uniform texture2D u_image;
//	layout(set = 0, binding = 3) uniform sampler u_sampler;
//	layout(location = 0) in vec2 v_uv;
//	layout(location = 0) out vec4 frag_color;
type Fragment struct {
	Words []uint32

	Main      uint32
	Texture   uint32
	Image     uint32
	Sampler   uint32
	UV        uint32
	FragColor uint32
	Combined  uint32
}

// NewFragment assembles the fragment fixture.
func NewFragment() *Fragment {
	b := NewBuilder()
	f := &Fragment{}

	void := b.TypeVoid()
	fnType := b.TypeFunction(void)
	f32 := b.TypeFloat(32)
	vec2 := b.TypeVector(f32, 2)
	vec4 := b.TypeVector(f32, 4)
	img := b.TypeImage(f32, 1, 1)
	sampledImg := b.TypeSampledImage(img)
	sampler := b.TypeSampler()

	texPtr := b.TypePointer(spirvbin.StorageUniformConstant, sampledImg)
	imgPtr := b.TypePointer(spirvbin.StorageUniformConstant, img)
	smpPtr := b.TypePointer(spirvbin.StorageUniformConstant, sampler)
	inVec2 := b.TypePointer(spirvbin.StorageInput, vec2)
	outVec4 := b.TypePointer(spirvbin.StorageOutput, vec4)

	f.Texture = b.Variable(texPtr, spirvbin.StorageUniformConstant)
	f.Image = b.Variable(imgPtr, spirvbin.StorageUniformConstant)
	f.Sampler = b.Variable(smpPtr, spirvbin.StorageUniformConstant)
	f.UV = b.Variable(inVec2, spirvbin.StorageInput)
	f.FragColor = b.Variable(outVec4, spirvbin.StorageOutput)
	half := b.Constant(f32, math.Float32bits(0.5))
	gray := b.ConstantComposite(vec4, half, half, half, half)

	b.Name(f.Texture, "u_texture")
	b.Name(f.Image, "u_image")
	b.Name(f.Sampler, "u_sampler")
	b.Name(f.UV, "v_uv")
	b.Name(f.FragColor, "frag_color")

	for binding, id := range []uint32{f.Texture, f.Image, f.Sampler} {
		b.Decorate(id, spirvbin.DecorationDescriptor, 0)
		b.Decorate(id, spirvbin.DecorationBinding, uint32(binding+1))
	}
	b.Decorate(f.UV, spirvbin.DecorationLocation, 0)
	b.Decorate(f.FragColor, spirvbin.DecorationLocation, 0)

	fn := b.Function(void, fnType)
	f.Main = fn.ID
	i := fn.Load(img, f.Image)
	s := fn.Load(sampler, f.Sampler)
	f.Combined = fn.SampledImage(sampledImg, i, s)
	fn.Store(f.FragColor, gray)
	fn.End()

	b.Name(f.Main, "main")
	b.EntryPoint(ModelFragment, f.Main, "main", f.UV, f.FragColor)
	b.ExecutionMode(f.Main, 7) // OriginUpperLeft

	f.Words = b.Words()
	return f
}

// HeaderOnly is a valid header with no instructions and no entry points.
func HeaderOnly() []uint32 {
	return []uint32{spirvbin.Magic, spirvbin.Version1_0, 0, 1, 0}
}
