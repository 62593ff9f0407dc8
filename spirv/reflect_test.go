package spirv_test

import (
	"bytes"
	"reflect"
	"testing"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/internal/spvtest"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

func TestShaderResources_Vertex(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)

		res, err := c.GetShaderResources()
		if err != nil {
			t.Fatal(err)
		}
		if len(res.UniformBuffers) != 1 || res.UniformBuffers[0].Name != "uniform_buffer_object" {
			t.Fatalf("uniform buffers = %+v", res.UniformBuffers)
		}
		ubo := res.UniformBuffers[0]
		if ubo.ID != v.Block || ubo.BaseTypeID != v.BlockType {
			t.Errorf("ubo = %+v", ubo)
		}
		if len(res.StageInputs) != 2 {
			t.Errorf("stage inputs = %+v", res.StageInputs)
		}
		if len(res.StageOutputs) != 1 || res.StageOutputs[0].Name != "v_normal" {
			t.Errorf("stage outputs = %+v", res.StageOutputs)
		}

		empty := map[string][]spirv.Resource{
			"storage_buffers":       res.StorageBuffers,
			"subpass_inputs":        res.SubpassInputs,
			"storage_images":        res.StorageImages,
			"sampled_images":        res.SampledImages,
			"atomic_counters":       res.AtomicCounters,
			"push_constant_buffers": res.PushConstantBuffers,
			"separate_images":       res.SeparateImages,
			"separate_samplers":     res.SeparateSamplers,
		}
		for name, list := range empty {
			if len(list) != 0 {
				t.Errorf("%s = %+v, want empty", name, list)
			}
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

func TestShaderResources_Fragment(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		c := e.compiler(t, spirv.TargetHLSL, spvtest.NewFragment().Words)
		defer c.Close()

		res, err := c.GetShaderResources()
		if err != nil {
			t.Fatal(err)
		}
		if len(res.SampledImages) != 1 || res.SampledImages[0].Name != "u_texture" {
			t.Errorf("sampled images = %+v", res.SampledImages)
		}
		if len(res.SeparateImages) != 1 || len(res.SeparateSamplers) != 1 {
			t.Errorf("separate = %+v / %+v", res.SeparateImages, res.SeparateSamplers)
		}
	})
}

func TestDecorationRoundTrip(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetMSL, v.Words)
		defer c.Close()

		for _, id := range []uint32{v.Block, v.Position, v.BlockType} {
			for _, d := range spirv.Decorations() {
				want := uint32(d) + 7
				if err := c.SetDecoration(id, d, want); err != nil {
					t.Fatalf("SetDecoration(%d, %s): %v", id, d, err)
				}
				got, err := c.GetDecoration(id, d)
				if err != nil {
					t.Fatalf("GetDecoration(%d, %s): %v", id, d, err)
				}
				if got != want {
					t.Errorf("%%%d %s = %d, want %d", id, d, got, want)
				}
			}
		}

		if err := c.UnsetDecoration(v.Position, spirv.DecorationLocation); err != nil {
			t.Fatal(err)
		}
		if got, _ := c.GetDecoration(v.Position, spirv.DecorationLocation); got != 0 {
			t.Errorf("unset location = %d", got)
		}
	})
}

func TestDecorations_FromFixture(t *testing.T) {
	v := spvtest.NewVertex()
	e := newEnv(t, spvtest.NewDirect(t))
	c := e.compiler(t, spirv.TargetGLSL, v.Words)
	defer c.Close()

	tests := []struct {
		id   uint32
		d    spirv.Decoration
		want uint32
	}{
		{v.Block, spirv.DecorationDescriptorSet, 0},
		{v.Block, spirv.DecorationBinding, 0},
		{v.Normal, spirv.DecorationLocation, 1},
		{v.GLPosition, spirv.DecorationBuiltIn, 0},
	}
	for _, tt := range tests {
		got, err := c.GetDecoration(tt.id, tt.d)
		if err != nil {
			t.Fatalf("%%%d %s: %v", tt.id, tt.d, err)
		}
		if got != tt.want {
			t.Errorf("%%%d %s = %d, want %d", tt.id, tt.d, got, tt.want)
		}
	}

	offset, err := c.GetMemberDecoration(v.BlockType, v.ScaleMember, spirv.DecorationOffset)
	if err != nil || offset != 64 {
		t.Errorf("member offset = %d, %v", offset, err)
	}
	if err := c.SetMemberDecoration(v.BlockType, v.ScaleMember, spirv.DecorationOffset, 80); err != nil {
		t.Fatal(err)
	}
	if offset, _ := c.GetMemberDecoration(v.BlockType, v.ScaleMember, spirv.DecorationOffset); offset != 80 {
		t.Errorf("member offset after set = %d", offset)
	}
}

func TestGetEntryPoints_Idempotent(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		c := e.compiler(t, spirv.TargetGLSL, spvtest.NewCompute().Words)
		defer c.Close()

		first, err := c.GetEntryPoints()
		if err != nil {
			t.Fatal(err)
		}
		second, err := c.GetEntryPoints()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("entry points changed: %+v vs %+v", first, second)
		}
		want := []spirv.EntryPoint{{
			Name:           "main",
			ExecutionModel: spirv.GlCompute,
			WorkgroupSize:  spirv.WorkgroupSize{X: 8, Y: 4, Z: 1},
		}}
		if !reflect.DeepEqual(first, want) {
			t.Errorf("entry points = %+v", first)
		}
	})
}

func TestNames(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)

		if name, err := c.GetName(v.Position); err != nil || name != "a_position" {
			t.Errorf("name = %q, %v", name, err)
		}
		if err := c.SetName(v.Position, "in_pos"); err != nil {
			t.Fatal(err)
		}
		if name, _ := c.GetName(v.Position); name != "in_pos" {
			t.Errorf("renamed = %q", name)
		}
		if name, err := c.GetName(v.Block); err != nil || name != "" {
			t.Errorf("unnamed block = %q, %v", name, err)
		}
		if name, err := c.GetMemberName(v.BlockType, 0); err != nil || name != "u_model_view_projection" {
			t.Errorf("member name = %q, %v", name, err)
		}
		if _, err := c.GetName(0xFFFF); !errors.Is(err, errors.ErrCompilation) {
			t.Errorf("out of range id: %v", err)
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

func TestInvalidUTF8Name(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)

		if err := c.SetName(v.Position, "\xff\xfe"); err != nil {
			t.Fatal(err)
		}
		if _, err := c.GetName(v.Position); !errors.Is(err, errors.ErrUnhandled) {
			t.Errorf("GetName: %v", err)
		}
		if _, err := c.GetShaderResources(); !errors.Is(err, errors.ErrUnhandled) {
			t.Errorf("GetShaderResources: %v", err)
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

func TestGetType(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)

		typ, err := c.GetType(v.BlockType)
		if err != nil {
			t.Fatal(err)
		}
		if typ.BaseType != spirv.BaseTypeStruct || !reflect.DeepEqual(typ.MemberTypes, []uint32{v.Mat4, v.Float}) {
			t.Errorf("block type = %+v", typ)
		}
		if len(typ.Array) != 0 {
			t.Errorf("array = %v", typ.Array)
		}

		typ, err = c.GetType(v.Vec4)
		if err != nil || typ.BaseType != spirv.BaseTypeFloat {
			t.Errorf("vec4 = %+v, %v", typ, err)
		}

		size, err := c.GetDeclaredStructSize(v.BlockType)
		if err != nil || size != 68 {
			t.Errorf("struct size = %d, %v", size, err)
		}
		size, err = c.GetDeclaredStructMemberSize(v.BlockType, 0)
		if err != nil || size != 64 {
			t.Errorf("member size = %d, %v", size, err)
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

func TestActiveBufferRanges(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)
		defer c.Close()

		ranges, err := c.GetActiveBufferRanges(v.Block)
		if err != nil {
			t.Fatal(err)
		}
		want := []spirv.BufferRange{{Index: 1, Offset: 64, Range: 4}}
		if !reflect.DeepEqual(ranges, want) {
			t.Errorf("ranges = %+v", ranges)
		}
	})
}

func TestSpecializationConstants(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		comp := spvtest.NewCompute()
		c := e.compiler(t, spirv.TargetGLSL, comp.Words)

		consts, err := c.GetSpecializationConstants()
		if err != nil {
			t.Fatal(err)
		}
		want := []spirv.SpecializationConstant{
			{ID: comp.SizeX, ConstantID: 0},
			{ID: comp.SizeY, ConstantID: 1},
			{ID: comp.UseScale, ConstantID: 2},
		}
		if !reflect.DeepEqual(consts, want) {
			t.Errorf("constants = %+v", consts)
		}

		wg, err := c.GetWorkGroupSizeSpecializationConstants()
		if err != nil {
			t.Fatal(err)
		}
		if wg.X != want[0] || wg.Y != want[1] || wg.Z != (spirv.SpecializationConstant{}) {
			t.Errorf("workgroup constants = %+v", wg)
		}

		if err := c.SetScalarConstant(comp.SizeX, 16); err != nil {
			t.Fatal(err)
		}
		eps, err := c.GetEntryPoints()
		if err != nil {
			t.Fatal(err)
		}
		if eps[0].WorkgroupSize.X != 16 {
			t.Errorf("workgroup size = %+v", eps[0].WorkgroupSize)
		}
		if err := c.SetScalarConstant(comp.WorkgroupSize, 1); err == nil {
			t.Error("composite constant accepted a scalar")
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

func TestRenameInterfaceVariable(t *testing.T) {
	eachTransport(t, func(t *testing.T, e *env) {
		v := spvtest.NewVertex()
		c := e.compiler(t, spirv.TargetGLSL, v.Words)

		res, err := c.GetShaderResources()
		if err != nil {
			t.Fatal(err)
		}
		if err := c.RenameInterfaceVariable(res.StageOutputs, 0, "out_normal"); err != nil {
			t.Fatal(err)
		}
		if name, _ := c.GetName(v.VNormal); name != "out_normal" {
			t.Errorf("renamed = %q", name)
		}
		if err := c.RenameInterfaceVariable(nil, 0, "nothing"); err != nil {
			t.Errorf("empty list: %v", err)
		}

		c.Close()
		e.assertNoLeak(t)
	})
}

type span struct {
	addr spirvcross.Address
	size uint32
}

func (s span) contains(a spirvcross.Address) bool {
	return a >= s.addr && a < s.addr+spirvcross.Address(s.size)
}

// poisonCore fails the wrapped calls after filling their out parameters
// with garbage, written behind the probe's back.
type poisonCore struct {
	*refcore.Core
	inner  spirvcross.Transport
	result abi.Result
	spans  []span
}

func (p *poisonCore) poison(addr spirvcross.Address, size uint32) abi.Result {
	p.inner.Write(addr, bytes.Repeat([]byte{0xAB}, int(size)))
	p.spans = append(p.spans, span{addr, size})
	return p.result
}

func (p *poisonCore) CompilerGetDecoration(compiler, result abi.Address, id, decoration uint32) abi.Result {
	return p.poison(result, 4)
}

func (p *poisonCore) CompilerGetName(compiler abi.Address, id uint32, name abi.Address) abi.Result {
	return p.poison(name, p.inner.PointerSize())
}

func (p *poisonCore) CompilerGetEntryPoints(compiler, entryPoints, size abi.Address) abi.Result {
	p.poison(entryPoints, p.inner.PointerSize())
	return p.poison(size, p.inner.PointerSize())
}

func (p *poisonCore) CompilerGetShaderResources(compiler, resources abi.Address) abi.Result {
	return p.poison(resources, abi.LayoutsFor(p.inner.PointerSize()).ShaderResources.Size)
}

func (p *poisonCore) CompilerGetType(compiler abi.Address, id uint32, spirvType abi.Address) abi.Result {
	return p.poison(spirvType, p.inner.PointerSize())
}

func (p *poisonCore) CompilerCompile(compiler, shader abi.Address) abi.Result {
	return p.poison(shader, p.inner.PointerSize())
}

func TestFailedCallsLeaveOutParamsUnread(t *testing.T) {
	ops := map[string]func(c *spirv.Compiler) error{
		"get_decoration": func(c *spirv.Compiler) error {
			_, err := c.GetDecoration(1, spirv.DecorationLocation)
			return err
		},
		"get_name": func(c *spirv.Compiler) error {
			_, err := c.GetName(1)
			return err
		},
		"get_entry_points": func(c *spirv.Compiler) error {
			_, err := c.GetEntryPoints()
			return err
		},
		"get_shader_resources": func(c *spirv.Compiler) error {
			_, err := c.GetShaderResources()
			return err
		},
		"get_type": func(c *spirv.Compiler) error {
			_, err := c.GetType(1)
			return err
		},
		"compile": func(c *spirv.Compiler) error {
			_, err := c.Compile()
			return err
		},
	}

	for _, result := range []abi.Result{abi.Unhandled, abi.CompilationError} {
		for _, nt := range spvtest.Transports(t) {
			t.Run(result.String()+"/"+nt.Name, func(t *testing.T) {
				probe := transport.NewProbe(nt.Transport)
				core := &poisonCore{Core: refcore.New(probe), inner: nt.Transport, result: result}
				b := spirv.NewBackend(core, probe)
				c, err := spirv.New(b, spirv.TargetGLSL, spirv.ModuleFromWords(spvtest.NewVertex().Words))
				if err != nil {
					t.Fatal(err)
				}

				for name, op := range ops {
					core.spans = core.spans[:0]
					probe.Reset()

					err := op(c)
					if err == nil {
						t.Fatalf("%s: expected an error", name)
					}
					if result == abi.Unhandled && !errors.Is(err, errors.ErrUnhandled) {
						t.Errorf("%s: err = %v, want unhandled", name, err)
					}
					for _, addr := range probe.ReadAddresses() {
						for _, s := range core.spans {
							if s.contains(addr) {
								t.Errorf("%s: read poisoned out parameter at %#x", name, uint64(addr))
							}
						}
					}
				}

				c.Close()
				if probe.Live() != 0 {
					t.Errorf("probe reports %d live allocations", probe.Live())
				}
			})
		}
	}
}

// oversizedCore answers get_shader_resources truthfully, then claims a
// huge storage buffer count.
type oversizedCore struct {
	*refcore.Core
	inner spirvcross.Transport
}

func (o *oversizedCore) CompilerGetShaderResources(compiler, resources abi.Address) abi.Result {
	res := o.Core.CompilerGetShaderResources(compiler, resources)
	if res == abi.Success {
		l := abi.LayoutsFor(o.inner.PointerSize()).ShaderResources
		abi.NewRecord(o.inner, l, resources).Sub("storage_buffers").SetSize("num", 1<<30)
	}
	return res
}

func TestShaderResources_OversizedCountIsUnhandled(t *testing.T) {
	for _, nt := range spvtest.Transports(t) {
		t.Run(nt.Name, func(t *testing.T) {
			probe := transport.NewProbe(nt.Transport)
			inner := refcore.New(probe)
			b := spirv.NewBackend(&oversizedCore{Core: inner, inner: nt.Transport}, probe)
			c, err := spirv.New(b, spirv.TargetGLSL, spirv.ModuleFromWords(spvtest.NewVertex().Words))
			if err != nil {
				t.Fatal(err)
			}

			if _, err := c.GetShaderResources(); !errors.Is(err, errors.ErrUnhandled) {
				t.Errorf("err = %v, want unhandled", err)
			}

			c.Close()
			if probe.Live() != 0 {
				t.Errorf("probe reports %d live allocations", probe.Live())
			}
			if n := inner.Outstanding(); n != 0 {
				t.Errorf("core reports %d buffers not returned", n)
			}
		})
	}
}
