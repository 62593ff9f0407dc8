// Package msl compiles SPIR-V to the Metal Shading Language.
//
// Vertex attribute and resource binding overrides are plain maps on
// Options. SetOptions keeps a private copy; Compile lays that copy out as
// the override arrays the core reads.
package msl

import (
	"slices"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
	"go.uber.org/zap"
)

// Compiler is an MSL compiler handle.
type Compiler struct {
	*spirv.Compiler

	vertexAttrs      map[VertexAttributeLocation]VertexAttribute
	resourceBindings map[ResourceBindingLocation]ResourceBinding

	usedAttrs    map[VertexAttributeLocation]bool
	usedBindings map[ResourceBindingLocation]bool
}

// New constructs an MSL compiler for m on b.
func New(b *spirv.Backend, m spirv.Module) (*Compiler, error) {
	c, err := spirv.New(b, spirv.TargetMSL, m)
	if err != nil {
		return nil, err
	}
	return &Compiler{Compiler: c}, nil
}

// SetOptions replaces the compiler options and the override maps. Later
// changes to the caller's maps do not affect the compiler.
func (c *Compiler) SetOptions(o Options) error {
	if err := o.validate(); err != nil {
		return err
	}
	o = o.clone()
	err := c.SetRawOptions(func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		l := c.Layouts().MSLOptions
		addr := s.Alloc(l.Size)
		if err := o.encode(abi.NewRecord(c.Backend().Transport(), l, addr)); err != nil {
			return 0, err
		}
		return c.Backend().Core().CompilerMSLSetOptions(h, addr), nil
	})
	if err != nil {
		return err
	}
	c.vertexAttrs, c.resourceBindings = o.VertexAttributeOverrides, o.ResourceBindingOverrides
	return nil
}

// Compile emits MSL with the overrides of the last SetOptions.
func (c *Compiler) Compile() (string, error) {
	return c.CompileWith(func(h, shader spirvcross.Address, s *transport.Scratch) abi.Result {
		attrs, nAttrs, attrLocs, err := c.layoutVertexAttrs(s)
		if err != nil {
			Logger().Warn("cannot lay out vertex attribute overrides", zap.Error(err))
			return abi.Unhandled
		}
		bindings, nBindings, bindingLocs, err := c.layoutResourceBindings(s)
		if err != nil {
			Logger().Warn("cannot lay out resource binding overrides", zap.Error(err))
			return abi.Unhandled
		}
		res := c.Backend().Core().CompilerMSLCompile(h, shader, attrs, nAttrs, bindings, nBindings)
		if res == abi.Success {
			c.readUsage(attrs, attrLocs, bindings, bindingLocs)
		}
		return res
	})
}

func (c *Compiler) layoutVertexAttrs(s *transport.Scratch) (spirvcross.Address, uint32, []VertexAttributeLocation, error) {
	if len(c.vertexAttrs) == 0 {
		return 0, 0, nil, nil
	}
	locs := make([]VertexAttributeLocation, 0, len(c.vertexAttrs))
	for loc := range c.vertexAttrs {
		locs = append(locs, loc)
	}
	slices.Sort(locs)

	t := c.Backend().Transport()
	l := c.Layouts().MSLVertexAttr
	base, err := s.Zeroed(l.Size * uint32(len(locs)))
	if err != nil {
		return 0, 0, nil, err
	}
	for i, loc := range locs {
		a := c.vertexAttrs[loc]
		r := abi.Element(t, l, base, i).
			SetU32("location", uint32(loc)).
			SetU32("msl_buffer", a.BufferID).
			SetU32("msl_offset", a.Offset).
			SetU32("msl_stride", a.Stride).
			SetBool("per_instance", a.Step == StepInstance).
			SetU32("format", uint32(a.Format)).
			SetBool("used_by_shader", a.ForceUsed)
		if err := r.Err(); err != nil {
			return 0, 0, nil, err
		}
	}
	return base, uint32(len(locs)), locs, nil
}

func (c *Compiler) layoutResourceBindings(s *transport.Scratch) (spirvcross.Address, uint32, []ResourceBindingLocation, error) {
	if len(c.resourceBindings) == 0 {
		return 0, 0, nil, nil
	}
	locs := make([]ResourceBindingLocation, 0, len(c.resourceBindings))
	for loc := range c.resourceBindings {
		locs = append(locs, loc)
	}
	slices.SortFunc(locs, ResourceBindingLocation.compare)

	t := c.Backend().Transport()
	l := c.Layouts().MSLResourceBinding
	base, err := s.Zeroed(l.Size * uint32(len(locs)))
	if err != nil {
		return 0, 0, nil, err
	}
	for i, loc := range locs {
		b := c.resourceBindings[loc]
		r := abi.Element(t, l, base, i).
			SetU32("stage", loc.Stage.Raw()).
			SetU32("desc_set", loc.DescSet).
			SetU32("binding", loc.Binding).
			SetU32("msl_buffer", b.BufferID).
			SetU32("msl_texture", b.TextureID).
			SetU32("msl_sampler", b.SamplerID).
			SetBool("used_by_shader", b.ForceUsed)
		if err := r.Err(); err != nil {
			return 0, 0, nil, err
		}
	}
	return base, uint32(len(locs)), locs, nil
}

// readUsage records which overrides the core marked as used.
func (c *Compiler) readUsage(attrs spirvcross.Address, attrLocs []VertexAttributeLocation, bindings spirvcross.Address, bindingLocs []ResourceBindingLocation) {
	t := c.Backend().Transport()
	l := c.Layouts()

	c.usedAttrs = make(map[VertexAttributeLocation]bool, len(attrLocs))
	for i, loc := range attrLocs {
		r := abi.Element(t, l.MSLVertexAttr, attrs, i)
		if used := r.Bool("used_by_shader"); r.Err() == nil {
			c.usedAttrs[loc] = used
		}
	}
	c.usedBindings = make(map[ResourceBindingLocation]bool, len(bindingLocs))
	for i, loc := range bindingLocs {
		r := abi.Element(t, l.MSLResourceBinding, bindings, i)
		if used := r.Bool("used_by_shader"); r.Err() == nil {
			c.usedBindings[loc] = used
		}
	}
}

// IsVertexAttributeUsed reports whether the last successful Compile used
// the override at loc.
func (c *Compiler) IsVertexAttributeUsed(loc VertexAttributeLocation) bool {
	return c.usedAttrs[loc]
}

// IsResourceBindingUsed reports whether the last successful Compile used
// the override at loc.
func (c *Compiler) IsResourceBindingUsed(loc ResourceBindingLocation) bool {
	return c.usedBindings[loc]
}

// IsRasterizationEnabled reports whether the vertex stage writes outputs
// the rasterizer consumes. Before Compile it reflects the options.
func (c *Compiler) IsRasterizationEnabled() (bool, error) {
	disabled, err := c.QueryBool("msl_get_is_rasterization_disabled", func(h, out spirvcross.Address) abi.Result {
		return c.Backend().Core().CompilerMSLGetIsRasterizationDisabled(h, out)
	})
	if err != nil {
		return false, err
	}
	return !disabled, nil
}
