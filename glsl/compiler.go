// Package glsl compiles SPIR-V to GLSL.
//
// A Compiler embeds *spirv.Compiler, so the whole introspection surface is
// available alongside the GLSL-only calls.
package glsl

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

// Compiler is a GLSL compiler handle.
type Compiler struct {
	*spirv.Compiler
	combinedBuilt bool
}

// New constructs a GLSL compiler for m on b.
func New(b *spirv.Backend, m spirv.Module) (*Compiler, error) {
	c, err := spirv.New(b, spirv.TargetGLSL, m)
	if err != nil {
		return nil, err
	}
	return &Compiler{Compiler: c}, nil
}

func (c *Compiler) core() abi.Core {
	return c.Backend().Core()
}

// SetOptions replaces the compiler options. It fails once the compiler has
// compiled.
func (c *Compiler) SetOptions(o Options) error {
	if err := o.validate(); err != nil {
		return err
	}
	return c.SetRawOptions(func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		l := c.Layouts().GLSLOptions
		addr := s.Alloc(l.Size)
		if err := o.encode(abi.NewRecord(c.Backend().Transport(), l, addr)); err != nil {
			return 0, err
		}
		return c.core().CompilerGLSLSetOptions(h, addr), nil
	})
}

// Compile emits GLSL. Combined image samplers are built first, once per
// compiler.
func (c *Compiler) Compile() (string, error) {
	if err := c.BuildCombinedImageSamplers(); err != nil {
		return "", err
	}
	return c.Compiler.Compile()
}

// BuildCombinedImageSamplers synthesizes a combined sampler for every
// separate image and sampler pair the shader uses. Later calls are no-ops.
func (c *Compiler) BuildCombinedImageSamplers() error {
	if c.combinedBuilt {
		return nil
	}
	err := c.Invoke(errors.PhaseQuery, "glsl_build_combined_image_samplers", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.core().CompilerGLSLBuildCombinedImageSamplers(h), nil
	})
	if err != nil {
		return err
	}
	c.combinedBuilt = true
	return nil
}

// GetCombinedImageSamplers builds the combined samplers if needed and lists
// them.
func (c *Compiler) GetCombinedImageSamplers() ([]spirv.CombinedImageSampler, error) {
	if err := c.BuildCombinedImageSamplers(); err != nil {
		return nil, err
	}
	var out []spirv.CombinedImageSampler
	err := c.QueryArray("glsl_get_combined_image_samplers", c.Layouts().CombinedImageSampler,
		func(h, data, count spirvcross.Address) abi.Result {
			return c.core().CompilerGLSLGetCombinedImageSamplers(h, data, count)
		},
		func(r *abi.Record) error {
			out = append(out, spirv.CombinedImageSampler{
				CombinedID: r.U32("combined_id"),
				ImageID:    r.U32("image_id"),
				SamplerID:  r.U32("sampler_id"),
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddHeaderLine adds a line emitted right after the #version directive.
func (c *Compiler) AddHeaderLine(line string) error {
	return c.Invoke(errors.PhaseOptions, "glsl_add_header_line", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		str, err := s.CString(line)
		if err != nil {
			return 0, err
		}
		return c.core().CompilerGLSLAddHeaderLine(h, str), nil
	})
}

// FlattenBufferBlock emits the buffer block id as a plain uniform array.
func (c *Compiler) FlattenBufferBlock(id uint32) error {
	return c.Invoke(errors.PhaseOptions, "glsl_flatten_buffer_block", func(h spirvcross.Address, _ *transport.Scratch) (abi.Result, error) {
		return c.core().CompilerGLSLFlattenBufferBlock(h, id), nil
	})
}
