// Package hlsl compiles SPIR-V to HLSL.
package hlsl

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

// Compiler is an HLSL compiler handle.
type Compiler struct {
	*spirv.Compiler
}

// New constructs an HLSL compiler for m on b.
func New(b *spirv.Backend, m spirv.Module) (*Compiler, error) {
	c, err := spirv.New(b, spirv.TargetHLSL, m)
	if err != nil {
		return nil, err
	}
	return &Compiler{Compiler: c}, nil
}

// SetOptions replaces the compiler options. It fails once the compiler has
// compiled.
func (c *Compiler) SetOptions(o Options) error {
	return c.SetRawOptions(func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		l := c.Layouts().HLSLOptions
		addr := s.Alloc(l.Size)
		if err := o.encode(abi.NewRecord(c.Backend().Transport(), l, addr)); err != nil {
			return 0, err
		}
		return c.Backend().Core().CompilerHLSLSetOptions(h, addr), nil
	})
}
