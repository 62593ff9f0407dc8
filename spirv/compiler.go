package spirv

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/registry"
	"github.com/wippyai/spirv-cross/transport"
	"go.uber.org/zap"
)

// Target selects the source language a compiler emits.
type Target uint8

const (
	TargetGLSL Target = iota
	TargetHLSL
	TargetMSL
)

func (t Target) String() string {
	switch t {
	case TargetGLSL:
		return "glsl"
	case TargetHLSL:
		return "hlsl"
	case TargetMSL:
		return "msl"
	}
	return "unknown"
}

// ParseTarget maps a target name.
func ParseTarget(name string) (Target, error) {
	switch name {
	case "glsl":
		return TargetGLSL, nil
	case "hlsl":
		return TargetHLSL, nil
	case "msl":
		return TargetMSL, nil
	}
	return 0, errors.InvalidEnum(errors.PhaseConfig, []string{"target"}, name, "Target")
}

// Call is one boundary call against a compiler handle. Temporary
// allocations go through s and are released when the call returns.
type Call func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error)

// Compiler owns one compiler handle of a Backend.
//
// A compiler is not safe for concurrent use. Any method called after Close
// panics.
type Compiler struct {
	b      *Backend
	handle spirvcross.Address
	target Target
	closed bool
}

// New constructs a compiler for target over m. On failure nothing stays
// allocated.
func New(b *Backend, target Target, m Module) (*Compiler, error) {
	var ctor func(compiler, ir abi.Address, size uint32) abi.Result
	switch target {
	case TargetGLSL:
		ctor = b.core.CompilerGLSLNew
	case TargetHLSL:
		ctor = b.core.CompilerHLSLNew
	case TargetMSL:
		ctor = b.core.CompilerMSLNew
	default:
		return nil, errors.InvalidEnum(errors.PhaseConstruct, []string{"target"}, uint8(target), "Target")
	}

	s := transport.NewScratch(b.t)
	defer s.Free()

	ir := s.Alloc(uint32(4 * m.Len()))
	if err := transport.WriteWords(b.t, ir, m.words); err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindUnhandled, err, "copy module words")
	}
	slot, err := s.Slot()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindUnhandled, err, "allocate handle slot")
	}

	if err := b.check(errors.PhaseConstruct, "compiler_"+target.String()+"_new", ctor(slot, ir, uint32(m.Len()))); err != nil {
		return nil, err
	}
	h, err := b.t.ReadPointer(slot)
	if err != nil || h == 0 {
		Logger().Warn("core returned no handle", zap.Error(err))
		return nil, errors.Unhandled(errors.PhaseConstruct, "compiler_"+target.String()+"_new")
	}

	c := &Compiler{b: b, handle: h, target: target}
	if err := b.table.Insert(h, target.String(), c); err != nil {
		if res := b.core.CompilerDelete(h); res != abi.Success {
			Logger().Warn("compiler_delete failed", zap.Uint64("handle", uint64(h)), zap.Stringer("result", res))
		}
		return nil, err
	}
	Logger().Debug("compiler constructed", zap.Stringer("target", target), zap.Uint64("handle", uint64(h)), zap.Int("words", m.Len()))
	return c, nil
}

// Target returns the compiler's target language.
func (c *Compiler) Target() Target { return c.target }

// Backend returns the backend the compiler was created on.
func (c *Compiler) Backend() *Backend { return c.b }

// Handle returns the raw handle for target adapters.
func (c *Compiler) Handle() spirvcross.Address {
	c.live()
	return c.handle
}

// State returns the lifecycle state.
func (c *Compiler) State() registry.State {
	if c.closed {
		return registry.StateReleased
	}
	return c.b.table.State(c.handle)
}

func (c *Compiler) live() {
	if c.closed {
		panic(errors.Precondition(errors.PhaseRelease, "compiler used after Close"))
	}
}

// Invoke runs fn against the handle and applies the result protocol.
func (c *Compiler) Invoke(phase errors.Phase, op string, fn Call) error {
	c.live()
	s := transport.NewScratch(c.b.t)
	defer s.Free()

	res, err := fn(c.handle, s)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) && e.Kind == errors.KindUnhandled {
			return err
		}
		return errors.Wrap(phase, errors.KindUnhandled, err, op)
	}
	return c.b.check(phase, op, res)
}

// SetRawOptions runs an options call. Options can change any number of
// times until the first compile.
func (c *Compiler) SetRawOptions(fn Call) error {
	c.live()
	if c.State() == registry.StateCompiled {
		return errors.Precondition(errors.PhaseOptions, "options cannot change after compile")
	}
	if err := c.Invoke(errors.PhaseOptions, "set_options", fn); err != nil {
		return err
	}
	return c.b.table.Transition(c.handle, registry.StateOptionsSet)
}

// Compile emits target source with the current options.
func (c *Compiler) Compile() (string, error) {
	return c.CompileWith(func(h, shader spirvcross.Address, _ *transport.Scratch) abi.Result {
		return c.b.core.CompilerCompile(h, shader)
	})
}

// CompileWith runs a compile-shaped call that writes a char* to shader.
func (c *Compiler) CompileWith(fn func(h, shader spirvcross.Address, s *transport.Scratch) abi.Result) (string, error) {
	var src string
	err := c.Invoke(errors.PhaseCompile, "compile", func(h spirvcross.Address, s *transport.Scratch) (abi.Result, error) {
		slot, err := s.Slot()
		if err != nil {
			return 0, errors.Wrap(errors.PhaseCompile, errors.KindUnhandled, err, "allocate shader slot")
		}
		res := fn(h, slot, s)
		if res != abi.Success {
			return res, nil
		}
		src, err = c.b.takeString(slot)
		if err != nil {
			return 0, errors.Wrap(errors.PhaseCompile, errors.KindUnhandled, err, "read compiled source")
		}
		return res, nil
	})
	if err != nil {
		return "", err
	}
	if err := c.b.table.Transition(c.handle, registry.StateCompiled); err != nil {
		return "", err
	}
	return src, nil
}

// Close deletes the handle. It is safe to call more than once. A core that
// refuses to delete a live handle leaves the process in an unknown state
// and panics.
func (c *Compiler) Close() error {
	if c.closed {
		return nil
	}
	if res := c.b.core.CompilerDelete(c.handle); res != abi.Success {
		panic(errors.New(errors.PhaseRelease, errors.KindUnhandled).
			Value(uint64(c.handle)).
			Detail("compiler_delete returned %s", res).
			Build())
	}
	c.closed = true
	if err := c.b.table.Transition(c.handle, registry.StateReleased); err != nil {
		Logger().Warn("release transition failed", zap.Uint64("handle", uint64(c.handle)), zap.Error(err))
	}
	if _, ok := c.b.table.Remove(c.handle); !ok {
		Logger().Warn("compiler not registered", zap.Uint64("handle", uint64(c.handle)))
	}
	return nil
}

// Release implements registry.Releaser.
func (c *Compiler) Release() {
	if err := c.Close(); err != nil {
		Logger().Warn("compiler close failed", zap.Uint64("handle", uint64(c.handle)), zap.Error(err))
	}
}
