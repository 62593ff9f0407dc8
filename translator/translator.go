// Package translator wires a configured compiler core, the target
// adapters and the compile cache into one entry point.
package translator

import (
	"context"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/spirv-cross/cache"
	"github.com/wippyai/spirv-cross/config"
	"github.com/wippyai/spirv-cross/engine"
	"github.com/wippyai/spirv-cross/errors"
	"github.com/wippyai/spirv-cross/glsl"
	"github.com/wippyai/spirv-cross/hlsl"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/native"
	"github.com/wippyai/spirv-cross/profile"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/transport"
)

// Translator owns a backend for the lifetime of a session. It is not safe
// for concurrent use.
type Translator struct {
	backend *spirv.Backend
	store   *cache.Store
	closers []func() error
}

// New starts the core cfg selects and opens the cache if enabled.
func New(ctx context.Context, cfg *config.Config) (*Translator, error) {
	t := &Translator{}
	var err error

	switch cfg.Backend {
	case config.BackendGo:
		d := transport.NewDirect()
		t.closers = append(t.closers, d.Close)
		t.backend = spirv.NewBackend(refcore.New(d), d)

	case config.BackendWasm:
		err = t.startWasm(ctx, cfg.Wasm)

	case config.BackendNative:
		var lib *native.Library
		if lib, err = native.Open(cfg.Native.Library); err == nil {
			t.closers = append(t.closers, lib.Close)
			t.backend = spirv.NewBackend(lib.Core(), lib.Transport())
		}

	default:
		err = errors.InvalidEnum(errors.PhaseConfig, []string{"backend"}, cfg.Backend, "backend")
	}
	if err != nil {
		t.Close()
		return nil, err
	}

	if cfg.Cache.Enabled {
		if t.store, err = cache.Open(cfg.Cache.Path); err != nil {
			t.Close()
			return nil, err
		}
	}
	Logger().Debug("translator ready", zap.String("backend", cfg.Backend), zap.Bool("cache", t.store != nil))
	return t, nil
}

func (t *Translator) startWasm(ctx context.Context, wc config.WasmConfig) error {
	wasm, err := os.ReadFile(wc.Path)
	if err != nil {
		return errors.Load("read "+wc.Path, err)
	}
	eng, err := engine.New(ctx, &engine.Config{MemoryLimitPages: wc.MemoryLimitPages, Stderr: os.Stderr})
	if err != nil {
		return err
	}
	t.closers = append(t.closers, func() error { return eng.Close(context.Background()) })

	inst, err := eng.Load(ctx, wasm, engine.WithName("spirv_cross"))
	if err != nil {
		return err
	}
	t.backend = spirv.NewBackend(inst.Core(), inst.Transport())
	return nil
}

// Backend exposes the backend for direct compiler use.
func (t *Translator) Backend() *spirv.Backend {
	return t.backend
}

// Cache returns the compile cache, or nil when disabled.
func (t *Translator) Cache() *cache.Store {
	return t.store
}

// Close releases every live compiler, the core and the cache.
func (t *Translator) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if t.backend != nil {
		keep(t.backend.Close())
		t.backend = nil
	}
	if t.store != nil {
		keep(t.store.Close())
		t.store = nil
	}
	for _, c := range slices.Backward(t.closers) {
		keep(c())
	}
	t.closers = nil
	return first
}

// Result is one translated module.
type Result struct {
	Target spirv.Target
	Source string
	// EntryPoint is the cleansed name of the profile's entry point, empty
	// when the profile names none.
	EntryPoint string
	Cached     bool
}

// Translate compiles m as p describes, consulting the cache first.
func (t *Translator) Translate(ctx context.Context, m spirv.Module, p profile.Profile) (*Result, error) {
	target, err := p.ParseTarget()
	if err != nil {
		return nil, err
	}

	var key string
	if t.store != nil {
		fp, err := p.Fingerprint()
		if err != nil {
			return nil, err
		}
		key = cache.Key(target.String(), m.Words(), fp)
		e, ok, err := t.store.Get(ctx, key)
		if err != nil {
			Logger().Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			return &Result{Target: target, Source: e.Source, EntryPoint: e.EntryPoint, Cached: true}, nil
		}
	}

	res, err := t.compile(target, m, p)
	if err != nil {
		return nil, err
	}

	if t.store != nil {
		e := cache.Entry{Key: key, Target: target.String(), EntryPoint: res.EntryPoint, Source: res.Source}
		if err := t.store.Put(ctx, e); err != nil {
			Logger().Warn("cache store failed", zap.Error(err))
		}
	}
	return res, nil
}

// targetCompiler is what every adapter shares once its options are applied.
type targetCompiler interface {
	Compile() (string, error)
	GetEntryPoints() ([]spirv.EntryPoint, error)
	GetCleansedEntryPointName(name string, model spirv.ExecutionModel) (string, error)
	Close() error
}

func (t *Translator) compile(tgt spirv.Target, m spirv.Module, p profile.Profile) (*Result, error) {
	c, err := t.newTarget(tgt, m, p)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	src, err := c.Compile()
	if err != nil {
		return nil, err
	}
	res := &Result{Target: tgt, Source: src}
	if p.EntryPoint != "" {
		if res.EntryPoint, err = cleansedName(c, p.EntryPoint); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (t *Translator) newTarget(tgt spirv.Target, m spirv.Module, p profile.Profile) (targetCompiler, error) {
	switch tgt {
	case spirv.TargetGLSL:
		c, err := glsl.New(t.backend, m)
		if err != nil {
			return nil, err
		}
		if err := applyGLSL(c, p.GLSL); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil

	case spirv.TargetHLSL:
		c, err := hlsl.New(t.backend, m)
		if err != nil {
			return nil, err
		}
		if err := c.SetOptions(p.HLSL.Options); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil

	case spirv.TargetMSL:
		o, err := p.MSL.Build()
		if err != nil {
			return nil, err
		}
		c, err := msl.New(t.backend, m)
		if err != nil {
			return nil, err
		}
		if err := c.SetOptions(o); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}
	return nil, errors.InvalidEnum(errors.PhaseConfig, []string{"target"}, uint8(tgt), "Target")
}

func applyGLSL(c *glsl.Compiler, gp profile.GLSLProfile) error {
	if err := c.SetOptions(gp.Options); err != nil {
		return err
	}
	for _, line := range gp.HeaderLines {
		if err := c.AddHeaderLine(line); err != nil {
			return err
		}
	}
	for _, id := range gp.FlattenBlocks {
		if err := c.FlattenBufferBlock(id); err != nil {
			return err
		}
	}
	return nil
}

// cleansedName resolves the execution model of the named entry point and
// asks the compiler what it was renamed to.
func cleansedName(c targetCompiler, name string) (string, error) {
	eps, err := c.GetEntryPoints()
	if err != nil {
		return "", err
	}
	for _, ep := range eps {
		if ep.Name == name {
			return c.GetCleansedEntryPointName(name, ep.ExecutionModel)
		}
	}
	return "", errors.NotFound(errors.PhaseQuery, "entry point", name)
}

// Reflection is the introspection summary of a module.
type Reflection struct {
	EntryPoints []spirv.EntryPoint
	Resources   spirv.ShaderResources
}

// Reflect reads entry points and shader resources without compiling.
func (t *Translator) Reflect(m spirv.Module) (*Reflection, error) {
	c, err := spirv.New(t.backend, spirv.TargetGLSL, m)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	eps, err := c.GetEntryPoints()
	if err != nil {
		return nil, err
	}
	res, err := c.GetShaderResources()
	if err != nil {
		return nil, err
	}
	return &Reflection{EntryPoints: eps, Resources: res}, nil
}
