package refcore

import (
	"sync"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/transport"
	"go.uber.org/zap"
)

type target uint8

const (
	targetGLSL target = iota
	targetHLSL
	targetMSL
)

func (t target) String() string {
	switch t {
	case targetGLSL:
		return "glsl"
	case targetHLSL:
		return "hlsl"
	case targetMSL:
		return "msl"
	}
	return "unknown"
}

// handleSize is the transport block backing a compiler handle.
const handleSize = 16

type compilerState struct {
	target           target
	m                *module
	glsl             glslOptions
	hlsl             hlslOptions
	msl              mslOptions
	headers          []string
	flattened        map[uint32]bool
	combined         []combinedSampler
	compiled         bool
	rasterDisabled   bool
	vertexAttrs      []mslVertexAttr
	resourceBindings []mslResourceBinding
}

var _ abi.Core = (*Core)(nil)

// Core implements the boundary contract in Go over a Transport. Handles and
// every buffer it returns live in the transport's memory, so callers see
// exactly what a native or wasm core would give them.
type Core struct {
	t         spirvcross.Transport
	compilers map[abi.Address]*compilerState
	owned     map[abi.Address]struct{}
	lastError string
	mu        sync.Mutex
}

// New creates a core bound to t.
func New(t spirvcross.Transport) *Core {
	return &Core{
		t:         t,
		compilers: make(map[abi.Address]*compilerState),
		owned:     make(map[abi.Address]struct{}),
	}
}

// Live returns the number of compilers not yet deleted.
func (c *Core) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.compilers)
}

// Outstanding returns the number of returned buffers not yet freed.
func (c *Core) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.owned)
}

func (c *Core) fail(msg string) abi.Result {
	c.lastError = msg
	Logger().Debug("compilation error", zap.String("message", msg))
	return abi.CompilationError
}

func (c *Core) lookup(h abi.Address) (*compilerState, bool) {
	comp, ok := c.compilers[h]
	if !ok {
		Logger().Warn("unknown compiler handle", zap.Uint64("handle", uint64(h)))
	}
	return comp, ok
}

// outputs collects allocations made while building a reply. They become
// caller-owned on commit or are released on abort.
type outputs struct {
	c     *Core
	addrs []abi.Address
}

func (c *Core) outputs() *outputs {
	return &outputs{c: c}
}

func (o *outputs) alloc(size uint32) abi.Address {
	addr := o.c.t.Allocate(size)
	o.addrs = append(o.addrs, addr)
	return addr
}

func (o *outputs) zeroed(size uint32) (abi.Address, error) {
	addr := o.alloc(size)
	return addr, o.c.t.Write(addr, make([]byte, size))
}

func (o *outputs) str(s string) (abi.Address, error) {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	addr := o.alloc(uint32(len(buf)))
	return addr, o.c.t.Write(addr, buf)
}

func (o *outputs) abort() abi.Result {
	for _, a := range o.addrs {
		o.c.t.Free(a)
	}
	o.addrs = nil
	return abi.Unhandled
}

func (o *outputs) commit() abi.Result {
	for _, a := range o.addrs {
		o.c.owned[a] = struct{}{}
	}
	o.addrs = nil
	return abi.Success
}

// array allocates n elements of l, fills them and writes (data, count) to
// the two slots. An empty array is reported as (null, 0).
func (o *outputs) array(dataSlot, countSlot abi.Address, l *abi.Layout, n int, fill func(i int, r *abi.Record) error) abi.Result {
	var data abi.Address
	if n > 0 {
		var err error
		data, err = o.zeroed(l.Size * uint32(n))
		if err != nil {
			return o.abort()
		}
		for i := 0; i < n; i++ {
			r := abi.Element(o.c.t, l, data, i)
			if err := fill(i, r); err != nil {
				return o.abort()
			}
			if r.Err() != nil {
				return o.abort()
			}
		}
	}
	if err := o.c.t.WritePointer(dataSlot, data); err != nil {
		return o.abort()
	}
	if err := o.c.t.WritePointer(countSlot, abi.Address(n)); err != nil {
		return o.abort()
	}
	return o.commit()
}

func (c *Core) GetLatestExceptionMessage(message abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError == "" {
		return abi.Success
	}
	out := c.outputs()
	addr, err := out.str(c.lastError)
	if err != nil {
		return out.abort()
	}
	if err := c.t.WritePointer(message, addr); err != nil {
		return out.abort()
	}
	return out.commit()
}

func (c *Core) construct(tgt target, slot, ir abi.Address, size uint32) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	words, err := transport.ReadWords(c.t, ir, size)
	if err != nil {
		Logger().Warn("cannot read module words", zap.Error(err))
		return abi.Unhandled
	}
	m, err := parseModule(words)
	if err != nil {
		return c.fail(err.Error())
	}

	h := c.t.Allocate(handleSize)
	if err := c.t.WritePointer(slot, h); err != nil {
		c.t.Free(h)
		return abi.Unhandled
	}
	c.compilers[h] = &compilerState{
		target:    tgt,
		m:         m,
		glsl:      defaultGLSLOptions(),
		hlsl:      defaultHLSLOptions(),
		msl:       defaultMSLOptions(),
		flattened: make(map[uint32]bool),
	}
	Logger().Debug("compiler created", zap.Stringer("target", tgt), zap.Uint64("handle", uint64(h)), zap.Int("words", len(words)))
	return abi.Success
}

func (c *Core) CompilerGLSLNew(compiler, ir abi.Address, size uint32) abi.Result {
	return c.construct(targetGLSL, compiler, ir, size)
}

func (c *Core) CompilerHLSLNew(compiler, ir abi.Address, size uint32) abi.Result {
	return c.construct(targetHLSL, compiler, ir, size)
}

func (c *Core) CompilerMSLNew(compiler, ir abi.Address, size uint32) abi.Result {
	return c.construct(targetMSL, compiler, ir, size)
}

func (c *Core) CompilerDelete(compiler abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(compiler); !ok {
		return abi.Unhandled
	}
	delete(c.compilers, compiler)
	c.t.Free(compiler)
	return abi.Success
}

func (c *Core) FreePointer(pointer abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pointer == 0 {
		return abi.Success
	}
	if _, ok := c.owned[pointer]; !ok {
		Logger().Warn("free of pointer not owned by caller", zap.Uint64("pointer", uint64(pointer)))
		return abi.Unhandled
	}
	delete(c.owned, pointer)
	c.t.Free(pointer)
	return abi.Success
}

func (c *Core) setOptions(h abi.Address, tgt target, apply func(*compilerState) error) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(h)
	if !ok || comp.target != tgt {
		return abi.Unhandled
	}
	if err := apply(comp); err != nil {
		return abi.Unhandled
	}
	return abi.Success
}

func (c *Core) CompilerGLSLSetOptions(compiler, options abi.Address) abi.Result {
	return c.setOptions(compiler, targetGLSL, func(comp *compilerState) error {
		o, err := readGLSLOptions(c.t, options)
		if err == nil {
			comp.glsl = o
		}
		return err
	})
}

func (c *Core) CompilerHLSLSetOptions(compiler, options abi.Address) abi.Result {
	return c.setOptions(compiler, targetHLSL, func(comp *compilerState) error {
		o, err := readHLSLOptions(c.t, options)
		if err == nil {
			comp.hlsl = o
		}
		return err
	})
}

func (c *Core) CompilerMSLSetOptions(compiler, options abi.Address) abi.Result {
	return c.setOptions(compiler, targetMSL, func(comp *compilerState) error {
		o, err := readMSLOptions(c.t, options)
		if err == nil {
			comp.msl = o
		}
		return err
	})
}

func (c *Core) CompilerGLSLBuildCombinedImageSamplers(compiler abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetGLSL {
		return abi.Unhandled
	}
	comp.combined = comp.m.buildCombinedSamplers(comp.combined)
	return abi.Success
}

func (c *Core) CompilerGLSLGetCombinedImageSamplers(compiler, samplers, size abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetGLSL {
		return abi.Unhandled
	}
	l := abi.LayoutsFor(c.t.PointerSize()).CombinedImageSampler
	return c.outputs().array(samplers, size, l, len(comp.combined), func(i int, r *abi.Record) error {
		s := comp.combined[i]
		r.SetU32("combined_id", s.combined).SetU32("image_id", s.image).SetU32("sampler_id", s.sampler)
		return nil
	})
}

func (c *Core) CompilerGLSLAddHeaderLine(compiler, str abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetGLSL {
		return abi.Unhandled
	}
	line, err := transport.ReadCString(c.t, str)
	if err != nil {
		return abi.Unhandled
	}
	comp.headers = append(comp.headers, line)
	return abi.Success
}

func (c *Core) CompilerGLSLFlattenBufferBlock(compiler abi.Address, id uint32) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetGLSL {
		return abi.Unhandled
	}
	v, ok := comp.m.variable(id)
	if !ok {
		return c.fail("Bad cast: flattened id is not a variable")
	}
	if _, err := comp.m.structType(v.typeID); err != nil {
		return c.fail("Only buffer blocks can be flattened.")
	}
	comp.flattened[id] = true
	return abi.Success
}

func (c *Core) CompilerMSLGetIsRasterizationDisabled(compiler, isDisabled abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetMSL {
		return abi.Unhandled
	}
	disabled := comp.msl.disableRasterization
	if comp.compiled {
		disabled = comp.rasterDisabled
	}
	var b uint8
	if disabled {
		b = 1
	}
	if err := c.t.WriteU8(isDisabled, b); err != nil {
		return abi.Unhandled
	}
	return abi.Success
}

func (c *Core) CompilerMSLCompile(compiler, shader, vatOverrides abi.Address, vatCount uint32, resOverrides abi.Address, resCount uint32) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok || comp.target != targetMSL {
		return abi.Unhandled
	}
	vats, err := readVertexAttrs(c.t, vatOverrides, vatCount)
	if err != nil {
		return abi.Unhandled
	}
	res, err := readResourceBindings(c.t, resOverrides, resCount)
	if err != nil {
		return abi.Unhandled
	}
	comp.vertexAttrs, comp.resourceBindings = vats, res
	return c.compile(comp, shader)
}

func (c *Core) CompilerCompile(compiler, shader abi.Address) abi.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.lookup(compiler)
	if !ok {
		return abi.Unhandled
	}
	return c.compile(comp, shader)
}

func (c *Core) compile(comp *compilerState, shader abi.Address) abi.Result {
	if len(comp.m.entryPoints) == 0 {
		return c.fail("There is no entry point in the SPIR-V module.")
	}

	var (
		src string
		err error
		em  = newEmitter(comp)
	)
	switch comp.target {
	case targetGLSL:
		src, err = em.glsl()
	case targetHLSL:
		src, err = em.hlsl()
	case targetMSL:
		src, err = em.msl()
		if err == nil {
			c.markUsedOverrides(comp, em)
		}
	}
	if err != nil {
		return c.fail(err.Error())
	}

	out := c.outputs()
	addr, werr := out.str(src)
	if werr != nil {
		return out.abort()
	}
	if werr := c.t.WritePointer(shader, addr); werr != nil {
		return out.abort()
	}
	comp.compiled = true
	Logger().Debug("compiled", zap.Stringer("target", comp.target), zap.Int("bytes", len(src)))
	return out.commit()
}

// markUsedOverrides reports back through the caller's arrays which
// overrides matched a resource of the shader.
func (c *Core) markUsedOverrides(comp *compilerState, em *emitter) {
	l := abi.LayoutsFor(c.t.PointerSize())
	for _, a := range comp.vertexAttrs {
		if em.usedLocations[a.location] {
			abi.NewRecord(c.t, l.MSLVertexAttr, a.addr).SetBool("used_by_shader", true)
		}
	}
	for _, b := range comp.resourceBindings {
		if em.usedBindings[[3]uint32{b.stage, b.descSet, b.binding}] {
			abi.NewRecord(c.t, l.MSLResourceBinding, b.addr).SetBool("used_by_shader", true)
		}
	}
}
