package transport

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/errors"
	"go.uber.org/zap"
)

var _ spirvcross.Transport = (*Heap)(nil)

// GuestAllocator allocates inside a wasm guest's linear memory.
type GuestAllocator interface {
	Malloc(size uint32) (uint32, error)
	Free(ptr uint32) error
}

// Heap is a Transport over a wasm linear memory. Addresses are offsets that
// only mean something inside the guest, so every value crosses by copy.
// The linear memory is one shared resource: every operation takes the
// same lock.
type Heap struct {
	mem   api.Memory
	alloc GuestAllocator
	mu    sync.Mutex
}

// NewHeap binds a linear memory and the allocator that manages it.
func NewHeap(mem api.Memory, alloc GuestAllocator) *Heap {
	return &Heap{mem: mem, alloc: alloc}
}

// Memory returns the underlying linear memory.
func (h *Heap) Memory() api.Memory {
	return h.mem
}

// Allocate reserves size bytes in the guest heap.
func (h *Heap) Allocate(size uint32) spirvcross.Address {
	if size == 0 {
		size = 1
	}
	h.mu.Lock()
	ptr, err := h.alloc.Malloc(size)
	h.mu.Unlock()
	if err != nil || ptr == 0 {
		Logger().Error("heap allocation failed", zap.Uint32("size", size), zap.Error(err))
		panic(errors.New(errors.PhaseTransport, errors.KindAllocation).
			Detail("guest malloc(%d) failed", size).
			Cause(err).
			Build())
	}
	return spirvcross.Address(ptr)
}

// Free returns an offset to the guest allocator.
func (h *Heap) Free(addr spirvcross.Address) {
	if addr == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.alloc.Free(uint32(addr)); err != nil {
		Logger().Warn("heap free failed", zap.Uint64("addr", uint64(addr)), zap.Error(err))
	}
}

// PointerSize is the width of a wasm32 pointer.
func (h *Heap) PointerSize() uint32 {
	return 4
}

// View copies length bytes out of linear memory. wazero views alias the
// guest buffer, which may move when the guest grows its memory.
func (h *Heap) View(addr spirvcross.Address, length uint32) ([]byte, error) {
	return h.Read(addr, length)
}

// Read copies length bytes out of linear memory.
func (h *Heap) Read(addr spirvcross.Address, length uint32) ([]byte, error) {
	off, err := offset(addr, length)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.mem.Read(off, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseTransport, uint64(addr), length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write copies data into linear memory.
func (h *Heap) Write(addr spirvcross.Address, data []byte) error {
	off, err := offset(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mem.Write(off, data) {
		return errors.OutOfBounds(errors.PhaseTransport, uint64(addr), uint32(len(data)))
	}
	return nil
}

// ReadU8 reads one byte.
func (h *Heap) ReadU8(addr spirvcross.Address) (uint8, error) {
	off, err := offset(addr, 1)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.mem.ReadByte(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 1)
	}
	return v, nil
}

// ReadU32 reads a little-endian 32-bit value.
func (h *Heap) ReadU32(addr spirvcross.Address) (uint32, error) {
	off, err := offset(addr, 4)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.mem.ReadUint32Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 4)
	}
	return v, nil
}

// ReadU64 reads a little-endian 64-bit value.
func (h *Heap) ReadU64(addr spirvcross.Address) (uint64, error) {
	off, err := offset(addr, 8)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.mem.ReadUint64Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 8)
	}
	return v, nil
}

// WriteU8 writes one byte.
func (h *Heap) WriteU8(addr spirvcross.Address, value uint8) error {
	off, err := offset(addr, 1)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mem.WriteByte(off, value) {
		return errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 1)
	}
	return nil
}

// WriteU32 writes a little-endian 32-bit value.
func (h *Heap) WriteU32(addr spirvcross.Address, value uint32) error {
	off, err := offset(addr, 4)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mem.WriteUint32Le(off, value) {
		return errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 4)
	}
	return nil
}

// WriteU64 writes a little-endian 64-bit value.
func (h *Heap) WriteU64(addr spirvcross.Address, value uint64) error {
	off, err := offset(addr, 8)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.mem.WriteUint64Le(off, value) {
		return errors.OutOfBounds(errors.PhaseTransport, uint64(addr), 8)
	}
	return nil
}

// ReadPointer reads a wasm32 pointer.
func (h *Heap) ReadPointer(addr spirvcross.Address) (spirvcross.Address, error) {
	v, err := h.ReadU32(addr)
	return spirvcross.Address(v), err
}

// WritePointer writes a wasm32 pointer.
func (h *Heap) WritePointer(addr spirvcross.Address, value spirvcross.Address) error {
	if value > math.MaxUint32 {
		return errors.OutOfBounds(errors.PhaseTransport, uint64(value), 4)
	}
	return h.WriteU32(addr, uint32(value))
}

// ReadCString scans linear memory for the terminating NUL in chunks.
func (h *Heap) ReadCString(addr spirvcross.Address) (string, error) {
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseTransport, nil, "char*")
	}
	off, err := offset(addr, 0)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.mem.Size()
	var out []byte
	for off < size {
		n := uint32(cstringChunk)
		if size-off < n {
			n = size - off
		}
		chunk, ok := h.mem.Read(off, n)
		if !ok {
			break
		}
		for i, c := range chunk {
			if c == 0 {
				out = append(out, chunk[:i]...)
				return string(out), nil
			}
		}
		out = append(out, chunk...)
		if len(out) > MaxCStringLength {
			return "", errors.InvalidData(errors.PhaseTransport, nil,
				fmt.Sprintf("string at %#x exceeds %d bytes", uint64(addr), MaxCStringLength))
		}
		off += n
	}
	return "", errors.InvalidData(errors.PhaseTransport, nil,
		fmt.Sprintf("unterminated string at %#x", uint64(addr)))
}

func offset(addr spirvcross.Address, length uint32) (uint32, error) {
	if addr == 0 || uint64(addr)+uint64(length) > math.MaxUint32+1 {
		return 0, errors.OutOfBounds(errors.PhaseTransport, uint64(addr), length)
	}
	return uint32(addr), nil
}

// ExportAllocator drives the guest's exported malloc and free.
type ExportAllocator struct {
	ctx    context.Context
	malloc api.Function
	free   api.Function
}

var (
	mallocNames = []string{"malloc", "_malloc"}
	freeNames   = []string{"free", "_free"}
)

// NewExportAllocator finds malloc/free (or their emscripten-prefixed
// forms) among the module's exports.
func NewExportAllocator(ctx context.Context, mod api.Module) (*ExportAllocator, error) {
	a := &ExportAllocator{ctx: ctx}
	for _, name := range mallocNames {
		if fn := mod.ExportedFunction(name); fn != nil {
			a.malloc = fn
			break
		}
	}
	for _, name := range freeNames {
		if fn := mod.ExportedFunction(name); fn != nil {
			a.free = fn
			break
		}
	}
	if a.malloc == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", "malloc")
	}
	if a.free == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", "free")
	}
	return a, nil
}

// Malloc calls the guest allocator.
func (a *ExportAllocator) Malloc(size uint32) (uint32, error) {
	results, err := a.malloc.Call(a.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("allocation failed: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocation returned no result")
	}
	return uint32(results[0]), nil
}

// Free calls the guest deallocator.
func (a *ExportAllocator) Free(ptr uint32) error {
	_, err := a.free.Call(a.ctx, uint64(ptr))
	return err
}
