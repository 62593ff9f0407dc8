package transport

import (
	"unsafe"

	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/errors"
	"go.uber.org/zap"
	"modernc.org/libc"
	"modernc.org/memory"
)

var _ spirvcross.Transport = (*Direct)(nil)

// Direct is a Transport over the process address space. Addresses are real
// pointers, so a native core can dereference everything the binding writes.
// Allocations come from a private modernc allocator that is not safe for
// concurrent use: confine a Direct transport to one goroutine.
type Direct struct {
	alloc memory.Allocator
}

// NewDirect creates a Direct transport with its own allocator.
func NewDirect() *Direct {
	return &Direct{}
}

// Allocate returns size bytes of process memory. A zero-sized request still
// yields a unique non-null address.
func (d *Direct) Allocate(size uint32) spirvcross.Address {
	n := int(size)
	if n == 0 {
		n = 1
	}
	p, err := d.alloc.UintptrMalloc(n)
	if err != nil || p == 0 {
		Logger().Error("direct allocation failed", zap.Uint32("size", size), zap.Error(err))
		panic(errors.AllocationFailed(errors.PhaseTransport, size))
	}
	return spirvcross.Address(p)
}

// Free releases an address returned by Allocate.
func (d *Direct) Free(addr spirvcross.Address) {
	if addr == 0 {
		return
	}
	if err := d.alloc.UintptrFree(uintptr(addr)); err != nil {
		Logger().Warn("direct free failed", zap.Uint64("addr", uint64(addr)), zap.Error(err))
	}
}

// Close releases every allocation made by this transport.
func (d *Direct) Close() error {
	return d.alloc.Close()
}

// PointerSize is the width of a native pointer.
func (d *Direct) PointerSize() uint32 {
	return uint32(unsafe.Sizeof(uintptr(0)))
}

// View aliases length bytes of process memory without copying.
func (d *Direct) View(addr spirvcross.Address, length uint32) ([]byte, error) {
	if addr == 0 {
		return nil, errors.OutOfBounds(errors.PhaseTransport, 0, length)
	}
	if length == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(pointer(addr)), int(length)), nil
}

// Read copies length bytes out of process memory.
func (d *Direct) Read(addr spirvcross.Address, length uint32) ([]byte, error) {
	view, err := d.View(addr, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies data into process memory.
func (d *Direct) Write(addr spirvcross.Address, data []byte) error {
	view, err := d.View(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(view, data)
	return nil
}

// ReadU8 reads one byte.
func (d *Direct) ReadU8(addr spirvcross.Address) (uint8, error) {
	if addr == 0 {
		return 0, errors.OutOfBounds(errors.PhaseTransport, 0, 1)
	}
	return *(*uint8)(pointer(addr)), nil
}

// ReadU32 reads a native-endian 32-bit value.
func (d *Direct) ReadU32(addr spirvcross.Address) (uint32, error) {
	if addr == 0 {
		return 0, errors.OutOfBounds(errors.PhaseTransport, 0, 4)
	}
	return *(*uint32)(pointer(addr)), nil
}

// ReadU64 reads a native-endian 64-bit value.
func (d *Direct) ReadU64(addr spirvcross.Address) (uint64, error) {
	if addr == 0 {
		return 0, errors.OutOfBounds(errors.PhaseTransport, 0, 8)
	}
	return *(*uint64)(pointer(addr)), nil
}

// WriteU8 writes one byte.
func (d *Direct) WriteU8(addr spirvcross.Address, value uint8) error {
	if addr == 0 {
		return errors.OutOfBounds(errors.PhaseTransport, 0, 1)
	}
	*(*uint8)(pointer(addr)) = value
	return nil
}

// WriteU32 writes a native-endian 32-bit value.
func (d *Direct) WriteU32(addr spirvcross.Address, value uint32) error {
	if addr == 0 {
		return errors.OutOfBounds(errors.PhaseTransport, 0, 4)
	}
	*(*uint32)(pointer(addr)) = value
	return nil
}

// WriteU64 writes a native-endian 64-bit value.
func (d *Direct) WriteU64(addr spirvcross.Address, value uint64) error {
	if addr == 0 {
		return errors.OutOfBounds(errors.PhaseTransport, 0, 8)
	}
	*(*uint64)(pointer(addr)) = value
	return nil
}

// ReadPointer reads a native pointer.
func (d *Direct) ReadPointer(addr spirvcross.Address) (spirvcross.Address, error) {
	if addr == 0 {
		return 0, errors.OutOfBounds(errors.PhaseTransport, 0, d.PointerSize())
	}
	return spirvcross.Address(*(*uintptr)(pointer(addr))), nil
}

// WritePointer writes a native pointer.
func (d *Direct) WritePointer(addr spirvcross.Address, value spirvcross.Address) error {
	if addr == 0 {
		return errors.OutOfBounds(errors.PhaseTransport, 0, d.PointerSize())
	}
	*(*uintptr)(pointer(addr)) = uintptr(value)
	return nil
}

// ReadCString reads a NUL-terminated string straight from process memory.
func (d *Direct) ReadCString(addr spirvcross.Address) (string, error) {
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseTransport, nil, "char*")
	}
	return libc.GoString(uintptr(addr)), nil
}

// pointer converts a libc address. The memory lives outside the Go heap, so
// the collector never moves or frees it and the uintptr round trip is safe.
// checkptr cannot map foreign allocations and is turned off here.
//
//go:nocheckptr
func pointer(addr spirvcross.Address) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}
