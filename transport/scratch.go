package transport

import (
	"sync"

	spirvcross "github.com/wippyai/spirv-cross"
)

// Scratch tracks the temporary allocations of a single boundary call so
// they can be released together on every exit path.
type Scratch struct {
	t     spirvcross.Transport
	addrs []spirvcross.Address
}

var scratchPool = sync.Pool{
	New: func() any {
		return &Scratch{addrs: make([]spirvcross.Address, 0, 8)}
	},
}

const maxPooledScratchCapacity = 128

// NewScratch returns an empty list bound to t.
func NewScratch(t spirvcross.Transport) *Scratch {
	s := scratchPool.Get().(*Scratch)
	s.t = t
	return s
}

// Alloc allocates size bytes and tracks them.
func (s *Scratch) Alloc(size uint32) spirvcross.Address {
	addr := s.t.Allocate(size)
	s.addrs = append(s.addrs, addr)
	return addr
}

// Zeroed allocates size zero bytes and tracks them.
func (s *Scratch) Zeroed(size uint32) (spirvcross.Address, error) {
	addr := s.Alloc(size)
	if size == 0 {
		return addr, nil
	}
	return addr, s.t.Write(addr, make([]byte, size))
}

// Slot allocates a zeroed pointer-sized out parameter.
func (s *Scratch) Slot() (spirvcross.Address, error) {
	return s.Zeroed(s.t.PointerSize())
}

// Bytes copies data into a tracked allocation.
func (s *Scratch) Bytes(data []byte) (spirvcross.Address, error) {
	addr := s.Alloc(uint32(len(data)))
	if len(data) == 0 {
		return addr, nil
	}
	return addr, s.t.Write(addr, data)
}

// CString copies str with a terminator into a tracked allocation.
func (s *Scratch) CString(str string) (spirvcross.Address, error) {
	addr, err := WriteCString(s.t, str)
	if err != nil {
		return 0, err
	}
	s.addrs = append(s.addrs, addr)
	return addr, nil
}

// Track adds an allocation made elsewhere to the list.
func (s *Scratch) Track(addr spirvcross.Address) {
	if addr != 0 {
		s.addrs = append(s.addrs, addr)
	}
}

// Count returns the number of tracked allocations.
func (s *Scratch) Count() int {
	return len(s.addrs)
}

// Free releases every tracked allocation in reverse order and returns the
// list to the pool. The list is invalid afterwards.
func (s *Scratch) Free() {
	for i := len(s.addrs) - 1; i >= 0; i-- {
		s.t.Free(s.addrs[i])
	}
	if cap(s.addrs) > maxPooledScratchCapacity {
		return
	}
	s.addrs = s.addrs[:0]
	s.t = nil
	scratchPool.Put(s)
}
