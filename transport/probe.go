package transport

import (
	"sync"

	spirvcross "github.com/wippyai/spirv-cross"
	"go.uber.org/zap"
)

var _ spirvcross.Transport = (*Probe)(nil)

// Stats is a snapshot of the operations a Probe has observed.
type Stats struct {
	Allocs       int
	Frees        int
	Reads        int
	Writes       int
	Live         int
	InvalidFrees int
}

// Probe wraps a Transport and counts allocations, frees and accesses.
// It reports leaks (Live) and frees of addresses it never handed out.
type Probe struct {
	inner spirvcross.Transport
	live  map[spirvcross.Address]uint32
	stats Stats
	reads []spirvcross.Address
	mu    sync.Mutex
}

// NewProbe wraps inner.
func NewProbe(inner spirvcross.Transport) *Probe {
	return &Probe{
		inner: inner,
		live:  make(map[spirvcross.Address]uint32),
	}
}

// Stats returns the current counters.
func (p *Probe) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Live = len(p.live)
	return s
}

// Live returns the number of allocations not yet freed.
func (p *Probe) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// ReadAddresses returns every address read since the last Reset.
func (p *Probe) ReadAddresses() []spirvcross.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]spirvcross.Address(nil), p.reads...)
}

// Reset zeroes the access counters. Live allocations are kept.
func (p *Probe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
	p.reads = p.reads[:0]
}

// Allocate records and forwards an allocation.
func (p *Probe) Allocate(size uint32) spirvcross.Address {
	addr := p.inner.Allocate(size)
	p.mu.Lock()
	p.stats.Allocs++
	p.live[addr] = size
	p.mu.Unlock()
	return addr
}

// Free records and forwards a free. Unknown addresses are counted and not
// forwarded.
func (p *Probe) Free(addr spirvcross.Address) {
	p.mu.Lock()
	if _, ok := p.live[addr]; !ok {
		p.stats.InvalidFrees++
		p.mu.Unlock()
		Logger().Warn("probe: free of unknown address", zap.Uint64("addr", uint64(addr)))
		return
	}
	delete(p.live, addr)
	p.stats.Frees++
	p.mu.Unlock()
	p.inner.Free(addr)
}

func (p *Probe) read(addr spirvcross.Address) {
	p.mu.Lock()
	p.stats.Reads++
	p.reads = append(p.reads, addr)
	p.mu.Unlock()
}

func (p *Probe) write() {
	p.mu.Lock()
	p.stats.Writes++
	p.mu.Unlock()
}

func (p *Probe) PointerSize() uint32 { return p.inner.PointerSize() }

func (p *Probe) View(addr spirvcross.Address, length uint32) ([]byte, error) {
	p.read(addr)
	return p.inner.View(addr, length)
}

func (p *Probe) Read(addr spirvcross.Address, length uint32) ([]byte, error) {
	p.read(addr)
	return p.inner.Read(addr, length)
}

func (p *Probe) Write(addr spirvcross.Address, data []byte) error {
	p.write()
	return p.inner.Write(addr, data)
}

func (p *Probe) ReadU8(addr spirvcross.Address) (uint8, error) {
	p.read(addr)
	return p.inner.ReadU8(addr)
}

func (p *Probe) ReadU32(addr spirvcross.Address) (uint32, error) {
	p.read(addr)
	return p.inner.ReadU32(addr)
}

func (p *Probe) ReadU64(addr spirvcross.Address) (uint64, error) {
	p.read(addr)
	return p.inner.ReadU64(addr)
}

func (p *Probe) WriteU8(addr spirvcross.Address, value uint8) error {
	p.write()
	return p.inner.WriteU8(addr, value)
}

func (p *Probe) WriteU32(addr spirvcross.Address, value uint32) error {
	p.write()
	return p.inner.WriteU32(addr, value)
}

func (p *Probe) WriteU64(addr spirvcross.Address, value uint64) error {
	p.write()
	return p.inner.WriteU64(addr, value)
}

func (p *Probe) ReadPointer(addr spirvcross.Address) (spirvcross.Address, error) {
	p.read(addr)
	return p.inner.ReadPointer(addr)
}

func (p *Probe) WritePointer(addr spirvcross.Address, value spirvcross.Address) error {
	p.write()
	return p.inner.WritePointer(addr, value)
}

// ReadCString counts one read and uses the inner transport's scan.
func (p *Probe) ReadCString(addr spirvcross.Address) (string, error) {
	p.read(addr)
	return ReadCString(p.inner, addr)
}
