package transport

import (
	"encoding/binary"

	spirvcross "github.com/wippyai/spirv-cross"
)

// Ordered is implemented by transports that know the byte order of their
// memory. Word copies use it to move whole buffers in one access.
type Ordered interface {
	ByteOrder() binary.ByteOrder
}

// WriteWords copies words to addr in the transport's byte order.
func WriteWords(t spirvcross.Transport, addr spirvcross.Address, words []uint32) error {
	if o, ok := t.(Ordered); ok {
		order := o.ByteOrder()
		buf := make([]byte, 4*len(words))
		for i, w := range words {
			order.PutUint32(buf[4*i:], w)
		}
		return t.Write(addr, buf)
	}
	for i, w := range words {
		if err := t.WriteU32(addr+spirvcross.Address(4*i), w); err != nil {
			return err
		}
	}
	return nil
}

// ReadWords copies count words starting at addr into Go memory.
func ReadWords(t spirvcross.Transport, addr spirvcross.Address, count uint32) ([]uint32, error) {
	words := make([]uint32, count)
	if o, ok := t.(Ordered); ok {
		buf, err := t.Read(addr, 4*count)
		if err != nil {
			return nil, err
		}
		order := o.ByteOrder()
		for i := range words {
			words[i] = order.Uint32(buf[4*i:])
		}
		return words, nil
	}
	for i := range words {
		w, err := t.ReadU32(addr + spirvcross.Address(4*i))
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}

// ByteOrder is the host's native order.
func (d *Direct) ByteOrder() binary.ByteOrder { return binary.NativeEndian }

// ByteOrder is little-endian, as wasm linear memory always is.
func (h *Heap) ByteOrder() binary.ByteOrder { return binary.LittleEndian }

// ByteOrder forwards to the wrapped transport, defaulting to little-endian.
func (p *Probe) ByteOrder() binary.ByteOrder {
	if o, ok := p.inner.(Ordered); ok {
		return o.ByteOrder()
	}
	return binary.LittleEndian
}
