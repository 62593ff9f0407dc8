package transport

import (
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/errors"
)

// MaxCStringLength bounds string scans on transports that cannot see a
// terminator in one step.
const MaxCStringLength = 16 << 20

const cstringChunk = 256

// CStringReader is implemented by transports with a faster NUL scan than
// byte-at-a-time reads.
type CStringReader interface {
	ReadCString(addr spirvcross.Address) (string, error)
}

// ReadCString copies the NUL-terminated string at addr into Go memory.
func ReadCString(t spirvcross.Transport, addr spirvcross.Address) (string, error) {
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseTransport, nil, "char*")
	}
	if r, ok := t.(CStringReader); ok {
		return r.ReadCString(addr)
	}

	var out []byte
	for i := spirvcross.Address(0); ; i++ {
		c, err := t.ReadU8(addr + i)
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(out), nil
		}
		out = append(out, c)
		if len(out) > MaxCStringLength {
			return "", errors.InvalidData(errors.PhaseTransport, nil, "unterminated string")
		}
	}
}

// WriteCString allocates len(s)+1 bytes and copies s with its terminator.
// The caller owns the returned address.
func WriteCString(t spirvcross.Transport, s string) (spirvcross.Address, error) {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	addr := t.Allocate(uint32(len(buf)))
	if err := t.Write(addr, buf); err != nil {
		t.Free(addr)
		return 0, err
	}
	return addr, nil
}
