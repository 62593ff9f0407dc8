package spvtest

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	spirvcross "github.com/wippyai/spirv-cross"
	"github.com/wippyai/spirv-cross/internal/wasmtest"
	"github.com/wippyai/spirv-cross/transport"
)

// NamedTransport pairs a transport with a subtest name.
type NamedTransport struct {
	Name      string
	Transport spirvcross.Transport
}

// NewDirect returns a Direct transport closed at test cleanup.
func NewDirect(t testing.TB) *transport.Direct {
	t.Helper()
	d := transport.NewDirect()
	t.Cleanup(func() { d.Close() })
	return d
}

// NewHeap returns a Heap transport over a fresh wazero instance of the
// allocator test module.
func NewHeap(t testing.TB) *transport.Heap {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	mod, err := wasmtest.Instantiate(ctx, r, "alloc")
	if err != nil {
		t.Fatalf("instantiate allocator module: %v", err)
	}
	alloc, err := transport.NewExportAllocator(ctx, mod)
	if err != nil {
		t.Fatalf("bind allocator: %v", err)
	}
	return transport.NewHeap(mod.Memory(), alloc)
}

// Transports returns one Direct and one Heap transport.
func Transports(t testing.TB) []NamedTransport {
	t.Helper()
	return []NamedTransport{
		{Name: "direct", Transport: NewDirect(t)},
		{Name: "heap", Transport: NewHeap(t)},
	}
}
