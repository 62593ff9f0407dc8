// Package wasmtest provides a minimal guest for exercising linear-memory
// transports without a compiled core.
package wasmtest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// AllocatorModule is a wasm module exporting "memory" (16 pages), a bump
// "malloc(size) -> ptr" with 8-byte alignment starting at 1024, and a no-op
// "free(ptr)".
var AllocatorModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i32)->i32, (i32)->()
	0x01, 0x0a, 0x02, 0x60, 0x01, 0x7f, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00,
	// func: malloc=type0, free=type1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory: min 16 pages
	0x05, 0x03, 0x01, 0x00, 0x10,
	// global: mut i32 = 1024
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	// export: memory, malloc, free
	0x07, 0x1a, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'm', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x04, 'f', 'r', 'e', 'e', 0x00, 0x01,
	// code
	0x0a, 0x16, 0x02,
	// malloc: old = top; top = (top + size + 7) & -8; return old
	0x11, 0x00,
	0x23, 0x00,
	0x23, 0x00, 0x20, 0x00, 0x6a,
	0x41, 0x07, 0x6a,
	0x41, 0x78, 0x71,
	0x24, 0x00,
	0x0b,
	// free
	0x02, 0x00, 0x0b,
}

// MemoryPages is the initial size of AllocatorModule's memory.
const MemoryPages = 16

// Instantiate compiles and instantiates AllocatorModule under name.
func Instantiate(ctx context.Context, r wazero.Runtime, name string) (api.Module, error) {
	return r.InstantiateWithConfig(ctx, AllocatorModule, wazero.NewModuleConfig().WithName(name))
}
