package spirvcross

// Address is a location inside a Transport. On the Direct backend it is a
// process address; on the Managed-Heap backend it is an offset into the
// guest's linear memory. Zero is never a valid allocation.
type Address uint64

// Memory provides copy-based access to the memory a compiler core sees.
type Memory interface {
	Read(addr Address, length uint32) ([]byte, error)
	Write(addr Address, data []byte) error
	ReadU8(addr Address) (uint8, error)
	ReadU32(addr Address) (uint32, error)
	ReadU64(addr Address) (uint64, error)
	WriteU8(addr Address, value uint8) error
	WriteU32(addr Address, value uint32) error
	WriteU64(addr Address, value uint64) error
}

// Allocator allocates memory the compiler core can reach.
// Allocate panics when the underlying allocator is exhausted.
type Allocator interface {
	Allocate(size uint32) Address
	Free(addr Address)
}

// Transport is the uniform memory surface shared by the binding layer and a
// compiler core. Pointer-sized fields are PointerSize bytes wide.
type Transport interface {
	Memory
	Allocator

	// ReadPointer reads a pointer-sized value.
	ReadPointer(addr Address) (Address, error)

	// WritePointer writes a pointer-sized value.
	WritePointer(addr Address, value Address) error

	// View returns length bytes at addr. The Direct backend aliases memory,
	// the Managed-Heap backend returns a copy.
	View(addr Address, length uint32) ([]byte, error)

	// PointerSize is 8 for 64-bit process memory and 4 for wasm32.
	PointerSize() uint32
}
