// Package spirvcross exposes the SPIRV-Cross shader cross-compiler to Go.
//
// A SPIR-V module goes in, GLSL, HLSL or MSL source comes out. The compiler
// core is reached through a narrow C-style contract and can run as native
// machine code in the same process or inside a wasm linear memory. Both cases
// share one call surface: everything above the Transport interface is
// unaware of which memory model it talks to.
//
// # Architecture Overview
//
//	spirvcross/          Root package with Address, Transport and Allocator
//	├── transport/       Direct (process memory) and Heap (wasm linear memory)
//	├── abi/             Boundary contract, result codes, C struct layouts
//	├── spirv/           Compiler lifecycle, result protocol, reflection
//	├── glsl/ hlsl/ msl/ Target options and target-specific compile
//	├── registry/        Live compiler handle table
//	├── refcore/         Pure Go core implementing the contract
//	├── engine/          wazero host for the wasm build of the core
//	├── native/          purego loader for the native shared library
//	├── cache/           SQLite compile cache
//	├── config/          viper configuration
//	├── profile/         YAML/TOML option profiles
//	├── translator/      Configured one-call translation
//	├── cmd/spvc/        Command line and interactive front end
//	└── errors/          Structured error types
//
// # Quick Start
//
//	tr := transport.NewDirect()
//	defer tr.Close()
//
//	backend := spirv.NewBackend(refcore.New(tr), tr)
//	defer backend.Close()
//
//	module, err := spirv.ModuleFromBytes(spv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c, err := msl.New(backend, module)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	src, err := c.Compile()
//
// # Thread Safety
//
// A compiler is NOT safe for concurrent use. Direct transports belong to a
// single goroutine. Heap transports and the wasm engine serialize every call
// against the shared linear memory.
//
// # Ownership
//
// Every array or string a query returns is copied into Go memory and the
// core's allocation is released before the query returns. Nothing returned
// to callers aliases core memory.
package spirvcross
