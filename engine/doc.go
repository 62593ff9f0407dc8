// Package engine hosts the WebAssembly build of the compiler core.
//
// The core is an ordinary wasm32 module that exports the sc_internal_*
// entry points, a linear memory, and an allocator. The engine runs it on
// wazero with WASI preview1, checks every entry point against the
// boundary contract, and hands out an abi.Core plus the Heap transport
// that addresses its memory.
//
// # Loading
//
//	eng, err := engine.New(ctx, nil)
//	inst, err := eng.Load(ctx, wasmBytes)
//	backend := spirv.NewBackend(inst.Core(), inst.Transport())
//
// # Contract validation
//
// Each entry point is declared in WIT and lowered to core wasm types:
//
//	WIT Type        Core Type
//	──────────────────────────
//	bool, u8-u32    i32
//	s8-s32, char    i32
//	u64, s64        i64
//	f32             f32
//	f64             f64
//
// An export with the wrong signature fails Load with a signature error.
// Absent exports are collected into one MissingExportsError.
//
// # Split cores
//
// WithContractModule takes the entry points from another module already
// instantiated in the same runtime, while memory and the allocator still
// come from the loaded module. ServeCore builds such a module from any Go
// abi.Core. Entry points of a host module are called through their Go
// implementation with the loaded module as caller.
//
// # Concurrency
//
// An Instance serializes calls into the guest. The Heap transport takes
// its own lock, so host functions may allocate while a call is running.
package engine
