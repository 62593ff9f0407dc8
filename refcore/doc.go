// Package refcore is a compiler core written in Go that speaks the same
// boundary contract as the native and wasm builds.
//
// It parses SPIR-V straight out of transport memory, answers reflection
// queries and emits the interface of the first entry point (resources,
// stage IO and an entry function) as GLSL, HLSL or MSL. It does not
// translate function bodies.
//
// Everything it hands back lives in the transport the core was created
// with and is tracked until the caller returns it through FreePointer:
//
//	tr := transport.NewDirect()
//	core := refcore.New(tr)
//	backend := spirv.NewBackend(core, tr)
//
// Failures the core can describe return CompilationError with a message
// available from GetLatestExceptionMessage. Unknown handles, foreign
// pointers and transport faults return Unhandled.
package refcore
