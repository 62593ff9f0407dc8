// Package spirv is the binding layer over a SPIR-V cross-compiler core.
//
// A Backend pairs an abi.Core with the transport its addresses live in.
// Compilers created on it own one core handle each and move through the
// states Constructed, OptionsSet, Compiled and Released:
//
//	backend := spirv.NewBackend(core, tr)
//	defer backend.Close()
//
//	c, err := spirv.New(backend, spirv.TargetGLSL, spirv.ModuleFromWords(words))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	res, err := c.GetShaderResources()
//
// Every boundary result is checked the same way. Unhandled becomes an error
// matching errors.ErrUnhandled. CompilationError becomes an error matching
// errors.ErrCompilation that carries the core's diagnostic, or degrades to
// Unhandled when the diagnostic itself cannot be fetched. Out parameters
// are only read after Success.
//
// Strings and arrays returned by the core are copied into Go memory and
// handed back to the core before a method returns.
//
// Target-specific options live in the glsl, hlsl and msl packages, which
// wrap a Compiler.
package spirv
