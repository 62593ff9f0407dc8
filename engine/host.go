package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/spirv-cross/abi"
)

// ServeCore instantiates a host module called name that exports the whole
// contract, each export forwarding to core(). core is resolved on every
// call, so a Go core can be attached after the transport it needs exists.
// A nil core answers Unhandled.
func ServeCore(ctx context.Context, r wazero.Runtime, name string, core func() abi.Core) (api.Module, error) {
	b := r.NewHostModuleBuilder(name)
	for _, sig := range contract {
		b = b.NewFunctionBuilder().
			WithGoModuleFunction(serveFunc(sig, core), sig.params, sig.results).
			WithName(sig.name).
			Export(sig.name)
	}
	return b.Instantiate(ctx)
}

func serveFunc(sig signature, core func() abi.Core) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		c := core()
		if c == nil {
			stack[0] = uint64(abi.Unhandled)
			return
		}
		args := make([]uint64, len(sig.params))
		for i := range args {
			args[i] = uint64(api.DecodeU32(stack[i]))
		}
		res, ok := abi.Serve(c, sig.name, args)
		if !ok {
			Logger().Warn("export not served", zap.String("fn", sig.name))
		}
		stack[0] = uint64(res)
	}
}
