package engine

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/errors"
)

// signature is an entry point lowered to core wasm value types.
type signature struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

var funcPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?;?$`)

// parseSignature parses one WIT function declaration and lowers its types.
// Only scalar parameter and result types are accepted.
func parseSignature(decl string) (signature, error) {
	m := funcPattern.FindStringSubmatch(strings.TrimSpace(decl))
	if m == nil {
		return signature{}, errors.InvalidInput(errors.PhaseParse, "not a WIT function: "+decl)
	}
	sig := signature{name: m[1]}

	if params := strings.TrimSpace(m[2]); params != "" {
		for _, p := range strings.Split(params, ",") {
			typ := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typ = p[idx+1:]
			}
			vt, err := lowerType(typ)
			if err != nil {
				return signature{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param type of "+sig.name)
			}
			sig.params = append(sig.params, vt)
		}
	}

	if result := strings.TrimSpace(m[3]); result != "" {
		vt, err := lowerType(result)
		if err != nil {
			return signature{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result type of "+sig.name)
		}
		sig.results = []api.ValueType{vt}
	}
	return sig, nil
}

func lowerType(s string) (api.ValueType, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	}
	return 0, fmt.Errorf("type %q does not lower to a single core value", s)
}

// contract is the lowered boundary contract, parsed once per process.
var contract = func() []signature {
	sigs := make([]signature, 0, len(abi.Exports))
	for _, e := range abi.Exports {
		sig, err := parseSignature(e.WIT())
		if err != nil {
			panic(err)
		}
		sigs = append(sigs, sig)
	}
	return sigs
}()

// entry invokes one bound entry point with the stack convention of
// api.Function.CallWithStack.
type entry func(ctx context.Context, stack []uint64) error

// bindContract resolves every contract entry point in mod. Absent exports
// are reported together; a present export with the wrong shape fails alone.
//
// Host modules cannot hand out api.Function values, so their exports are
// bound to the Go implementation directly, with caller as the calling
// module.
func bindContract(mod, caller api.Module) (map[string]entry, error) {
	funcs := make(map[string]entry, len(contract))
	defs := mod.ExportedFunctionDefinitions()

	var missing []string
	for _, sig := range contract {
		def, ok := defs[sig.name]
		if !ok {
			missing = append(missing, sig.name)
			continue
		}
		if err := sig.check(def); err != nil {
			return nil, err
		}
		e, err := bindEntry(mod, caller, sig.name, def)
		if err != nil {
			return nil, err
		}
		funcs[sig.name] = e
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingExportsError(mod.Name(), missing)
	}
	return funcs, nil
}

func bindEntry(mod, caller api.Module, name string, def api.FunctionDefinition) (entry, error) {
	switch fn := def.GoFunction().(type) {
	case nil:
		return mod.ExportedFunction(name).CallWithStack, nil
	case api.GoModuleFunction:
		return func(ctx context.Context, stack []uint64) error {
			return callHost(name, func() { fn.Call(ctx, caller, stack) })
		}, nil
	case api.GoFunction:
		return func(ctx context.Context, stack []uint64) error {
			return callHost(name, func() { fn.Call(ctx, stack) })
		}, nil
	default:
		return nil, errors.Signature(name, fmt.Sprintf("unsupported host function %T", fn))
	}
}

// callHost turns a panic in a host function into an error, as wazero does
// for calls that enter through the guest.
func callHost(name string, call func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: host function panicked: %v", name, r)
		}
	}()
	call()
	return nil
}

func (s signature) check(def api.FunctionDefinition) error {
	if !slices.Equal(def.ParamTypes(), s.params) {
		return errors.Signature(s.name, fmt.Sprintf("params %s, want %s", valueTypes(def.ParamTypes()), valueTypes(s.params)))
	}
	if !slices.Equal(def.ResultTypes(), s.results) {
		return errors.Signature(s.name, fmt.Sprintf("results %s, want %s", valueTypes(def.ResultTypes()), valueTypes(s.results)))
	}
	return nil
}

func valueTypes(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}
