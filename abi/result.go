package abi

import "strconv"

// Result is the status every boundary call returns.
type Result uint32

const (
	Success          Result = 0
	Unhandled        Result = 1
	CompilationError Result = 2
)

// ResultFromRaw maps a raw status word. Values outside the contract cannot
// be produced by a conforming core and are treated as Unhandled.
func ResultFromRaw(raw uint64) Result {
	switch Result(raw) {
	case Success, Unhandled, CompilationError:
		return Result(raw)
	default:
		Logger().Sugar().Warnf("core returned unknown result code %d", raw)
		return Unhandled
	}
}

func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case Unhandled:
		return "Unhandled"
	case CompilationError:
		return "CompilationError"
	default:
		return "Result(" + strconv.FormatUint(uint64(r), 10) + ")"
	}
}
