package registry

import spirvcross "github.com/wippyai/spirv-cross"

// Handle is a compiler handle as returned by the core. Handle 0 is never
// valid.
type Handle = spirvcross.Address

// State is the lifecycle state of a compiler handle.
type State uint8

const (
	StateConstructed State = iota
	StateOptionsSet
	StateCompiled
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateOptionsSet:
		return "options-set"
	case StateCompiled:
		return "compiled"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// EventType for compiler lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventStateChanged
	EventReleased
)

// Event represents a compiler lifecycle event.
type Event struct {
	Value  any
	Target string
	Handle Handle
	State  State
	Type   EventType
}

// Observer receives notifications about compiler lifecycle events.
type Observer interface {
	OnCompilerEvent(Event)
}

// Releaser is implemented by registered values that can release their own
// handle. Table.Close calls it for every compiler still alive.
type Releaser interface {
	Release()
}
