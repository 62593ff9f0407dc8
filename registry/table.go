package registry

import (
	"sync"

	"github.com/wippyai/spirv-cross/errors"
	"go.uber.org/zap"
)

// Table tracks live compiler handles, their target and lifecycle state.
type Table struct {
	entries   map[Handle]*entry
	order     []Handle
	observers []Observer
	obsMu     sync.RWMutex
	mu        sync.Mutex
	closed    bool
}

type entry struct {
	value  any
	target string
	state  State
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]*entry, 16),
		order:   make([]Handle, 0, 16),
	}
}

// Insert registers a freshly constructed handle.
func (t *Table) Insert(h Handle, target string, value any) error {
	if h == 0 {
		return errors.NilPointer(errors.PhaseConstruct, []string{"compiler"}, "ScInternalCompilerBase*")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.Precondition(errors.PhaseConstruct, "registry closed")
	}
	if _, dup := t.entries[h]; dup {
		t.mu.Unlock()
		return errors.New(errors.PhaseConstruct, errors.KindInvalidData).
			Value(uint64(h)).
			Detail("handle %#x already registered", uint64(h)).
			Build()
	}
	t.entries[h] = &entry{value: value, target: target, state: StateConstructed}
	t.order = append(t.order, h)
	t.mu.Unlock()

	Logger().Debug("compiler registered", zap.Uint64("handle", uint64(h)), zap.String("target", target))
	t.notify(Event{Type: EventCreated, Handle: h, Target: target, State: StateConstructed, Value: value})
	return nil
}

// Get retrieves a registered value.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// State returns the lifecycle state of h. Unknown handles report
// StateReleased.
func (t *Table) State(h Handle) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[h]; ok {
		return e.state
	}
	return StateReleased
}

// Transition moves h to next. Options may be set repeatedly until the
// first compile; compiling again is allowed.
func (t *Table) Transition(h Handle, next State) error {
	t.mu.Lock()
	e, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		return errors.Precondition(errors.PhaseQuery, "compiler already released")
	}
	if !allowed(e.state, next) {
		from := e.state
		t.mu.Unlock()
		return errors.New(errors.PhaseOptions, errors.KindPrecondition).
			Detail("cannot move compiler from %s to %s", from, next).
			Build()
	}
	changed := e.state != next
	e.state = next
	target, value := e.target, e.value
	t.mu.Unlock()

	if changed {
		t.notify(Event{Type: EventStateChanged, Handle: h, Target: target, State: next, Value: value})
	}
	return nil
}

func allowed(from, to State) bool {
	switch to {
	case StateOptionsSet:
		return from == StateConstructed || from == StateOptionsSet
	case StateCompiled:
		return from != StateReleased
	case StateReleased:
		return true
	default:
		return false
	}
}

// Remove unregisters h and returns its value.
func (t *Table) Remove(h Handle) (any, bool) {
	t.mu.Lock()
	e, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.entries, h)
	for i, o := range t.order {
		if o == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	Logger().Debug("compiler released", zap.Uint64("handle", uint64(h)), zap.String("target", e.target))
	t.notify(Event{Type: EventReleased, Handle: h, Target: e.target, State: StateReleased, Value: e.value})
	return e.value, true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Each calls fn for every live handle in registration order until it
// returns false.
func (t *Table) Each(fn func(h Handle, target string, state State) bool) {
	t.mu.Lock()
	type snap struct {
		h      Handle
		target string
		state  State
	}
	items := make([]snap, 0, len(t.order))
	for _, h := range t.order {
		e := t.entries[h]
		items = append(items, snap{h, e.target, e.state})
	}
	t.mu.Unlock()

	for _, it := range items {
		if !fn(it.h, it.target, it.state) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close releases every handle still registered, newest first, and stops
// accepting new ones. Values that are not Releasers are dropped from the
// table without further action.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	handles := append([]Handle(nil), t.order...)
	t.mu.Unlock()

	if len(handles) > 0 {
		Logger().Info("releasing live compilers", zap.Int("count", len(handles)))
	}
	for i := len(handles) - 1; i >= 0; i-- {
		value, ok := t.Get(handles[i])
		if !ok {
			continue
		}
		if r, ok := value.(Releaser); ok {
			r.Release()
		}
		t.Remove(handles[i])
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnCompilerEvent(e)
	}
}
