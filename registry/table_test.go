package registry

import (
	"testing"

	"github.com/wippyai/spirv-cross/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnCompilerEvent(e Event) {
	o.events = append(o.events, e)
}

type releasable struct {
	table    *Table
	h        Handle
	released int
}

func (r *releasable) Release() {
	r.released++
	r.table.Remove(r.h)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	if err := table.Insert(0x10, "glsl", "a"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len = %d", table.Len())
	}
	val, ok := table.Get(0x10)
	if !ok || val != "a" {
		t.Fatalf("Get = %v, %v", val, ok)
	}
	if s := table.State(0x10); s != StateConstructed {
		t.Errorf("State = %s", s)
	}

	if _, ok := table.Remove(0x10); !ok {
		t.Fatal("Remove failed")
	}
	if _, ok := table.Remove(0x10); ok {
		t.Fatal("second Remove should fail")
	}
	if s := table.State(0x10); s != StateReleased {
		t.Errorf("State after remove = %s", s)
	}
}

func TestTable_InsertRejects(t *testing.T) {
	table := NewTable()
	if err := table.Insert(0, "glsl", nil); err == nil {
		t.Error("null handle accepted")
	}
	if err := table.Insert(0x20, "glsl", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := table.Insert(0x20, "hlsl", nil); err == nil {
		t.Error("duplicate handle accepted")
	}
}

func TestTable_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		steps []State
		ok    []bool
	}{
		{
			name:  "options then compile",
			steps: []State{StateOptionsSet, StateOptionsSet, StateCompiled, StateCompiled},
			ok:    []bool{true, true, true, true},
		},
		{
			name:  "compile without options",
			steps: []State{StateCompiled},
			ok:    []bool{true},
		},
		{
			name:  "options after compile",
			steps: []State{StateCompiled, StateOptionsSet},
			ok:    []bool{true, false},
		},
		{
			name:  "back to constructed",
			steps: []State{StateConstructed},
			ok:    []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable()
			if err := table.Insert(1, "msl", nil); err != nil {
				t.Fatal(err)
			}
			for i, s := range tt.steps {
				err := table.Transition(1, s)
				if (err == nil) != tt.ok[i] {
					t.Fatalf("step %d to %s: err = %v", i, s, err)
				}
				if err != nil && !errors.Is(err, errors.ErrPrecondition) {
					t.Errorf("expected precondition error, got %v", err)
				}
			}
		})
	}
}

func TestTable_TransitionUnknownHandle(t *testing.T) {
	table := NewTable()
	if err := table.Transition(99, StateCompiled); err == nil {
		t.Fatal("expected error")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	_ = table.Insert(1, "hlsl", "v")
	_ = table.Transition(1, StateOptionsSet)
	_ = table.Transition(1, StateOptionsSet)
	table.Remove(1)

	want := []EventType{EventCreated, EventStateChanged, EventReleased}
	if len(obs.events) != len(want) {
		t.Fatalf("events = %+v", obs.events)
	}
	for i, e := range obs.events {
		if e.Type != want[i] {
			t.Errorf("event %d = %d, want %d", i, e.Type, want[i])
		}
		if e.Target != "hlsl" || e.Handle != 1 {
			t.Errorf("event %d = %+v", i, e)
		}
	}

	table.Unsubscribe(obs)
	_ = table.Insert(2, "hlsl", nil)
	if len(obs.events) != len(want) {
		t.Error("unsubscribed observer still notified")
	}
}

func TestTable_CloseReleasesNewestFirst(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	a := &releasable{table: table, h: 1}
	b := &releasable{table: table, h: 2}
	_ = table.Insert(1, "glsl", a)
	_ = table.Insert(2, "msl", b)
	_ = table.Insert(3, "hlsl", "plain")

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.released != 1 || b.released != 1 {
		t.Errorf("released = %d, %d", a.released, b.released)
	}
	if table.Len() != 0 {
		t.Errorf("Len after Close = %d", table.Len())
	}

	var order []Handle
	for _, e := range obs.events {
		if e.Type == EventReleased {
			order = append(order, e.Handle)
		}
	}
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("release order = %v", order)
	}

	if err := table.Insert(4, "glsl", nil); err == nil {
		t.Error("Insert after Close should fail")
	}
	if err := table.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for h := Handle(1); h <= 3; h++ {
		_ = table.Insert(h, "glsl", nil)
	}
	var seen []Handle
	table.Each(func(h Handle, target string, state State) bool {
		seen = append(seen, h)
		return h < 2
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Each visited %v", seen)
	}
}
