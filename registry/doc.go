// Package registry tracks live compiler handles.
//
// Every handle a core hands out is registered together with its target
// language and lifecycle state:
//
//	Constructed -> OptionsSet (repeatable) -> Compiled -> Released
//
// Options may be set any number of times before the first compile and
// never after it. Compiling again is permitted.
//
// # Table
//
//	table := registry.NewTable()
//	table.Insert(handle, "msl", compiler)
//	table.Transition(handle, registry.StateOptionsSet)
//	table.Remove(handle)
//
// Table.Close releases every compiler still registered, newest first,
// through the Releaser interface. This ties compiler lifetime to the
// backend that created them.
//
// # Observers
//
// Observers receive EventCreated, EventStateChanged and EventReleased
// notifications. Leak tests use them to assert that every created handle
// was released.
package registry
