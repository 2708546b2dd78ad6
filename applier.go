package chronicle

import "encoding/json"

type (
	// Applier folds one event into aggregate state in place. Appliers are
	// total: they never fail, and they are correct only when events are
	// applied in log order
	Applier[T any] func(*T, *Event)

	// Appliers routes events to the Applier registered for their type
	Appliers[T any] map[EventType]Applier[T]
)

// MakeApplier adapts a typed payload function into an Applier. Events whose
// payload does not unmarshal leave the state untouched
func MakeApplier[T, Data any](fn func(*T, *Event, Data)) Applier[T] {
	return func(state *T, ev *Event) {
		var data Data
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		fn(state, ev, data)
	}
}

// Apply folds a single event; events with no registered Applier are ignored
func (a Appliers[T]) Apply(state *T, ev *Event) {
	if apply, ok := a[ev.Type]; ok {
		apply(state, ev)
	}
}
