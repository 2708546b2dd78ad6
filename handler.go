package chronicle

import "encoding/json"

// Handler consumes one committed event, typically on the subscriber side of
// the hub or inside a read model updater
type Handler func(*Event) error

func MakeHandler[T any](fn func(ev *Event, data T) error) Handler {
	return func(ev *Event) error {
		var data T
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return err
		}
		return fn(ev, data)
	}
}

// MakeDispatcher routes events to handlers by type; unhandled types are
// silently skipped
func MakeDispatcher(handlers map[EventType]Handler) Handler {
	return func(ev *Event) error {
		if fn, ok := handlers[ev.Type]; ok {
			return fn(ev)
		}
		return nil
	}
}
