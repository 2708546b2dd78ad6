package chronicle

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unsafe"
)

type (
	// Event is an immutable record of one aggregate state change, tagged
	// with the owning AggregateID for routing. It is the unit of storage in
	// the Journal: a creation event carries the payload the aggregate's
	// state is seeded from, a domain event carries the payload its Applier
	// folds in, and a deletion event tombstones the aggregate
	Event struct {
		Timestamp   time.Time       `json:"timestamp"`
		AggregateID AggregateID     `json:"aggregate_id"`
		Kind        EventKind       `json:"kind"`
		Type        EventType       `json:"type,omitempty"`
		Data        json.RawMessage `json:"data,omitempty"`
		Sequence    int64           `json:"sequence"`
	}

	// EventKind discriminates the positional role of an Event in its log
	EventKind int8

	// EventType names a domain event for applier and subscriber routing
	EventType string

	// AggregateID identifies an aggregate as a set of parts. The first part
	// is the collection's namespace ("org", "user"), keeping each kind's
	// log keyspace disjoint from every other kind sharing the Store
	AggregateID []ID

	// ID is a single component of an AggregateID
	ID string
)

const (
	// KindCreated marks the first event of a log; its Data is the payload
	// the aggregate state is seeded from
	KindCreated EventKind = iota + 1

	// KindDomain marks an event produced by a command handler and folded
	// through the collection's Appliers
	KindDomain

	// KindDeleted marks the aggregate as logically removed; queries see
	// "not found" from this point regardless of later events
	KindDeleted
)

var (
	ErrEmptyAggregateID = errors.New("event has no aggregate id")
	ErrInvalidEventKind = errors.New("event kind is invalid")
	ErrMissingEventType = errors.New("domain event has no type")
)

// NewEvent marshals value and returns a domain Event ready to be returned
// from a command handler. The collection stamps the owning AggregateID when
// the event is persisted
func NewEvent(typ EventType, value any) (*Event, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Event{
		Timestamp: time.Now(),
		Kind:      KindDomain,
		Type:      typ,
		Data:      data,
	}, nil
}

func newCreatedEvent(id AggregateID, value any) (*Event, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Event{
		Timestamp:   time.Now(),
		AggregateID: id,
		Kind:        KindCreated,
		Data:        data,
	}, nil
}

func newDeletedEvent(id AggregateID) *Event {
	return &Event{
		Timestamp:   time.Now(),
		AggregateID: id,
		Kind:        KindDeleted,
	}
}

// Validate reports whether the Event is fit for persistence
func (ev *Event) Validate() error {
	if len(ev.AggregateID) == 0 {
		return ErrEmptyAggregateID
	}
	switch ev.Kind {
	case KindCreated, KindDeleted:
		return nil
	case KindDomain:
		if ev.Type == "" {
			return ErrMissingEventType
		}
		return nil
	default:
		return ErrInvalidEventKind
	}
}

func NewAggregateID(parts ...ID) AggregateID {
	return parts
}

// ParseAggregateID splits a string by the separator into an AggregateID
func ParseAggregateID(str, sep string) AggregateID {
	s := strings.Split(str, sep)
	return *(*AggregateID)(unsafe.Pointer(&s))
}

// Join combines the AggregateID parts into a single string using a separator
func (id AggregateID) Join(sep string) string {
	s := *(*[]string)(unsafe.Pointer(&id))
	return strings.Join(s, sep)
}

// Equal compares two AggregateIDs for equality
func (id AggregateID) Equal(other AggregateID) bool {
	if len(id) != len(other) {
		return false
	}
	for i, p := range id {
		if other[i] != p {
			return false
		}
	}
	return true
}

// HasPrefix checks if the AggregateID starts with the provided prefix
func (id AggregateID) HasPrefix(prefix AggregateID) bool {
	if len(prefix) > len(id) {
		return false
	}
	for i, p := range prefix {
		if id[i] != p {
			return false
		}
	}
	return true
}
