package chronicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type (
	// Collection is a repository over one aggregate kind sharing a Store
	// with other kinds. S is the aggregate state, C the command type, and
	// D the payload a new aggregate is created from. State is never stored:
	// Find reconstructs it by folding the aggregate's committed log
	Collection[S, C, D any] struct {
		prefix   ID
		newID    IDStrategy[D]
		seed     func(D) S
		handle   CommandHandler[S, C]
		appliers Appliers[S]
	}

	// CollectionConfig assembles a Collection
	CollectionConfig[S, C, D any] struct {
		// Prefix is the kind's namespace, the first part of every
		// AggregateID the collection touches
		Prefix ID

		// NewID derives the identifier for a new aggregate
		NewID IDStrategy[D]

		// Seed builds the initial state from the creation payload
		Seed func(D) S

		// Handle validates a command against current state and returns the
		// events it produces. It must be pure: no state mutation, and zero
		// events on error
		Handle CommandHandler[S, C]

		// Appliers fold domain events into state during replay
		Appliers Appliers[S]
	}

	// CommandHandler is an aggregate's command validator
	CommandHandler[S, C any] func(S, C) ([]*Event, error)

	// IDStrategy derives the identifier for a new aggregate, either from
	// the creation payload or from a store-scoped counter
	IDStrategy[D any] func(*Store, D) (ID, error)
)

var (
	ErrMissingPrefix   = errors.New("collection prefix is required")
	ErrMissingStrategy = errors.New("collection id strategy is required")
	ErrMissingSeed     = errors.New("collection seed is required")
	ErrMissingHandler  = errors.New("collection command handler is required")
)

func NewCollection[S, C, D any](
	cfg CollectionConfig[S, C, D],
) (*Collection[S, C, D], error) {
	if cfg.Prefix == "" {
		return nil, ErrMissingPrefix
	}
	if cfg.NewID == nil {
		return nil, ErrMissingStrategy
	}
	if cfg.Seed == nil {
		return nil, ErrMissingSeed
	}
	if cfg.Handle == nil {
		return nil, ErrMissingHandler
	}
	return &Collection[S, C, D]{
		prefix:   cfg.Prefix,
		newID:    cfg.NewID,
		seed:     cfg.Seed,
		handle:   cfg.Handle,
		appliers: cfg.Appliers,
	}, nil
}

// ContentID derives identifiers from the creation payload itself, such as
// an organization keyed by its name
func ContentID[D any](fn func(D) ID) IDStrategy[D] {
	return func(_ *Store, data D) (ID, error) {
		return fn(data), nil
	}
}

// CounterID derives identifiers from the store-scoped monotonic counter for
// the given namespace
func CounterID[D any](namespace ID) IDStrategy[D] {
	return func(s *Store, _ D) (ID, error) {
		return ID(strconv.FormatInt(s.Counter(namespace), 10)), nil
	}
}

// StreamID returns the full AggregateID for an identifier in this
// collection's namespace
func (c *Collection[S, C, D]) StreamID(id ID) AggregateID {
	return NewAggregateID(c.prefix, id)
}

// Create derives a new identifier and buffers exactly one creation event.
// It requires an active transaction on the Store
func (c *Collection[S, C, D]) Create(
	_ context.Context, s *Store, data D,
) (ID, error) {
	id, err := c.newID(s, data)
	if err != nil {
		return "", err
	}
	ev, err := newCreatedEvent(c.StreamID(id), data)
	if err != nil {
		return "", err
	}
	if err := s.Save([]*Event{ev}); err != nil {
		return "", err
	}
	return id, nil
}

// Find reconstructs the aggregate's state by folding its committed log. An
// empty log yields (nil, nil). A non-empty log must begin with a creation
// event; a deletion event anywhere after it tombstones the aggregate and
// short-circuits the fold to (nil, nil)
func (c *Collection[S, C, D]) Find(
	ctx context.Context, s *Store, id ID,
) (*S, error) {
	events, err := s.Load(ctx, c.StreamID(id))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.StreamID(id).Join(":"), err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	first := events[0]
	if first.Kind != KindCreated {
		return nil, &InvalidEventError{Event: first}
	}
	var data D
	if err := json.Unmarshal(first.Data, &data); err != nil {
		return nil, &InvalidEventError{Event: first}
	}

	state := c.seed(data)
	for _, ev := range events[1:] {
		switch ev.Kind {
		case KindDomain:
			c.appliers.Apply(&state, ev)
		case KindDeleted:
			return nil, nil
		}
	}
	return &state, nil
}

// HandleCommand loads the aggregate, runs the command handler against its
// state, and buffers the resulting events as one batch tagged with the
// aggregate's id. A domain error buffers nothing and is returned wrapped in
// a *CommandError; the open transaction is left for the caller to resolve
func (c *Collection[S, C, D]) HandleCommand(
	ctx context.Context, s *Store, id ID, cmd C,
) error {
	state, err := c.Find(ctx, s, id)
	if err != nil {
		return err
	}
	if state == nil {
		return &NotFoundError{ID: c.StreamID(id)}
	}

	events, err := c.handle(*state, cmd)
	if err != nil {
		return &CommandError{ID: c.StreamID(id), Err: err}
	}
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		ev.AggregateID = c.StreamID(id)
		if ev.Kind == 0 {
			ev.Kind = KindDomain
		}
	}
	return s.Save(events)
}

// Delete tombstones the aggregate. Its log remains, but Find and
// HandleCommand see "not found" from the next commit on
func (c *Collection[S, C, D]) Delete(
	ctx context.Context, s *Store, id ID,
) error {
	state, err := c.Find(ctx, s, id)
	if err != nil {
		return err
	}
	if state == nil {
		return &NotFoundError{ID: c.StreamID(id)}
	}
	return s.Save([]*Event{newDeletedEvent(c.StreamID(id))})
}
