package chronicle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type (
	// Store is an event store with transaction management. Events saved
	// inside a transaction are buffered per aggregate; Commit appends every
	// buffer to the Journal atomically and only then hands each aggregate's
	// batch to the Broker. A Store is not safe for concurrent use: callers
	// running transactions from multiple goroutines must serialize access
	// themselves
	Store struct {
		journal  Journal
		broker   Broker
		log      *zap.Logger
		pending  map[string][]*Event
		touched  []string
		counters map[ID]int64
		seq      int64
		active   bool
	}
)

// streamKeySep joins AggregateID parts into the Journal's stream key
const streamKeySep = ":"

// NewStore creates a Store over the configured Journal and Broker. Zero
// fields in cfg fall back to the defaults from DefaultConfig
func NewStore(cfg Config) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		journal:  cfg.Journal,
		broker:   cfg.Broker,
		log:      cfg.Logger,
		pending:  map[string][]*Event{},
		counters: map[ID]int64{},
	}
}

// Begin starts a transaction; it fails if one is already active
func (s *Store) Begin() error {
	if s.active {
		return ErrTransactionActive
	}
	s.active = true
	return nil
}

// Active reports whether a transaction is open
func (s *Store) Active() bool {
	return s.active
}

// Save buffers events into the active transaction, keyed by their owning
// AggregateID in call order. Nothing reaches the Journal until Commit
func (s *Store) Save(events []*Event) error {
	if !s.active {
		return ErrNotInTransaction
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("save %s: %w", ev.AggregateID.Join(streamKeySep), err)
		}
	}
	for _, ev := range events {
		key := ev.AggregateID.Join(streamKeySep)
		if _, ok := s.pending[key]; !ok {
			s.touched = append(s.touched, key)
		}
		s.pending[key] = append(s.pending[key], ev)
	}
	return nil
}

// Commit appends every buffered batch to the Journal in one atomic write,
// stamps each event with a store-wide sequence assigned at commit time, and
// then publishes each aggregate's batch once. If the Journal append fails
// the transaction stays open so the caller can Rollback. Publish failures
// do not undo the commit; they surface as a *PublishError
func (s *Store) Commit(ctx context.Context) error {
	if !s.active {
		return ErrNotInTransaction
	}

	batches := make([]Batch, 0, len(s.touched))
	seq := s.seq
	for _, key := range s.touched {
		events := s.pending[key]
		for _, ev := range events {
			ev.Sequence = seq
			seq++
		}
		batches = append(batches, Batch{Key: key, Events: events})
	}

	if err := s.journal.Append(ctx, batches); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.seq = seq
	s.pending = map[string][]*Event{}
	s.touched = nil
	s.active = false

	var errs []error
	for _, b := range batches {
		if err := s.broker.Publish(ctx, b.Events); err != nil {
			s.log.Warn("publish after commit failed",
				zap.String("stream", b.Key),
				zap.Int("events", len(b.Events)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &PublishError{Errs: errs}
	}

	s.log.Debug("transaction committed",
		zap.Int("streams", len(batches)),
		zap.Int64("next_sequence", s.seq),
	)
	return nil
}

// Rollback discards every buffered event, leaving durable logs untouched
func (s *Store) Rollback() error {
	if !s.active {
		return ErrNotInTransaction
	}
	s.pending = map[string][]*Event{}
	s.touched = nil
	s.active = false
	return nil
}

// Load returns the committed log for an aggregate in append order. Events
// buffered by an open transaction are never visible
func (s *Store) Load(ctx context.Context, id AggregateID) ([]*Event, error) {
	return s.journal.Load(ctx, id.Join(streamKeySep))
}

// Counter increments and returns the store-scoped monotonic counter for a
// namespace, used by counter-derived ID strategies. Counters are not part
// of any transaction: identifiers handed out for a rolled-back transaction
// are never reissued
func (s *Store) Counter(namespace ID) int64 {
	s.counters[namespace]++
	return s.counters[namespace]
}

// Close releases the underlying Journal
func (s *Store) Close() error {
	return s.journal.Close()
}
