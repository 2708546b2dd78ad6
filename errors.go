package chronicle

import (
	"errors"
	"fmt"
)

type (
	// NotFoundError indicates an aggregate that is absent or tombstoned
	NotFoundError struct {
		ID AggregateID
	}

	// InvalidEventError indicates an event in an unexpected log position,
	// such as a non-empty log that does not begin with a creation event
	InvalidEventError struct {
		Event *Event
	}

	// CommandError wraps a domain error raised while handling a command
	// against a specific aggregate. No events are persisted for the call
	CommandError struct {
		ID  AggregateID
		Err error
	}

	// PublishError reports broker failures for one or more aggregates after
	// a commit. The commit itself is durable and is not undone
	PublishError struct {
		Errs []error
	}

	// StepError identifies the saga step whose transaction was rolled back.
	// Steps before Index committed and remain durable
	StepError struct {
		Step  string
		Index int
		Err   error
	}
)

var (
	// ErrNotInTransaction indicates a store operation that requires an
	// active transaction was invoked while the store was idle
	ErrNotInTransaction = errors.New("not in transaction")

	// ErrTransactionActive indicates Begin was called while a transaction
	// was already active
	ErrTransactionActive = errors.New("transaction already active")
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("aggregate not found: %s", e.ID.Join(":"))
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf(
		"invalid event for %s: kind %d at sequence %d",
		e.Event.AggregateID.Join(":"), e.Event.Kind, e.Event.Sequence,
	)
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command on %s: %s", e.ID.Join(":"), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish after commit: %s", errors.Join(e.Errs...))
}

func (e *PublishError) Unwrap() []error {
	return e.Errs
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q (%d): %s", e.Step, e.Index, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
