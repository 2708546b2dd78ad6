package chronicle

import (
	"errors"
	"time"
)

type (
	// Backlog tracks the status of one in-flight cross-aggregate workflow
	// instance through a fixed, ordered set of stages. It is an audit and
	// progress record for the orchestrator, not a correctness mechanism:
	// it performs no compensation, and it only ever moves forward
	Backlog[K comparable, D any] struct {
		id      K
		input   D
		stages  []Status
		index   int
		history []Transition
	}

	// Status names one stage of a workflow
	Status string

	// Transition records one resolved stage for audit
	Transition struct {
		Status Status
		Detail any
		At     time.Time
	}
)

var (
	// ErrNoStages indicates a Backlog was created without stages
	ErrNoStages = errors.New("backlog requires at least one stage")

	// ErrBacklogComplete indicates Resolve was called on a Backlog already
	// at its final stage
	ErrBacklogComplete = errors.New("backlog already at final stage")
)

// NewBacklog creates a Backlog at the first stage, carrying the workflow's
// input payload
func NewBacklog[K comparable, D any](
	id K, input D, stages ...Status,
) (*Backlog[K, D], error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	return &Backlog[K, D]{
		id:     id,
		input:  input,
		stages: stages,
		history: []Transition{
			{Status: stages[0], At: time.Now()},
		},
	}, nil
}

// ID returns the workflow instance's identifier
func (b *Backlog[K, D]) ID() K {
	return b.id
}

// Input returns the payload the workflow was started with
func (b *Backlog[K, D]) Input() D {
	return b.input
}

// Status returns the current stage
func (b *Backlog[K, D]) Status() Status {
	return b.stages[b.index]
}

// Done reports whether the final stage has been reached
func (b *Backlog[K, D]) Done() bool {
	return b.index == len(b.stages)-1
}

// Resolve overwrites the status with the next stage and returns it. The
// detail is recorded in the transition history. Resolving past the final
// stage fails with ErrBacklogComplete and does not move the backlog
func (b *Backlog[K, D]) Resolve(detail any) (Status, error) {
	if b.Done() {
		return b.Status(), ErrBacklogComplete
	}
	b.index++
	b.history = append(b.history, Transition{
		Status: b.Status(),
		Detail: detail,
		At:     time.Now(),
	})
	return b.Status(), nil
}

// History returns the transitions recorded so far, oldest first
func (b *Backlog[K, D]) History() []Transition {
	res := make([]Transition, len(b.history))
	copy(res, b.history)
	return res
}
