package chronicle

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type (
	// Saga sequences a cross-aggregate workflow as an ordered list of
	// steps, each wrapped in its own Store transaction. A step that fails
	// has only its own transaction rolled back: steps already committed
	// stay durable. There is no cross-step compensation; callers needing
	// it must record compensating actions themselves, typically from the
	// Backlog the completion hook advances
	Saga struct {
		store  *Store
		log    *zap.Logger
		steps  []Step
		onDone StepCompleted
	}

	// Step is one transactional unit of a Saga
	Step struct {
		Name string
		Run  func(context.Context) error
	}

	// StepCompleted runs after a step's transaction commits, before the
	// next step begins. The orchestrator uses it to advance a Backlog
	StepCompleted func(index int, step Step)

	// SagaConfig assembles a Saga
	SagaConfig struct {
		Store     *Store
		Logger    *zap.Logger
		Completed StepCompleted
	}
)

var (
	ErrMissingStore = errors.New("saga requires a store")
	ErrNoSteps      = errors.New("saga requires at least one step")
)

func NewSaga(cfg SagaConfig, steps ...Step) (*Saga, error) {
	if cfg.Store == nil {
		return nil, ErrMissingStore
	}
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Saga{
		store:  cfg.Store,
		log:    cfg.Logger,
		steps:  steps,
		onDone: cfg.Completed,
	}, nil
}

// Run executes the steps in order, one transaction each. The returned
// *StepError names the step whose transaction was rolled back; every step
// before it committed and remains durable. A committed step whose publish
// failed is logged and treated as completed
func (sg *Saga) Run(ctx context.Context) error {
	for i, st := range sg.steps {
		if err := sg.runStep(ctx, i, st); err != nil {
			return err
		}
		if sg.onDone != nil {
			sg.onDone(i, st)
		}
	}
	return nil
}

func (sg *Saga) runStep(ctx context.Context, i int, st Step) error {
	if err := sg.store.Begin(); err != nil {
		return &StepError{Step: st.Name, Index: i, Err: err}
	}

	if err := st.Run(ctx); err != nil {
		sg.rollback(st, err)
		return &StepError{Step: st.Name, Index: i, Err: err}
	}

	if err := sg.store.Commit(ctx); err != nil {
		var pubErr *PublishError
		if errors.As(err, &pubErr) {
			// Log remains committed; the step counts as completed
			sg.log.Warn("step committed but publish failed",
				zap.String("step", st.Name),
				zap.Error(err),
			)
			return nil
		}
		sg.rollback(st, err)
		return &StepError{Step: st.Name, Index: i, Err: err}
	}

	sg.log.Debug("step committed", zap.String("step", st.Name))
	return nil
}

func (sg *Saga) rollback(st Step, cause error) {
	if err := sg.store.Rollback(); err != nil {
		sg.log.Error("rollback failed",
			zap.String("step", st.Name),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	sg.log.Warn("step rolled back",
		zap.String("step", st.Name),
		zap.Error(cause),
	)
}
