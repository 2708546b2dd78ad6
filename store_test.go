package chronicle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/chronicle"
)

func domainEvent(
	t *testing.T, id chronicle.AggregateID, typ chronicle.EventType,
) *chronicle.Event {
	t.Helper()
	ev, err := chronicle.NewEvent(typ, map[string]int{"n": 1})
	require.NoError(t, err)
	ev.AggregateID = id
	return ev
}

func TestTransactionStates(t *testing.T) {
	ctx := context.Background()
	store := chronicle.NewStore(chronicle.Config{})

	assert.False(t, store.Active())
	assert.ErrorIs(t, store.Commit(ctx), chronicle.ErrNotInTransaction)
	assert.ErrorIs(t, store.Rollback(), chronicle.ErrNotInTransaction)

	id := chronicle.NewAggregateID("test", "1")
	err := store.Save([]*chronicle.Event{domainEvent(t, id, "test.event")})
	assert.ErrorIs(t, err, chronicle.ErrNotInTransaction)

	require.NoError(t, store.Begin())
	assert.True(t, store.Active())
	assert.ErrorIs(t, store.Begin(), chronicle.ErrTransactionActive)

	require.NoError(t, store.Rollback())
	assert.False(t, store.Active())
}

func TestSaveValidates(t *testing.T) {
	store := chronicle.NewStore(chronicle.Config{})
	require.NoError(t, store.Begin())

	ev, err := chronicle.NewEvent("test.event", 1)
	require.NoError(t, err)

	// No aggregate id
	err = store.Save([]*chronicle.Event{ev})
	assert.ErrorIs(t, err, chronicle.ErrEmptyAggregateID)

	ev.AggregateID = chronicle.NewAggregateID("test", "1")
	ev.Type = ""
	err = store.Save([]*chronicle.Event{ev})
	assert.ErrorIs(t, err, chronicle.ErrMissingEventType)
}

func TestAtomicMultiIDCommit(t *testing.T) {
	ctx := context.Background()
	store := chronicle.NewStore(chronicle.Config{})

	a := chronicle.NewAggregateID("test", "a")
	b := chronicle.NewAggregateID("test", "b")

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, a, "test.first"),
		domainEvent(t, b, "test.second"),
		domainEvent(t, a, "test.third"),
	}))

	// Nothing durable before commit
	events, err := store.Load(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, events)
	events, err = store.Load(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, store.Commit(ctx))
	assert.False(t, store.Active())

	events, err = store.Load(ctx, a)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, chronicle.EventType("test.first"), events[0].Type)
	assert.Equal(t, chronicle.EventType("test.third"), events[1].Type)

	events, err = store.Load(ctx, b)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, chronicle.EventType("test.second"), events[0].Type)
}

func TestRollbackDiscardsBuffers(t *testing.T) {
	ctx := context.Background()
	store := chronicle.NewStore(chronicle.Config{})
	id := chronicle.NewAggregateID("test", "1")

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, id, "test.event"),
	}))
	require.NoError(t, store.Rollback())

	events, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, events)

	// The next transaction starts clean
	require.NoError(t, store.Begin())
	require.NoError(t, store.Commit(ctx))
	events, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCommitPublishesPerAggregate(t *testing.T) {
	ctx := context.Background()

	var published [][]*chronicle.Event
	broker := chronicle.BrokerFunc(
		func(_ context.Context, events []*chronicle.Event) error {
			published = append(published, events)
			return nil
		},
	)
	store := chronicle.NewStore(chronicle.Config{Broker: broker})

	a := chronicle.NewAggregateID("test", "a")
	b := chronicle.NewAggregateID("test", "b")

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, a, "test.one"),
		domainEvent(t, b, "test.two"),
		domainEvent(t, a, "test.three"),
	}))

	assert.Empty(t, published) // nothing before commit
	require.NoError(t, store.Commit(ctx))

	require.Len(t, published, 2) // one publish per touched id
	assert.Len(t, published[0], 2)
	assert.Len(t, published[1], 1)
}

func TestCommitSequencing(t *testing.T) {
	ctx := context.Background()
	store := chronicle.NewStore(chronicle.Config{})

	a := chronicle.NewAggregateID("test", "a")
	b := chronicle.NewAggregateID("test", "b")

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, a, "test.one"),
		domainEvent(t, b, "test.two"),
	}))
	require.NoError(t, store.Commit(ctx))

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, a, "test.three"),
	}))
	require.NoError(t, store.Commit(ctx))

	var all []*chronicle.Event
	for _, id := range []chronicle.AggregateID{a, b} {
		events, err := store.Load(ctx, id)
		require.NoError(t, err)
		all = append(all, events...)
	}

	// Store-wide sequence assigned at commit time, unique across streams
	seen := map[int64]bool{}
	for _, ev := range all {
		assert.False(t, seen[ev.Sequence])
		seen[ev.Sequence] = true
	}
	assert.Len(t, seen, 3)
}

func TestPublishFailureAfterCommit(t *testing.T) {
	ctx := context.Background()
	broker := chronicle.BrokerFunc(
		func(context.Context, []*chronicle.Event) error {
			return assert.AnError
		},
	)
	store := chronicle.NewStore(chronicle.Config{Broker: broker})
	id := chronicle.NewAggregateID("test", "1")

	require.NoError(t, store.Begin())
	require.NoError(t, store.Save([]*chronicle.Event{
		domainEvent(t, id, "test.event"),
	}))

	err := store.Commit(ctx)
	var pubErr *chronicle.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.ErrorIs(t, err, assert.AnError)

	// The commit itself is durable and the store is idle again
	assert.False(t, store.Active())
	events, loadErr := store.Load(ctx, id)
	require.NoError(t, loadErr)
	assert.Len(t, events, 1)
}

func TestCounter(t *testing.T) {
	store := chronicle.NewStore(chronicle.Config{})
	assert.Equal(t, int64(1), store.Counter("user"))
	assert.Equal(t, int64(2), store.Counter("user"))
	assert.Equal(t, int64(1), store.Counter("order"))
}
