package chronicle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/chronicle"
)

// countingJournal records how often the backend is actually read
type countingJournal struct {
	chronicle.Journal
	loads int
}

func (j *countingJournal) Load(
	ctx context.Context, key string,
) ([]*chronicle.Event, error) {
	j.loads++
	return j.Journal.Load(ctx, key)
}

func TestCachedJournalServesHits(t *testing.T) {
	ctx := context.Background()
	inner := &countingJournal{Journal: chronicle.NewMemoryJournal()}
	journal := chronicle.NewCachedJournal(inner, 16)

	id := chronicle.NewAggregateID("test", "1")
	err := journal.Append(ctx, []chronicle.Batch{
		{Key: "test:1", Events: []*chronicle.Event{
			domainEvent(t, id, "test.one"),
		}},
	})
	require.NoError(t, err)

	first, err := journal.Load(ctx, "test:1")
	require.NoError(t, err)
	second, err := journal.Load(ctx, "test:1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.loads)
}

func TestCachedJournalExtendsOnAppend(t *testing.T) {
	ctx := context.Background()
	inner := &countingJournal{Journal: chronicle.NewMemoryJournal()}
	journal := chronicle.NewCachedJournal(inner, 16)

	id := chronicle.NewAggregateID("test", "1")
	appendOne := func(typ chronicle.EventType) {
		err := journal.Append(ctx, []chronicle.Batch{
			{Key: "test:1", Events: []*chronicle.Event{
				domainEvent(t, id, typ),
			}},
		})
		require.NoError(t, err)
	}

	appendOne("test.one")
	_, err := journal.Load(ctx, "test:1")
	require.NoError(t, err)

	// Appends after the entry is cached extend it in place
	appendOne("test.two")
	events, err := journal.Load(ctx, "test:1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, chronicle.EventType("test.two"), events[1].Type)
	assert.Equal(t, 1, inner.loads)
}

func TestCachedJournalEvicts(t *testing.T) {
	ctx := context.Background()
	inner := &countingJournal{Journal: chronicle.NewMemoryJournal()}
	journal := chronicle.NewCachedJournal(inner, 1)

	a := chronicle.NewAggregateID("test", "a")
	b := chronicle.NewAggregateID("test", "b")
	err := journal.Append(ctx, []chronicle.Batch{
		{Key: "test:a", Events: []*chronicle.Event{
			domainEvent(t, a, "test.one"),
		}},
		{Key: "test:b", Events: []*chronicle.Event{
			domainEvent(t, b, "test.two"),
		}},
	})
	require.NoError(t, err)

	_, err = journal.Load(ctx, "test:a")
	require.NoError(t, err)
	_, err = journal.Load(ctx, "test:b") // evicts test:a
	require.NoError(t, err)
	_, err = journal.Load(ctx, "test:a")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.loads)

	// The evicted stream is still complete when reloaded
	events, err := journal.Load(ctx, "test:b")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStoreOverCachedJournal(t *testing.T) {
	ctx := context.Background()
	journal := chronicle.NewCachedJournal(chronicle.NewMemoryJournal(), 0)
	store := chronicle.NewStore(chronicle.Config{Journal: journal})

	orgs := newOrgCollection(t)
	id := createOrg(t, ctx, store, orgs, "acme", 3)

	require.NoError(t, store.Begin())
	require.NoError(t, orgs.HandleCommand(ctx, store, id, AddUser{
		UserID: "1", Reservation: "acme-1",
	}))
	require.NoError(t, store.Commit(ctx))

	state, err := orgs.Find(ctx, store, id)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Len(t, state.Users, 1)
}
