package chronicle

import (
	"container/list"
	"context"
	"sync"
)

type (
	// CachedJournal wraps a Journal with an LRU of decoded committed logs.
	// Because logs are append-only and only change through Append, cached
	// entries stay consistent: a successful Append extends the cached log
	// in place, and Load serves hits without touching the backend
	CachedJournal struct {
		inner   Journal
		mu      sync.Mutex
		cache   map[string]*list.Element
		lru     *list.List
		maxSize int
	}

	logEntry struct {
		key    string
		events []*Event
	}
)

// NewCachedJournal wraps inner; maxSize <= 0 falls back to DefaultCacheSize
func NewCachedJournal(inner Journal, maxSize int) *CachedJournal {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &CachedJournal{
		inner:   inner,
		cache:   map[string]*list.Element{},
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (j *CachedJournal) Append(ctx context.Context, batches []Batch) error {
	if err := j.inner.Append(ctx, batches); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, b := range batches {
		if elem, ok := j.cache[b.Key]; ok {
			entry := elem.Value.(*logEntry)
			entry.events = append(entry.events, b.Events...)
			j.lru.MoveToFront(elem)
		}
	}
	return nil
}

func (j *CachedJournal) Load(
	ctx context.Context, key string,
) ([]*Event, error) {
	j.mu.Lock()
	if elem, ok := j.cache[key]; ok {
		j.lru.MoveToFront(elem)
		res := copyEvents(elem.Value.(*logEntry).events)
		j.mu.Unlock()
		return res, nil
	}
	j.mu.Unlock()

	events, err := j.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if elem, ok := j.cache[key]; ok {
		// Another caller populated the entry while we were loading
		j.lru.MoveToFront(elem)
		return copyEvents(elem.Value.(*logEntry).events), nil
	}
	elem := j.lru.PushFront(&logEntry{key: key, events: events})
	j.cache[key] = elem
	if j.lru.Len() > j.maxSize {
		j.evictLast()
	}
	return copyEvents(events), nil
}

func (j *CachedJournal) Close() error {
	return j.inner.Close()
}

func (j *CachedJournal) evictLast() {
	back := j.lru.Back()
	if back != nil {
		j.lru.Remove(back)
		delete(j.cache, back.Value.(*logEntry).key)
	}
}

func copyEvents(events []*Event) []*Event {
	res := make([]*Event, len(events))
	copy(res, events)
	return res
}
