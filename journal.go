package chronicle

import (
	"context"
	"sync"
)

type (
	// Batch is the events appended to one stream within a single commit
	Batch struct {
		Key    string
		Events []*Event
	}

	// Journal is the durable, append-only, per-stream storage beneath a
	// Store. Append is atomic across every batch it is handed: either all
	// streams gain their events or none do
	Journal interface {
		Append(ctx context.Context, batches []Batch) error
		Load(ctx context.Context, key string) ([]*Event, error)
		Close() error
	}

	memoryJournal struct {
		mu      sync.RWMutex
		streams map[string][]*Event
	}
)

// NewMemoryJournal returns a process-local Journal, the default backing for
// a Store and the reference implementation for the Append contract
func NewMemoryJournal() Journal {
	return &memoryJournal{
		streams: map[string][]*Event{},
	}
}

func (j *memoryJournal) Append(_ context.Context, batches []Batch) error {
	if len(batches) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, b := range batches {
		j.streams[b.Key] = append(j.streams[b.Key], b.Events...)
	}
	return nil
}

func (j *memoryJournal) Load(_ context.Context, key string) ([]*Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	stream, ok := j.streams[key]
	if !ok {
		return nil, nil
	}
	res := make([]*Event, len(stream))
	copy(res, stream)
	return res, nil
}

func (j *memoryJournal) Close() error {
	return nil
}
