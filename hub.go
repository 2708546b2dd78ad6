package chronicle

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type (
	// EventHub fans committed events out to in-process consumers, filtered
	// by their declared interests. It implements Broker, so it can be wired
	// directly into a Store. Consumer channels are buffered; a consumer
	// that falls behind loses events rather than stalling the publisher
	EventHub struct {
		mu        sync.RWMutex
		log       *zap.Logger
		buffer    int
		nextID    int64
		consumers map[int64]*Consumer
		subs      map[subKey]int
		allCount  int
	}

	// Consumer receives events matching its interests
	Consumer struct {
		hub       *EventHub
		id        int64
		ch        chan *Event
		interests interests
		closeOnce sync.Once
	}

	// interests describes which events a consumer wants
	interests struct {
		types  map[EventType]bool // empty = all event types
		prefix AggregateID        // nil = all aggregates
	}

	subKey struct {
		typ    EventType // "" = any type
		prefix string    // "" = any aggregate
	}
)

const aggIDSep = "\x00"

// NewEventHub creates an EventHub. Zero fields in cfg fall back to the
// defaults from DefaultHubConfig
func NewEventHub(cfg HubConfig) *EventHub {
	cfg = cfg.withDefaults()
	return &EventHub{
		log:       cfg.Logger,
		buffer:    cfg.Buffer,
		consumers: map[int64]*Consumer{},
		subs:      map[subKey]int{},
	}
}

// NewConsumer creates a consumer interested in specific event types. If no
// event types are specified, the consumer receives all events
func (eh *EventHub) NewConsumer(eventTypes ...EventType) *Consumer {
	return eh.newConsumer(interests{types: typeSet(eventTypes)})
}

// NewAggregateConsumer creates a consumer interested in events from
// aggregates matching the provided prefix. If no event types are specified,
// the consumer receives all events for aggregates matching the prefix
func (eh *EventHub) NewAggregateConsumer(
	prefix AggregateID, eventTypes ...EventType,
) *Consumer {
	return eh.newConsumer(interests{
		types:  typeSet(eventTypes),
		prefix: normalizePrefix(prefix),
	})
}

func (eh *EventHub) newConsumer(i interests) *Consumer {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.nextID++
	c := &Consumer{
		hub:       eh,
		id:        eh.nextID,
		ch:        make(chan *Event, eh.buffer),
		interests: i,
	}
	eh.consumers[c.id] = c
	eh.register(i, 1)
	return c
}

// Publish delivers one committed batch to every matching consumer. It
// never fails: events dropped on a full consumer buffer are logged
func (eh *EventHub) Publish(_ context.Context, events []*Event) error {
	eh.mu.RLock()
	defer eh.mu.RUnlock()

	for _, ev := range events {
		for _, c := range eh.consumers {
			if !c.interests.matches(ev) {
				continue
			}
			select {
			case c.ch <- ev:
			default:
				eh.log.Warn("consumer buffer full, dropping event",
					zap.String("aggregate_id", ev.AggregateID.Join(":")),
					zap.String("type", string(ev.Type)),
					zap.Int64("sequence", ev.Sequence),
				)
			}
		}
	}
	return nil
}

// HasSubscribers checks whether any active consumer would receive an event
// of the given type for the given aggregate
func (eh *EventHub) HasSubscribers(
	eventType EventType, aggregateID AggregateID,
) bool {
	eh.mu.RLock()
	defer eh.mu.RUnlock()

	if eh.allCount > 0 {
		return true
	}
	key := aggregateID.Join(aggIDSep)
	for sk, n := range eh.subs {
		if n <= 0 {
			continue
		}
		if sk.typ != "" && sk.typ != eventType {
			continue
		}
		if sk.prefix != "" && !keyHasPrefix(key, sk.prefix) {
			continue
		}
		return true
	}
	return false
}

// register adjusts subscription refcounts; delta is +1 or -1
func (eh *EventHub) register(i interests, delta int) {
	if i.prefix == nil && len(i.types) == 0 {
		eh.allCount += delta
		return
	}
	prefix := i.prefix.Join(aggIDSep)
	if len(i.types) == 0 {
		eh.bump(subKey{prefix: prefix}, delta)
		return
	}
	for typ := range i.types {
		eh.bump(subKey{typ: typ, prefix: prefix}, delta)
	}
}

func (eh *EventHub) bump(key subKey, delta int) {
	eh.subs[key] += delta
	if eh.subs[key] <= 0 {
		delete(eh.subs, key)
	}
}

// Receive returns the channel of events matching the consumer's interests
func (c *Consumer) Receive() <-chan *Event {
	return c.ch
}

// Close unregisters the consumer and closes its channel
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.hub.mu.Lock()
		defer c.hub.mu.Unlock()
		delete(c.hub.consumers, c.id)
		c.hub.register(c.interests, -1)
		close(c.ch)
	})
	return nil
}

func (i interests) matches(ev *Event) bool {
	if i.prefix != nil && !ev.AggregateID.HasPrefix(i.prefix) {
		return false
	}
	if len(i.types) > 0 && !i.types[ev.Type] {
		return false
	}
	return true
}

func typeSet(eventTypes []EventType) map[EventType]bool {
	if len(eventTypes) == 0 {
		return nil
	}
	types := make(map[EventType]bool, len(eventTypes))
	for _, et := range eventTypes {
		types[et] = true
	}
	return types
}

func normalizePrefix(prefix AggregateID) AggregateID {
	if len(prefix) == 0 {
		return nil
	}
	return prefix
}

func keyHasPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+aggIDSep)
}
