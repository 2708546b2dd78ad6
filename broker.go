package chronicle

import (
	"context"
	"errors"
)

type (
	// Broker receives one committed batch per touched aggregate, invoked by
	// the Store immediately after the Journal append succeeds. A failed
	// publish is not rolled back into the already-committed transaction
	Broker interface {
		Publish(ctx context.Context, events []*Event) error
	}

	// BrokerFunc adapts a function to the Broker interface
	BrokerFunc func(context.Context, []*Event) error

	// ReadModelUpdater projects committed events into a read model
	ReadModelUpdater interface {
		Update(ctx context.Context, events []*Event) error
	}

	multiBroker []Broker

	updaterBroker struct {
		updater ReadModelUpdater
	}
)

func (f BrokerFunc) Publish(ctx context.Context, events []*Event) error {
	return f(ctx, events)
}

// NopBroker discards every batch
func NopBroker() Broker {
	return BrokerFunc(func(context.Context, []*Event) error {
		return nil
	})
}

// MultiBroker publishes each batch to every broker in order, joining any
// failures. A failing broker does not stop delivery to the rest
func MultiBroker(brokers ...Broker) Broker {
	return multiBroker(brokers)
}

func (m multiBroker) Publish(ctx context.Context, events []*Event) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpdaterBroker feeds committed batches into a ReadModelUpdater
func UpdaterBroker(u ReadModelUpdater) Broker {
	return &updaterBroker{updater: u}
}

func (b *updaterBroker) Publish(ctx context.Context, events []*Event) error {
	return b.updater.Update(ctx, events)
}
