package audit

import (
	"context"
	"errors"
	"time"

	id "communitylink/pkg/domain"
)

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEvent(ctx context.Context, eventID id.EventID) ([]Event, error)
}

// Sink receives a copy of every emitted event without a read path (e.g. the
// Kafka producer).
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily.
// Additional sinks receive the same events best-effort.
type Publisher struct {
	store Store
	sinks []Sink
}

type Option func(*Publisher)

// WithSink adds a secondary delivery target alongside the primary store.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		err = errors.Join(err, sink.Append(ctx, event))
	}
	return err
}

func (p *Publisher) ListByEvent(ctx context.Context, eventID id.EventID) ([]Event, error) {
	return p.store.ListByEvent(ctx, eventID)
}
