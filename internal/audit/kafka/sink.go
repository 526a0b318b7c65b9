// Package kafka publishes audit events to a Kafka topic so downstream
// consumers (reporting, compliance) can tail the trail without touching
// the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"communitylink/internal/audit"
)

const DefaultTopic = "communitylink.audit"

// record is the wire shape published per audit event.
type record struct {
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	EventID   string `json:"event_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Sink produces one JSON record per audit event, keyed by the ledger event
// id so per-event ordering is preserved within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*Sink)

func WithTopic(topic string) Option {
	return func(s *Sink) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSink(brokers []string, opts ...Option) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s := &Sink{client: client, topic: DefaultTopic, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append publishes the event asynchronously. Delivery failures are logged,
// not surfaced: the database trail is the source of truth and a broker
// outage must not fail ledger mutations.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ActorID:   event.ActorID.String(),
		Action:    string(event.Action),
		EventID:   eventKey(event),
		Reason:    event.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	s.client.Produce(ctx, &kgo.Record{
		Topic: s.topic,
		Key:   []byte(eventKey(event)),
		Value: payload,
	}, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit publish failed",
				"topic", r.Topic,
				"action", string(event.Action),
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (s *Sink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	s.client.Close()
	return nil
}

func eventKey(event audit.Event) string {
	if event.EventID.IsNil() {
		return ""
	}
	return event.EventID.String()
}
