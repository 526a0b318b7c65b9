// Package cache is a read-through Redis layer in front of the event store.
// Only the upcoming-events listing is cached; every ledger mutation drops
// the cached listing so readers never see a stale roster count for long.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"communitylink/internal/event/models"
	"communitylink/internal/platform/metrics"
	id "communitylink/pkg/domain"
)

const upcomingKey = "events:upcoming"

// DefaultTTL bounds staleness when an invalidation is lost.
const DefaultTTL = 30 * time.Second

// Source is the store being decorated.
type Source interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Register(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error)
	Unregister(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error)
	Close(ctx context.Context, eventID id.EventID, actorID id.UserID, now time.Time) (*models.Event, error)
	Reopen(ctx context.Context, eventID id.EventID, now time.Time) (*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID) error
	ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Event, error)
	ListRegisteredBy(ctx context.Context, userID id.UserID) ([]*models.Event, error)
}

// Store decorates a Source with a Redis cache. Cache failures degrade to
// the underlying store; they are logged, never surfaced.
type Store struct {
	Source

	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func New(source Source, rdb *redis.Client, opts ...Option) *Store {
	s := &Store{
		Source: source,
		rdb:    rdb,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error) {
	if cached, ok := s.lookup(ctx); ok {
		s.metrics.IncrementCacheHit()
		return cached, nil
	}
	s.metrics.IncrementCacheMiss()

	events, err := s.Source.ListUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, events)
	return events, nil
}

func (s *Store) Create(ctx context.Context, event *models.Event) error {
	if err := s.Source.Create(ctx, event); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) Register(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	event, err := s.Source.Register(ctx, eventID, userID, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *Store) Unregister(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	event, err := s.Source.Unregister(ctx, eventID, userID, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *Store) Close(ctx context.Context, eventID id.EventID, actorID id.UserID, now time.Time) (*models.Event, error) {
	event, err := s.Source.Close(ctx, eventID, actorID, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *Store) Reopen(ctx context.Context, eventID id.EventID, now time.Time) (*models.Event, error) {
	event, err := s.Source.Reopen(ctx, eventID, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *Store) Delete(ctx context.Context, eventID id.EventID) error {
	if err := s.Source.Delete(ctx, eventID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) lookup(ctx context.Context) ([]*models.Event, bool) {
	raw, err := s.rdb.Get(ctx, upcomingKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "event cache read failed", "error", err)
		}
		return nil, false
	}
	var events []*models.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		s.logger.WarnContext(ctx, "event cache entry corrupt, dropping", "error", err)
		s.invalidate(ctx)
		return nil, false
	}
	return events, true
}

func (s *Store) fill(ctx context.Context, events []*models.Event) {
	raw, err := json.Marshal(events)
	if err != nil {
		s.logger.WarnContext(ctx, "event cache encode failed", "error", err)
		return
	}
	if err := s.rdb.Set(ctx, upcomingKey, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "event cache write failed", "error", err)
	}
}

func (s *Store) invalidate(ctx context.Context) {
	if err := s.rdb.Del(ctx, upcomingKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "event cache invalidation failed", "error", err)
	}
}
