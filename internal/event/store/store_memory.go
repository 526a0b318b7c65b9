package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"communitylink/internal/event/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

// InMemory is the map-backed event store used by unit tests and local
// development. The mutex spans check and mutation on the registration path,
// so capacity is strict: concurrent registrations against a finite capacity
// can never overbook.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.EventID]*models.Event
}

// NewInMemory creates an empty in-memory event store.
func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.EventID]*models.Event)}
}

func (s *InMemory) Create(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return event.Clone(), nil
}

// Register applies the ordered registration gates and the roster mutation as
// one step under the write lock.
func (s *InMemory) Register(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := event.CanRegister(userID, now); err != nil {
		return nil, err
	}
	event.ApplyRegistration(userID, now)
	return event.Clone(), nil
}

func (s *InMemory) Unregister(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := event.CanUnregister(userID); err != nil {
		return nil, err
	}
	event.ApplyUnregistration(userID, now)
	return event.Clone(), nil
}

func (s *InMemory) Close(ctx context.Context, eventID id.EventID, actorID id.UserID, now time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := event.CanClose(); err != nil {
		return nil, err
	}
	event.ApplyClose(actorID, now)
	return event.Clone(), nil
}

func (s *InMemory) Reopen(ctx context.Context, eventID id.EventID, now time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := event.CanReopen(); err != nil {
		return nil, err
	}
	event.ApplyReopen(now)
	return event.Clone(), nil
}

func (s *InMemory) Delete(ctx context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	return nil
}

// ListUpcoming returns events whose date is today or later, soonest first.
func (s *InMemory) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Event
	for _, event := range s.events {
		if !event.Completed(now) {
			result = append(result, event.Clone())
		}
	}
	sortByStart(result)
	return result, nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Event
	for _, event := range s.events {
		if event.OwnerID == ownerID {
			result = append(result, event.Clone())
		}
	}
	sortByStart(result)
	return result, nil
}

func (s *InMemory) ListRegisteredBy(ctx context.Context, userID id.UserID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Event
	for _, event := range s.events {
		if event.IsRegistered(userID) {
			result = append(result, event.Clone())
		}
	}
	sortByStart(result)
	return result, nil
}

func sortByStart(events []*models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}
