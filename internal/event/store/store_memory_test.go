package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"communitylink/internal/event/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

type EventStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
	owner id.UserID
}

func (s *EventStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	s.owner = id.UserID(uuid.New())
}

func TestEventStoreSuite(t *testing.T) {
	suite.Run(t, new(EventStoreSuite))
}

func (s *EventStoreSuite) newEvent(capacity models.Capacity) *models.Event {
	event, err := models.NewEvent(s.owner, "Community Kitchen", s.now.AddDate(0, 0, 14), capacity, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, event))
	return event
}

func (s *EventStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds an event", func() {
		event := s.newEvent(models.Unlimited())

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(event.Name, found.Name)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewEventID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate IDs", func() {
		event := s.newEvent(models.Unlimited())
		s.Require().ErrorIs(s.store.Create(s.ctx, event), sentinel.ErrConflict)
	})
}

func (s *EventStoreSuite) TestRegisterOrderedGates() {
	capacity, err := models.Finite(2)
	s.Require().NoError(err)
	event := s.newEvent(capacity)

	userA := id.UserID(uuid.New())
	userB := id.UserID(uuid.New())
	userC := id.UserID(uuid.New())

	s.Run("fills the event to capacity", func() {
		updated, err := s.store.Register(s.ctx, event.ID, userA, s.now)
		s.Require().NoError(err)
		s.Equal(1, updated.EnrolledCount)

		updated, err = s.store.Register(s.ctx, event.ID, userB, s.now)
		s.Require().NoError(err)
		s.Equal(2, updated.EnrolledCount)
	})

	s.Run("unknown event reports not found", func() {
		_, err := s.store.Register(s.ctx, id.NewEventID(), userC, s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate beats capacity in the gate order", func() {
		_, err := s.store.Register(s.ctx, event.ID, userA, s.now)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyRegistered)
	})

	s.Run("full event reports capacity exhausted", func() {
		_, err := s.store.Register(s.ctx, event.ID, userC, s.now)
		s.Require().ErrorIs(err, sentinel.ErrCapacityExhausted)
	})

	s.Run("failed registration leaves state unchanged", func() {
		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(2, found.EnrolledCount)
		s.Len(found.RegisteredUsers, 2)
	})
}

// TestConcurrentRegistrationStrictCapacity is the core concurrency property:
// N racing registrations against capacity C end with exactly C successes and
// N-C capacity failures, and the counter equals the roster size equals C.
func (s *EventStoreSuite) TestConcurrentRegistrationStrictCapacity() {
	const n = 64
	const c = 10

	capacity, err := models.Finite(c)
	s.Require().NoError(err)
	event := s.newEvent(capacity)

	var wg sync.WaitGroup
	var successes, capacityFailures atomic.Int32

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Register(s.ctx, event.ID, id.UserID(uuid.New()), s.now)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrCapacityExhausted):
				capacityFailures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(c), successes.Load())
	s.Equal(int32(n-c), capacityFailures.Load())

	final, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(c, final.EnrolledCount)
	s.Len(final.RegisteredUsers, c)
}

func (s *EventStoreSuite) TestUnregister() {
	event := s.newEvent(models.Unlimited())
	member := id.UserID(uuid.New())
	_, err := s.store.Register(s.ctx, event.ID, member, s.now)
	s.Require().NoError(err)

	s.Run("removes membership and decrements the counter", func() {
		updated, err := s.store.Unregister(s.ctx, event.ID, member, s.now)
		s.Require().NoError(err)
		s.Zero(updated.EnrolledCount)
		s.Empty(updated.RegisteredUsers)
	})

	s.Run("second unregister reports not registered", func() {
		_, err := s.store.Unregister(s.ctx, event.ID, member, s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotRegistered)
	})
}

func (s *EventStoreSuite) TestLifecycle() {
	event := s.newEvent(models.Unlimited())
	member := id.UserID(uuid.New())
	_, err := s.store.Register(s.ctx, event.ID, member, s.now)
	s.Require().NoError(err)

	s.Run("close then reopen preserves the roster", func() {
		closed, err := s.store.Close(s.ctx, event.ID, s.owner, s.now)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, closed.Status)
		s.Equal(1, closed.EnrolledCount)

		reopened, err := s.store.Reopen(s.ctx, event.ID, s.now)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, reopened.Status)
		s.Equal(1, reopened.EnrolledCount)
	})

	s.Run("delete removes the event permanently", func() {
		s.Require().NoError(s.store.Delete(s.ctx, event.ID))

		_, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().ErrorIs(s.store.Delete(s.ctx, event.ID), sentinel.ErrNotFound)
	})
}

func (s *EventStoreSuite) TestListings() {
	upcoming := s.newEvent(models.Unlimited())

	past, err := models.NewEvent(s.owner, "Last Month Meetup", s.now.AddDate(0, -1, 0), models.Unlimited(), s.now.AddDate(0, -2, 0))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, past))

	otherOwner := id.UserID(uuid.New())
	other, err := models.NewEvent(otherOwner, "Job Fair", s.now.AddDate(0, 0, 3), models.Unlimited(), s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, other))

	member := id.UserID(uuid.New())
	_, err = s.store.Register(s.ctx, other.ID, member, s.now)
	s.Require().NoError(err)

	s.Run("upcoming excludes completed events and sorts by date", func() {
		events, err := s.store.ListUpcoming(s.ctx, s.now)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(other.ID, events[0].ID)
		s.Equal(upcoming.ID, events[1].ID)
	})

	s.Run("by owner returns only that owner's events", func() {
		events, err := s.store.ListByOwner(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		for _, e := range events {
			s.Equal(s.owner, e.OwnerID)
		}
	})

	s.Run("registered-by returns the user's memberships", func() {
		events, err := s.store.ListRegisteredBy(s.ctx, member)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(other.ID, events[0].ID)
	})
}
