//go:build integration

package store_test

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
	"communitylink/internal/event/store"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
	"communitylink/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	now      time.Time
	owner    id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "events"))
	s.now = time.Now().UTC().Truncate(time.Millisecond)
	s.owner = id.UserID(uuid.New())
}

func (s *PostgresStoreSuite) newEvent(capacity models.Capacity) *models.Event {
	event, err := models.NewEvent(s.owner, "Sewing Workshop", s.now.AddDate(0, 0, 7), capacity, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), event))
	return event
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	event := s.newEvent(models.Unlimited())
	event.Languages = []string{"English", "Arabic"}

	found, err := s.store.FindByID(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.Name, found.Name)
	s.Equal(event.OwnerID, found.OwnerID)
	s.True(found.Capacity.IsUnlimited())
	s.Equal(models.StatusActive, found.Status)
	s.Empty(found.RegisteredUsers)
}

func (s *PostgresStoreSuite) TestRegisterUnregister() {
	ctx := context.Background()
	capacity, err := models.Finite(2)
	s.Require().NoError(err)
	event := s.newEvent(capacity)
	member := id.UserID(uuid.New())

	updated, err := s.store.Register(ctx, event.ID, member, s.now)
	s.Require().NoError(err)
	s.Equal(1, updated.EnrolledCount)
	s.True(updated.IsRegistered(member))

	_, err = s.store.Register(ctx, event.ID, member, s.now)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyRegistered)

	updated, err = s.store.Unregister(ctx, event.ID, member, s.now)
	s.Require().NoError(err)
	s.Zero(updated.EnrolledCount)

	_, err = s.store.Unregister(ctx, event.ID, member, s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotRegistered)
}

// TestConcurrentRegistrationRowLock verifies the FOR UPDATE discipline:
// racing registrations serialize on the row lock and capacity stays strict.
func (s *PostgresStoreSuite) TestConcurrentRegistrationRowLock() {
	ctx := context.Background()
	const n = 30
	const c = 5

	capacity, err := models.Finite(c)
	s.Require().NoError(err)
	event := s.newEvent(capacity)

	var wg sync.WaitGroup
	var successes, capacityFailures atomic.Int32

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Register(ctx, event.ID, id.UserID(uuid.New()), s.now)
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

	final, err := s.store.FindByID(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(c, final.EnrolledCount)
	s.Len(final.RegisteredUsers, c)
}

func (s *PostgresStoreSuite) TestLifecycleAndDelete() {
	ctx := context.Background()
	event := s.newEvent(models.Unlimited())

	closed, err := s.store.Close(ctx, event.ID, s.owner, s.now)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, closed.Status)
	s.Equal(s.owner, closed.ClosedBy)
	s.NotNil(closed.ClosedAt)

	_, err = s.store.Close(ctx, event.ID, s.owner, s.now)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	reopened, err := s.store.Reopen(ctx, event.ID, s.now)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, reopened.Status)
	s.Nil(reopened.ClosedAt)

	s.Require().NoError(s.store.Delete(ctx, event.ID))
	_, err = s.store.FindByID(ctx, event.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListRegisteredBy() {
	ctx := context.Background()
	event := s.newEvent(models.Unlimited())
	member := id.UserID(uuid.New())

	_, err := s.store.Register(ctx, event.ID, member, s.now)
	s.Require().NoError(err)

	events, err := s.store.ListRegisteredBy(ctx, member)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(event.ID, events[0].ID)

	events, err = s.store.ListRegisteredBy(ctx, id.UserID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(events)
}
