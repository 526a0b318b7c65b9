package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks EventStore,ProfileGate,UserDirectory,AuditPublisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"communitylink/internal/audit"
	"communitylink/internal/event/models"
	"communitylink/internal/event/service/mocks"
	usermodels "communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/sentinel"
	"communitylink/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	ctrl          *gomock.Controller
	mockStore     *mocks.MockEventStore
	mockProfiles  *mocks.MockProfileGate
	mockUsers     *mocks.MockUserDirectory
	mockAuditSink *mocks.MockAuditPublisher
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockEventStore(s.ctrl)
	s.mockProfiles = mocks.NewMockProfileGate(s.ctrl)
	s.mockUsers = mocks.NewMockUserDirectory(s.ctrl)
	s.mockAuditSink = mocks.NewMockAuditPublisher(s.ctrl)
	s.service = New(s.mockStore, s.mockProfiles, s.mockUsers,
		WithAuditPublisher(s.mockAuditSink))
}

func ngoContext() context.Context {
	return requestcontext.WithUserRole(context.Background(), string(usermodels.RoleNGO))
}

func (s *ServiceSuite) finite(n int) models.Capacity {
	capacity, err := models.Finite(n)
	s.Require().NoError(err)
	return capacity
}

func (s *ServiceSuite) newActiveEvent(ownerID id.UserID, capacity models.Capacity) *models.Event {
	event, err := models.NewEvent(ownerID, "River Cleanup", time.Now().AddDate(0, 1, 0), capacity, time.Now())
	s.Require().NoError(err)
	return event
}

func (s *ServiceSuite) TestCreate_Authorization() {
	ownerID := id.UserID(uuid.New())
	req := &models.CreateEventRequest{
		Name:     "Language Cafe",
		StartsAt: time.Now().AddDate(0, 0, 7).Format(time.RFC3339),
		Capacity: models.Unlimited(),
	}

	s.Run("non-NGO role is forbidden", func() {
		ctx := requestcontext.WithUserRole(context.Background(), string(usermodels.RoleUser))
		_, err := s.service.Create(ctx, ownerID, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing profile is forbidden", func() {
		s.mockProfiles.EXPECT().Exists(gomock.Any(), ownerID).Return(false, nil)
		_, err := s.service.Create(ngoContext(), ownerID, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("valid request creates and audits", func() {
		s.mockProfiles.EXPECT().Exists(gomock.Any(), ownerID).Return(true, nil)
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionEventCreated, e.Action)
				s.Equal(ownerID, e.ActorID)
				return nil
			})

		event, err := s.service.Create(ngoContext(), ownerID, req)
		s.Require().NoError(err)
		s.Equal(ownerID, event.OwnerID)
		s.Equal(models.StatusActive, event.Status)
		s.Zero(event.EnrolledCount)
	})
}

func (s *ServiceSuite) TestCreate_Validation() {
	ownerID := id.UserID(uuid.New())

	s.Run("missing name is a bad request", func() {
		s.mockProfiles.EXPECT().Exists(gomock.Any(), ownerID).Return(true, nil)
		_, err := s.service.Create(ngoContext(), ownerID, &models.CreateEventRequest{
			StartsAt: time.Now().Format(time.RFC3339),
			Capacity: models.Unlimited(),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("omitted capacity is a bad request", func() {
		// A body without a capacity field decodes to the zero Capacity,
		// which would otherwise persist as a finite bound of zero and
		// reject its first-ever registration as full.
		s.mockProfiles.EXPECT().Exists(gomock.Any(), ownerID).Return(true, nil)
		_, err := s.service.Create(ngoContext(), ownerID, &models.CreateEventRequest{
			Name:     "Picnic",
			StartsAt: time.Now().Format(time.RFC3339),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("malformed starts_at is a bad request", func() {
		s.mockProfiles.EXPECT().Exists(gomock.Any(), ownerID).Return(true, nil)
		_, err := s.service.Create(ngoContext(), ownerID, &models.CreateEventRequest{
			Name:     "Picnic",
			StartsAt: "next tuesday",
			Capacity: models.Unlimited(),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestRegister_TranslatesStoreFacts() {
	ctx := context.Background()
	eventID := id.NewEventID()
	userID := id.UserID(uuid.New())

	cases := []struct {
		name     string
		storeErr error
		wantCode dErrors.Code
		wantMsg  string
	}{
		{"duplicate", sentinel.ErrAlreadyRegistered, dErrors.CodeAlreadyRegistered, "user is already registered for this event"},
		{"full", sentinel.ErrCapacityExhausted, dErrors.CodeCapacityExceeded, "event is full"},
		{"closed", models.ErrEventClosed, dErrors.CodeEventClosed, "event is closed to new registrations"},
		{"completed", models.ErrEventCompleted, dErrors.CodeEventClosed, "event date has passed"},
		{"missing", sentinel.ErrNotFound, dErrors.CodeNotFound, "event not found"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.mockStore.EXPECT().Register(gomock.Any(), eventID, userID, gomock.Any()).Return(nil, tc.storeErr)
			_, err := s.service.Register(ctx, eventID, userID)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.wantCode))
			s.Equal(tc.wantMsg, dErrors.MessageOf(err))
		})
	}
}

func (s *ServiceSuite) TestRegister_Success() {
	eventID := id.NewEventID()
	userID := id.UserID(uuid.New())
	event := s.newActiveEvent(id.UserID(uuid.New()), s.finite(10))
	event.ApplyRegistration(userID, time.Now())

	s.mockStore.EXPECT().Register(gomock.Any(), eventID, userID, gomock.Any()).Return(event, nil)
	s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal(audit.ActionUserRegistered, e.Action)
			s.Equal(eventID, e.EventID)
			return nil
		})

	got, err := s.service.Register(context.Background(), eventID, userID)
	s.Require().NoError(err)
	s.Equal(1, got.EnrolledCount)
	s.Len(got.RegisteredUsers, got.EnrolledCount)
}

func (s *ServiceSuite) TestUnregister() {
	eventID := id.NewEventID()
	userID := id.UserID(uuid.New())

	s.Run("not registered translates", func() {
		s.mockStore.EXPECT().Unregister(gomock.Any(), eventID, userID, gomock.Any()).Return(nil, sentinel.ErrNotRegistered)
		_, err := s.service.Unregister(context.Background(), eventID, userID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("success audits a withdrawal", func() {
		event := s.newActiveEvent(id.UserID(uuid.New()), models.Unlimited())
		s.mockStore.EXPECT().Unregister(gomock.Any(), eventID, userID, gomock.Any()).Return(event, nil)
		s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionUserWithdrew, e.Action)
				return nil
			})

		_, err := s.service.Unregister(context.Background(), eventID, userID)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestClose_OwnerOnly() {
	ownerID := id.UserID(uuid.New())
	stranger := id.UserID(uuid.New())
	event := s.newActiveEvent(ownerID, models.Unlimited())

	s.Run("non-owner is forbidden", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		_, err := s.service.Close(context.Background(), event.ID, stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("owner closes, roster preserved", func() {
		registrant := id.UserID(uuid.New())
		event.ApplyRegistration(registrant, time.Now())
		closed := event.Clone()
		closed.ApplyClose(ownerID, time.Now())

		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		s.mockStore.EXPECT().Close(gomock.Any(), event.ID, ownerID, gomock.Any()).Return(closed, nil)
		s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		got, err := s.service.Close(context.Background(), event.ID, ownerID)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, got.Status)
		s.True(got.IsRegistered(registrant))
		s.Equal(1, got.EnrolledCount)
		s.NotNil(got.ClosedAt)
		s.Equal(ownerID, got.ClosedBy)
	})

	s.Run("closing twice conflicts", func() {
		alreadyClosed := event.Clone()
		alreadyClosed.ApplyClose(ownerID, time.Now())
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(alreadyClosed, nil)
		s.mockStore.EXPECT().Close(gomock.Any(), event.ID, ownerID, gomock.Any()).Return(nil, sentinel.ErrInvalidState)

		_, err := s.service.Close(context.Background(), event.ID, ownerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestReopen() {
	ownerID := id.UserID(uuid.New())
	event := s.newActiveEvent(ownerID, s.finite(5))
	event.ApplyClose(ownerID, time.Now())

	reopened := event.Clone()
	reopened.ApplyReopen(time.Now())

	s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
	s.mockStore.EXPECT().Reopen(gomock.Any(), event.ID, gomock.Any()).Return(reopened, nil)
	s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	got, err := s.service.Reopen(context.Background(), event.ID, ownerID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
	s.Nil(got.ClosedAt)
	s.True(got.ClosedBy.IsNil())
}

func (s *ServiceSuite) TestDelete() {
	ownerID := id.UserID(uuid.New())
	event := s.newActiveEvent(ownerID, models.Unlimited())

	s.Run("non-owner forbidden", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		err := s.service.Delete(context.Background(), event.ID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("owner deletes", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		s.mockStore.EXPECT().Delete(gomock.Any(), event.ID).Return(nil)
		s.mockAuditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		s.Require().NoError(s.service.Delete(context.Background(), event.ID, ownerID))
	})

	s.Run("deleted event is gone", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(context.Background(), event.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListAttendees() {
	ownerID := id.UserID(uuid.New())
	event := s.newActiveEvent(ownerID, models.Unlimited())

	alice := &usermodels.User{ID: id.UserID(uuid.New()), DisplayName: "Alice", Email: "alice@example.org"}
	ghost := id.UserID(uuid.New())
	bob := &usermodels.User{ID: id.UserID(uuid.New()), DisplayName: "Bob"}
	for _, u := range []id.UserID{alice.ID, ghost, bob.ID} {
		event.ApplyRegistration(u, time.Now())
	}

	s.Run("non-owner forbidden", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		_, err := s.service.ListAttendees(context.Background(), event.ID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unresolvable roster entries are skipped", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), event.ID).Return(event, nil)
		s.mockUsers.EXPECT().FindByID(gomock.Any(), alice.ID).Return(alice, nil)
		s.mockUsers.EXPECT().FindByID(gomock.Any(), ghost).Return(nil, sentinel.ErrNotFound)
		s.mockUsers.EXPECT().FindByID(gomock.Any(), bob.ID).Return(bob, nil)

		attendees, err := s.service.ListAttendees(context.Background(), event.ID, ownerID)
		s.Require().NoError(err)
		s.Require().Len(attendees, 2)
		s.Equal("Alice", attendees[0].DisplayName)
		s.Equal("Bob", attendees[1].DisplayName)
	})
}
