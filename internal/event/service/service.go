// Package service orchestrates the event registration ledger. Stores hold
// the concurrency guard; this layer owns authorization, error translation,
// auditing and read-side aggregation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"communitylink/internal/audit"
	"communitylink/internal/event/models"
	"communitylink/internal/platform/metrics"
	usermodels "communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/sentinel"
	"communitylink/pkg/requestcontext"
)

var tracer = otel.Tracer("event")

// attendee lookups fan out; keep the store connection pool breathable.
const attendeeLookupLimit = 8

type EventStore interface {
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

// ProfileGate answers whether an NGO has completed its organization profile.
type ProfileGate interface {
	Exists(ctx context.Context, ownerID id.UserID) (bool, error)
}

// UserDirectory resolves registered user IDs for attendee views.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Attendee is one resolved roster entry. Entries whose user record cannot
// be resolved are dropped from the view, never from the roster.
type Attendee struct {
	UserID      id.UserID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
}

// Service wires the ledger store to the surrounding platform.
type Service struct {
	store          EventStore
	profiles       ProfileGate
	users          UserDirectory
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store EventStore, profiles ProfileGate, users UserDirectory, opts ...Option) *Service {
	s := &Service{store: store, profiles: profiles, users: users}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create publishes a new event. Only NGO-role users with a completed
// organization profile may publish.
func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *models.CreateEventRequest) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.Create")
	defer span.End()

	if requestcontext.UserRole(ctx) != string(usermodels.RoleNGO) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only NGO accounts can publish events")
	}
	if s.profiles != nil {
		ok, err := s.profiles.Exists(ctx, ownerID)
		if err != nil {
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check organization profile")
		}
		if !ok {
			return nil, dErrors.New(dErrors.CodeForbidden, "complete your organization profile before publishing events")
		}
	}

	startsAt, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	event, err := models.NewEvent(ownerID, req.Name, startsAt, req.Capacity, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	event.Description = req.Description
	event.Location = req.Location
	event.Languages = req.Languages
	event.Tags = req.Tags
	event.NormalizeTags()

	if err := s.store.Create(ctx, event); err != nil {
		span.RecordError(err)
		return nil, translate(err)
	}

	s.logAudit(ctx, ownerID, audit.ActionEventCreated, event.ID, "")
	s.metrics.IncrementEventsCreated()
	return event, nil
}

// Register adds the user to the event roster. The store evaluates the
// gates (duplicate, capacity, closed, completed) under its concurrency
// guard so a full event never overbooks.
func (s *Service) Register(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.Register")
	defer span.End()

	event, err := s.store.Register(ctx, eventID, userID, requestcontext.Now(ctx))
	if err != nil {
		s.countRejection(err)
		span.RecordError(err)
		return nil, translate(err)
	}

	s.logAudit(ctx, userID, audit.ActionUserRegistered, eventID, "")
	s.metrics.IncrementRegistrations()
	return event, nil
}

// Unregister removes the user from the roster. Withdrawal is allowed from
// closed and past events.
func (s *Service) Unregister(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.Unregister")
	defer span.End()

	event, err := s.store.Unregister(ctx, eventID, userID, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		return nil, translate(err)
	}

	s.logAudit(ctx, userID, audit.ActionUserWithdrew, eventID, "")
	s.metrics.IncrementWithdrawals()
	return event, nil
}

// Close stops new registrations. Owner-only; the roster is preserved.
func (s *Service) Close(ctx context.Context, eventID id.EventID, actorID id.UserID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.Close")
	defer span.End()

	if err := s.requireOwner(ctx, eventID, actorID); err != nil {
		return nil, err
	}

	event, err := s.store.Close(ctx, eventID, actorID, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "event is already closed")
		}
		return nil, translate(err)
	}

	s.logAudit(ctx, actorID, audit.ActionEventClosed, eventID, "")
	s.metrics.IncrementEventsClosed()
	return event, nil
}

// Reopen returns a closed event to active. Owner-only. No capacity
// re-check: the registration path can never exceed a finite capacity, so
// a reopened event is at worst exactly full.
func (s *Service) Reopen(ctx context.Context, eventID id.EventID, actorID id.UserID) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.Reopen")
	defer span.End()

	if err := s.requireOwner(ctx, eventID, actorID); err != nil {
		return nil, err
	}

	event, err := s.store.Reopen(ctx, eventID, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "event is already active")
		}
		return nil, translate(err)
	}

	s.logAudit(ctx, actorID, audit.ActionEventReopened, eventID, "")
	return event, nil
}

// Delete removes the event and its roster. Owner-only and permanent.
func (s *Service) Delete(ctx context.Context, eventID id.EventID, actorID id.UserID) error {
	ctx, span := tracer.Start(ctx, "Event.Service.Delete")
	defer span.End()

	if err := s.requireOwner(ctx, eventID, actorID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, eventID); err != nil {
		span.RecordError(err)
		return translate(err)
	}

	s.logAudit(ctx, actorID, audit.ActionEventDeleted, eventID, "")
	s.metrics.IncrementEventsDeleted()
	return nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	event, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return nil, translate(err)
	}
	return event, nil
}

// ListUpcoming returns events whose date is today or later, soonest first.
func (s *Service) ListUpcoming(ctx context.Context) ([]*models.Event, error) {
	events, err := s.store.ListUpcoming(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return events, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Event, error) {
	events, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, translate(err)
	}
	return events, nil
}

func (s *Service) ListRegisteredBy(ctx context.Context, userID id.UserID) ([]*models.Event, error) {
	events, err := s.store.ListRegisteredBy(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return events, nil
}

// ListAttendees resolves the roster to user records for the event owner.
// Resolution is best-effort: a roster entry whose user record is missing
// is skipped, and any other lookup failure fails the whole view.
func (s *Service) ListAttendees(ctx context.Context, eventID id.EventID, actorID id.UserID) ([]Attendee, error) {
	ctx, span := tracer.Start(ctx, "Event.Service.ListAttendees")
	defer span.End()

	event, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return nil, translate(err)
	}
	if !event.IsOwnedBy(actorID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the event owner can view attendees")
	}

	resolved := make([]*usermodels.User, len(event.RegisteredUsers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(attendeeLookupLimit)
	for i, userID := range event.RegisteredUsers {
		g.Go(func() error {
			user, err := s.users.FindByID(gctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					s.log(ctx, slog.LevelWarn, "roster entry has no user record",
						"event_id", eventID, "user_id", userID)
					return nil
				}
				return err
			}
			resolved[i] = user
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve attendees")
	}

	attendees := make([]Attendee, 0, len(resolved))
	for _, user := range resolved {
		if user == nil {
			continue
		}
		attendees = append(attendees, Attendee{
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
		})
	}
	return attendees, nil
}

// requireOwner loads the event and rejects non-owner actors. Ownership is
// immutable, so the check cannot race with the mutation that follows.
func (s *Service) requireOwner(ctx context.Context, eventID id.EventID, actorID id.UserID) error {
	event, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return translate(err)
	}
	if !event.IsOwnedBy(actorID) {
		return dErrors.New(dErrors.CodeForbidden, "only the event owner can manage this event")
	}
	return nil
}

// translate maps store facts to coded domain errors. The two invalid-state
// registration gates are distinguished by message under one code.
func translate(err error) error {
	switch {
	case errors.Is(err, models.ErrEventClosed):
		return dErrors.New(dErrors.CodeEventClosed, "event is closed to new registrations")
	case errors.Is(err, models.ErrEventCompleted):
		return dErrors.New(dErrors.CodeEventClosed, "event date has passed")
	case errors.Is(err, sentinel.ErrAlreadyRegistered):
		return dErrors.New(dErrors.CodeAlreadyRegistered, "user is already registered for this event")
	case errors.Is(err, sentinel.ErrCapacityExhausted):
		return dErrors.New(dErrors.CodeCapacityExceeded, "event is full")
	case errors.Is(err, sentinel.ErrNotRegistered):
		return dErrors.New(dErrors.CodeNotRegistered, "user is not registered for this event")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "event already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "event is not in a valid state for this operation")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event operation failed")
	}
}

func (s *Service) countRejection(err error) {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyRegistered):
		s.metrics.IncrementRegistrationRejected(metrics.ReasonDuplicate)
	case errors.Is(err, sentinel.ErrCapacityExhausted):
		s.metrics.IncrementRegistrationRejected(metrics.ReasonCapacity)
	case errors.Is(err, models.ErrEventClosed):
		s.metrics.IncrementRegistrationRejected(metrics.ReasonClosed)
	case errors.Is(err, models.ErrEventCompleted):
		s.metrics.IncrementRegistrationRejected(metrics.ReasonCompleted)
	}
}

func (s *Service) logAudit(ctx context.Context, actorID id.UserID, action audit.Action, eventID id.EventID, reason string) {
	attributes := []any{"event_id", eventID, "actor_id", actorID, "log_type", "audit"}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.log(ctx, slog.LevelInfo, string(action), attributes...)
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		ActorID: actorID,
		Action:  action,
		EventID: eventID,
		Reason:  reason,
	})
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, args...)
	}
}
