package models

import (
	"fmt"
	"time"

	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/sentinel"
	"communitylink/pkg/platform/tags"
)

// EventStatus is the persisted lifecycle state of an event.
type EventStatus string

const (
	StatusActive EventStatus = "active"
	StatusClosed EventStatus = "closed"
)

func (s EventStatus) IsValid() bool {
	return s == StatusActive || s == StatusClosed
}

// Registration gate reasons. Both wrap sentinel.ErrInvalidState so stores can
// report them as facts; the service maps them to distinct caller messages.
var (
	ErrEventClosed    = fmt.Errorf("event is closed to new registrations: %w", sentinel.ErrInvalidState)
	ErrEventCompleted = fmt.Errorf("event date has passed: %w", sentinel.ErrInvalidState)
)

// Event is the aggregate root for the registration ledger.
//
// Invariants (after every successful operation):
//   - EnrolledCount == len(RegisteredUsers)
//   - RegisteredUsers has set semantics (no duplicate user IDs)
//   - finite Capacity N implies len(RegisteredUsers) <= N
//   - OwnerID is immutable after creation
//
// Status (active/closed) and "completed" (StartsAt before today) are
// independent. Completed is derived at read time and never persisted; there
// is no automatic transition when the event date passes. Both closed and
// completed events reject new registrations, but unregistration stays
// unrestricted — a registrant may withdraw from a past event.
//
// All mutations go through Can*/Apply* pairs. Stores call them under their
// own concurrency guard (mutex or row lock) so the check and the write are
// one atomic step.
type Event struct {
	ID      id.EventID  `json:"id"`
	OwnerID id.UserID   `json:"owner_id"`
	Name    string      `json:"name"`
	Status  EventStatus `json:"status"`

	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	StartsAt time.Time `json:"starts_at"`

	Capacity        Capacity    `json:"capacity"`
	EnrolledCount   int         `json:"enrolled_count"`
	RegisteredUsers []id.UserID `json:"registered_users"`

	ClosedAt *time.Time `json:"closed_at,omitempty"`
	ClosedBy id.UserID  `json:"closed_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent constructs a valid active event with an empty roster.
func NewEvent(ownerID id.UserID, name string, startsAt time.Time, capacity Capacity, now time.Time) (*Event, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event owner is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event name must be 200 characters or less")
	}
	if startsAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event date is required")
	}
	return &Event{
		ID:        id.NewEventID(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    StatusActive,
		StartsAt:  startsAt,
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsRegistered reports whether the user is in the roster.
func (e *Event) IsRegistered(userID id.UserID) bool {
	for _, u := range e.RegisteredUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// Completed reports whether the event date is strictly before today,
// compared at day granularity.
func (e *Event) Completed(now time.Time) bool {
	ey, em, ed := e.StartsAt.Date()
	ny, nm, nd := now.Date()
	eventDay := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return eventDay.Before(today)
}

// CanRegister evaluates the registration gates in order; the first failing
// rule wins. The NotFound gate lives in the store (the event must have been
// loaded to get here).
func (e *Event) CanRegister(userID id.UserID, now time.Time) error {
	if e.IsRegistered(userID) {
		return sentinel.ErrAlreadyRegistered
	}
	if !e.Capacity.Admits(e.EnrolledCount) {
		return sentinel.ErrCapacityExhausted
	}
	if e.Status == StatusClosed {
		return ErrEventClosed
	}
	if e.Completed(now) {
		return ErrEventCompleted
	}
	return nil
}

// ApplyRegistration adds the user to the roster and bumps the counter.
// Call CanRegister first under the store's concurrency guard.
func (e *Event) ApplyRegistration(userID id.UserID, now time.Time) {
	e.RegisteredUsers = append(e.RegisteredUsers, userID)
	e.EnrolledCount++
	e.UpdatedAt = now
}

// CanUnregister checks the membership guard. Unregistration is deliberately
// not gated on status or completion.
func (e *Event) CanUnregister(userID id.UserID) error {
	if !e.IsRegistered(userID) {
		return sentinel.ErrNotRegistered
	}
	return nil
}

// ApplyUnregistration removes the user from the roster and decrements the
// counter, floored at zero.
func (e *Event) ApplyUnregistration(userID id.UserID, now time.Time) {
	filtered := e.RegisteredUsers[:0]
	for _, u := range e.RegisteredUsers {
		if u != userID {
			filtered = append(filtered, u)
		}
	}
	e.RegisteredUsers = filtered
	if e.EnrolledCount > 0 {
		e.EnrolledCount--
	}
	e.UpdatedAt = now
}

// CanClose checks the active -> closed transition.
func (e *Event) CanClose() error {
	if e.Status == StatusClosed {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyClose transitions the event to closed. The roster and counter are
// untouched; existing registrants keep their spots.
func (e *Event) ApplyClose(actorID id.UserID, now time.Time) {
	e.Status = StatusClosed
	e.ClosedAt = &now
	e.ClosedBy = actorID
	e.UpdatedAt = now
}

// CanReopen checks the closed -> active transition.
func (e *Event) CanReopen() error {
	if e.Status == StatusActive {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyReopen transitions the event back to active. No capacity re-check:
// the registration path itself can never exceed a finite capacity, so a
// reopened event is at worst exactly full.
func (e *Event) ApplyReopen(now time.Time) {
	e.Status = StatusActive
	e.ClosedAt = nil
	e.ClosedBy = id.UserID{}
	e.UpdatedAt = now
}

// IsOwnedBy reports whether the actor created this event. Lifecycle
// mutations (close, reopen, delete) are owner-only.
func (e *Event) IsOwnedBy(actorID id.UserID) bool {
	return e.OwnerID == actorID
}

// Clone returns a deep copy so in-memory stores never hand out aliased
// roster slices.
func (e *Event) Clone() *Event {
	clone := *e
	clone.RegisteredUsers = append([]id.UserID(nil), e.RegisteredUsers...)
	clone.Languages = append([]string(nil), e.Languages...)
	clone.Tags = append([]string(nil), e.Tags...)
	if e.ClosedAt != nil {
		closedAt := *e.ClosedAt
		clone.ClosedAt = &closedAt
	}
	return &clone
}

// NormalizeTags applies set semantics to the descriptive tag lists.
// Languages fold case ("English" and "english" are one language); free-form
// tags keep the case the owner wrote.
func (e *Event) NormalizeTags() {
	e.Languages = tags.NormalizeFold(e.Languages)
	e.Tags = tags.Normalize(e.Tags)
}
