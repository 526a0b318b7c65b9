// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so an event ID can never be passed
// where a user ID is expected. Parsing enforces the trust-boundary invariant
// that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "communitylink/pkg/domain-errors"
)

// UserID identifies an authenticated actor (registrant or NGO owner).
type UserID uuid.UUID

// EventID identifies an event record.
type EventID uuid.UUID

// NewEventID returns a freshly generated event ID.
func NewEventID() EventID {
	return EventID(uuid.New())
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s, "user_id")
	return UserID(parsed), err
}

// ParseEventID parses and validates an event ID from its string form.
func ParseEventID(s string) (EventID, error) {
	parsed, err := parseUUID(s, "event_id")
	return EventID(parsed), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return parsed, nil
}

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs round-trip through JSON as plain UUID strings.
// Unmarshaling tolerates the nil UUID so zero-valued fields (an event that
// was never closed) survive the round trip; trust-boundary parsing stays
// strict in ParseUserID/ParseEventID.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	if isZeroText(b) {
		*id = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	if isZeroText(b) {
		*id = EventID{}
		return nil
	}
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func isZeroText(b []byte) bool {
	return len(b) == 0 || string(b) == uuid.Nil.String()
}
