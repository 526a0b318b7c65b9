package models

import (
	"time"

	dErrors "communitylink/pkg/domain-errors"
)

// CreateEventRequest is the wire shape for event creation. Capacity accepts
// either a positive integer or the string "unlimited".
type CreateEventRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Languages   []string `json:"languages"`
	Tags        []string `json:"tags"`
	StartsAt    string   `json:"starts_at"` // RFC 3339
	Capacity    Capacity `json:"capacity"`
}

// Validate checks request-level constraints and returns the parsed start
// time. Aggregate invariants are re-checked by NewEvent.
func (r *CreateEventRequest) Validate() (time.Time, error) {
	if r.Name == "" {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if r.StartsAt == "" {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "starts_at is required")
	}
	if r.Capacity.IsZero() {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "capacity is required")
	}
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "starts_at must be an RFC 3339 timestamp")
	}
	return startsAt, nil
}
