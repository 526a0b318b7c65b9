// Package models defines the NGO profile aggregate and the public
// directory entry derived from it.
package models

import (
	"time"

	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/tags"
)

// Profile is an NGO's organization profile, keyed by the owning user.
//
// Invariants:
//   - NGOName and Contact are non-empty
//   - Services and Languages are non-empty sets (no duplicates)
//
// A completed profile is the gate for event creation: an NGO-role user
// without one cannot publish events.
type Profile struct {
	OwnerID     id.UserID `json:"owner_id"`
	NGOName     string    `json:"ngo_name"`
	Description string    `json:"description,omitempty"`
	Contact     string    `json:"contact"`
	Location    string    `json:"location,omitempty"`
	Services    []string  `json:"services"`
	Languages   []string  `json:"languages"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProfile validates and constructs a profile, normalizing the tag sets.
func NewProfile(ownerID id.UserID, ngoName, description, contact, location string, services, languages []string, now time.Time) (*Profile, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile owner is required")
	}
	if ngoName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "NGO name cannot be empty")
	}
	if contact == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact cannot be empty")
	}
	services = tags.Normalize(services)
	if len(services) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one service is required")
	}
	languages = tags.NormalizeFold(languages)
	if len(languages) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one language is required")
	}
	return &Profile{
		OwnerID:     ownerID,
		NGOName:     ngoName,
		Description: description,
		Contact:     contact,
		Location:    location,
		Services:    services,
		Languages:   languages,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DirectoryEntry is the public-facing slice of a profile shown in the NGO
// directory. Contact details stay on the private profile.
type DirectoryEntry struct {
	OwnerID     id.UserID `json:"owner_id"`
	NGOName     string    `json:"ngo_name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Services    []string  `json:"services"`
	Languages   []string  `json:"languages"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DirectoryEntry projects the profile into its public shape.
func (p *Profile) DirectoryEntry() DirectoryEntry {
	return DirectoryEntry{
		OwnerID:     p.OwnerID,
		NGOName:     p.NGOName,
		Description: p.Description,
		Location:    p.Location,
		Services:    append([]string(nil), p.Services...),
		Languages:   append([]string(nil), p.Languages...),
		UpdatedAt:   p.UpdatedAt,
	}
}
