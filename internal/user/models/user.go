// Package models defines the user records backing attendee resolution and
// the NGO-role gate on event creation.
package models

import (
	"time"

	id "communitylink/pkg/domain"
)

// Role distinguishes registrants from NGO accounts.
type Role string

const (
	RoleUser Role = "user"
	RoleNGO  Role = "ngo"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleNGO
}

// User holds the identity-adjacent display fields. The ledger treats user
// IDs as opaque; this record exists for attendee lists and the role gate.
type User struct {
	ID          id.UserID `json:"id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
