// Package audit records who did what to which event. Ledger mutations
// (register, unregister, close, reopen, delete, create) emit one entry each;
// reads never do.
package audit

import (
	"time"

	id "communitylink/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   id.UserID
	Action    Action
	EventID   id.EventID
	Reason    string
}

// Action names the ledger mutation being recorded.
type Action string

const (
	ActionEventCreated   Action = "event.created"
	ActionEventClosed    Action = "event.closed"
	ActionEventReopened  Action = "event.reopened"
	ActionEventDeleted   Action = "event.deleted"
	ActionUserRegistered Action = "event.user_registered"
	ActionUserWithdrew   Action = "event.user_withdrew"
	ActionProfileSaved   Action = "profile.saved"
)
