// Package store provides the audit trail sinks.
package store

import (
	"context"
	"sync"

	"communitylink/internal/audit"
	id "communitylink/pkg/domain"
)

// InMemory keeps the audit trail in a slice, append-only.
type InMemory struct {
	mu      sync.RWMutex
	entries []audit.Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, event)
	return nil
}

func (s *InMemory) ListByEvent(ctx context.Context, eventID id.EventID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.entries {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of the full trail in emission order. Test helper.
func (s *InMemory) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.entries...)
}
