package store

import (
	"context"
	"sort"
	"sync"

	"communitylink/internal/profile/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

// InMemory is the map-backed profile store. Saving a profile upserts both
// the private record and its public directory entry, mirroring the two
// collections the clients read.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]*models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.UserID]*models.Profile)}
}

func (s *InMemory) Save(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneProfile(profile)
	if existing, ok := s.profiles[profile.OwnerID]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	s.profiles[profile.OwnerID] = clone
	return nil
}

func (s *InMemory) FindByOwner(ctx context.Context, ownerID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProfile(profile), nil
}

func (s *InMemory) Exists(ctx context.Context, ownerID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.profiles[ownerID]
	return ok, nil
}

// ListDirectory returns the public entries sorted by NGO name.
func (s *InMemory) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.DirectoryEntry, 0, len(s.profiles))
	for _, profile := range s.profiles {
		entries = append(entries, profile.DirectoryEntry())
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].NGOName < entries[j].NGOName
	})
	return entries, nil
}

func cloneProfile(p *models.Profile) *models.Profile {
	clone := *p
	clone.Services = append([]string(nil), p.Services...)
	clone.Languages = append([]string(nil), p.Languages...)
	return &clone
}
