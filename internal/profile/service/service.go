// Package service manages NGO organization profiles and the public
// directory derived from them.
package service

import (
	"context"
	"errors"
	"log/slog"

	"communitylink/internal/audit"
	"communitylink/internal/profile/models"
	usermodels "communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/sentinel"
	"communitylink/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, profile *models.Profile) error
	FindByOwner(ctx context.Context, ownerID id.UserID) (*models.Profile, error)
	Exists(ctx context.Context, ownerID id.UserID) (bool, error)
	ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SaveProfileRequest is the wire shape for creating or updating a profile.
type SaveProfileRequest struct {
	NGOName     string   `json:"ngo_name"`
	Description string   `json:"description"`
	Contact     string   `json:"contact"`
	Location    string   `json:"location"`
	Services    []string `json:"services"`
	Languages   []string `json:"languages"`
}

type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save upserts the caller's profile. Saving also publishes the profile to
// the public directory; the two can never diverge.
func (s *Service) Save(ctx context.Context, ownerID id.UserID, req *SaveProfileRequest) (*models.Profile, error) {
	if requestcontext.UserRole(ctx) != string(usermodels.RoleNGO) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only NGO accounts have organization profiles")
	}

	profile, err := models.NewProfile(ownerID, req.NGOName, req.Description, req.Contact, req.Location,
		req.Services, req.Languages, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Save(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "profile saved",
			"owner_id", ownerID,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, audit.Event{
			ActorID: ownerID,
			Action:  audit.ActionProfileSaved,
		})
	}
	return profile, nil
}

// Get returns the caller's own profile, contact details included.
func (s *Service) Get(ctx context.Context, ownerID id.UserID) (*models.Profile, error) {
	profile, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

// ListDirectory returns the public NGO directory.
func (s *Service) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	entries, err := s.store.ListDirectory(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list directory")
	}
	return entries, nil
}
