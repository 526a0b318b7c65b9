// Package handler exposes NGO profiles and the public directory over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"communitylink/internal/platform/metrics"
	"communitylink/internal/platform/middleware"
	"communitylink/internal/profile/models"
	"communitylink/internal/profile/service"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/httputil"
	"communitylink/pkg/requestcontext"
)

type Service interface {
	Save(ctx context.Context, ownerID id.UserID, req *service.SaveProfileRequest) (*models.Profile, error)
	Get(ctx context.Context, ownerID id.UserID) (*models.Profile, error)
	ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error)
}

type Handler struct {
	logger       *slog.Logger
	profiles     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	profiles Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		profiles:     profiles,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	profileRouter := chi.NewRouter()
	profileRouter.Use(middleware.Recovery(h.logger))
	profileRouter.Use(middleware.RequestID)
	profileRouter.Use(middleware.Logger(h.logger))
	profileRouter.Use(middleware.Timeout(30 * time.Second))
	profileRouter.Use(middleware.ContentTypeJSON)
	profileRouter.Use(middleware.Latency(h.metrics))
	profileRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	profileRouter.Put("/profile", h.handleSave)
	profileRouter.Get("/profile", h.handleGet)
	profileRouter.Get("/ngos", h.handleListDirectory)

	r.Mount("/", profileRouter)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.UserID(ctx)
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req service.SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid save profile request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.Save(ctx, ownerID, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ownerID := requestcontext.UserID(r.Context())
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	profile, err := h.profiles.Get(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListDirectory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.profiles.ListDirectory(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.DirectoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ngos": entries})
}
