// Package handler exposes the event ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"communitylink/internal/event/models"
	"communitylink/internal/event/service"
	"communitylink/internal/platform/metrics"
	"communitylink/internal/platform/middleware"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/platform/httputil"
	"communitylink/pkg/requestcontext"
)

// Service is the ledger surface the handler needs.
type Service interface {
	Create(ctx context.Context, ownerID id.UserID, req *models.CreateEventRequest) (*models.Event, error)
	Register(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error)
	Unregister(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error)
	Close(ctx context.Context, eventID id.EventID, actorID id.UserID) (*models.Event, error)
	Reopen(ctx context.Context, eventID id.EventID, actorID id.UserID) (*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID, actorID id.UserID) error
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)
	ListUpcoming(ctx context.Context) ([]*models.Event, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Event, error)
	ListRegisteredBy(ctx context.Context, userID id.UserID) ([]*models.Event, error)
	ListAttendees(ctx context.Context, eventID id.EventID, actorID id.UserID) ([]service.Attendee, error)
}

// Handler handles event endpoints.
type Handler struct {
	logger       *slog.Logger
	events       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new event Handler.
func New(
	events Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		events:       events,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	eventRouter := chi.NewRouter()
	eventRouter.Use(middleware.Recovery(h.logger))
	eventRouter.Use(middleware.RequestID)
	eventRouter.Use(middleware.Logger(h.logger))
	eventRouter.Use(middleware.Timeout(30 * time.Second))
	eventRouter.Use(middleware.ContentTypeJSON)
	eventRouter.Use(middleware.Latency(h.metrics))
	eventRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	eventRouter.Post("/", h.handleCreate)
	eventRouter.Get("/", h.handleListUpcoming)
	eventRouter.Get("/mine", h.handleListMine)
	eventRouter.Get("/registered", h.handleListRegistered)
	eventRouter.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Post("/close", h.handleClose)
		r.Post("/reopen", h.handleReopen)
		r.Post("/registrations", h.handleRegister)
		r.Delete("/registrations", h.handleUnregister)
		r.Get("/attendees", h.handleListAttendees)
	})

	r.Mount("/events", eventRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create event request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.events.Create(ctx, actorID, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleListUpcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListUpcoming(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(events))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	events, err := h.events.ListByOwner(r.Context(), actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list owned events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(events))
}

func (h *Handler) handleListRegistered(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	events, err := h.events.ListRegisteredBy(r.Context(), actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list registrations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(events))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Register(r.Context(), eventID, actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Unregister(r.Context(), eventID, actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to unregister", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Close(r.Context(), eventID, actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to close event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Reopen(r.Context(), eventID, actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to reopen event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(r.Context(), eventID, actorID); err != nil {
		h.writeServiceError(r.Context(), w, "failed to delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAttendees(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	attendees, err := h.events.ListAttendees(r.Context(), eventID, actorID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list attendees", err)
		return
	}
	if attendees == nil {
		attendees = []service.Attendee{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"attendees": attendees})
}

// actor pulls the authenticated user from context. RequireAuth guarantees
// it is set; a miss means the route is wired without the middleware.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	actorID := requestcontext.UserID(r.Context())
	if actorID.IsNil() {
		h.logger.ErrorContext(r.Context(), "user ID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return actorID, true
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return id.EventID{}, false
	}
	return eventID, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func listResponse(events []*models.Event) map[string]any {
	if events == nil {
		events = []*models.Event{}
	}
	return map[string]any{"events": events}
}
