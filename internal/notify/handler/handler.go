package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lofo/internal/identity"
	"lofo/internal/notify/models"
	"lofo/internal/notify/service"
	dErrors "lofo/pkg/domain-errors"
	"lofo/pkg/platform/httputil"
)

// Handler serves the per-member notification inbox.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs a notification handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the notification endpoints behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Post("/notifications/{id}/read", h.HandleMarkRead)
}

// ListResponse wraps a member's inbox.
type ListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.service.ListForUser(ctx, actor, unreadOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Notifications: notifications})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return
	}

	if err := h.service.MarkRead(ctx, actor, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
