package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lofo/internal/identity"
	"lofo/internal/lifecycle"
	postingmodels "lofo/internal/posting/models"
	postingstore "lofo/internal/posting/store"
	dErrors "lofo/pkg/domain-errors"
	"lofo/pkg/platform/httputil"
)

// Handler wires the posting and claim lifecycle endpoints to the coordinator.
type Handler struct {
	coordinator *lifecycle.Coordinator
	logger      *slog.Logger
}

// New constructs a lifecycle handler.
func New(coordinator *lifecycle.Coordinator, logger *slog.Logger) *Handler {
	return &Handler{coordinator: coordinator, logger: logger}
}

// Register mounts the member-facing endpoints. The caller is expected to have
// authentication middleware in front of these routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/postings", h.HandleListPostings)
	r.Post("/postings", h.HandleCreatePosting)
	r.Get("/postings/{id}", h.HandleGetPosting)
	r.Post("/postings/{id}/solve", h.HandleMarkSolved)
	r.Get("/postings/{id}/claims", h.HandleListClaims)
	r.Post("/claims", h.HandleFileClaim)
	r.Get("/claims/{id}", h.HandleGetClaim)
	r.Post("/claims/{id}/approve", h.HandleApproveClaim)
	r.Post("/claims/{id}/reject", h.HandleRejectClaim)
}

// RegisterAdmin mounts the moderation endpoints. The caller is expected to
// gate these routes on the administrator role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/postings/pending", h.HandleModerationQueue)
	r.Post("/postings/{id}/approve", h.HandleApproveModeration)
	r.Post("/postings/{id}/takedown", h.HandleTakedown)
	r.Delete("/postings/{id}", h.HandleHardDelete)
}

func (h *Handler) HandleCreatePosting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[CreatePostingRequest](w, r, h.logger)
	if !ok {
		return
	}
	kind, err := postingmodels.ParseKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	posting, err := h.coordinator.CreatePosting(ctx, actor, kind, req.Details())
	if err != nil {
		h.logError(r, "create posting failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, posting)
}

func (h *Handler) HandleGetPosting(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	posting, err := h.coordinator.GetPosting(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posting)
}

func (h *Handler) HandleListPostings(w http.ResponseWriter, r *http.Request) {
	filter := postingstore.Filter{
		Kind:     postingmodels.Kind(r.URL.Query().Get("kind")),
		Status:   postingmodels.Status(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	}
	postings, err := h.coordinator.ListPostings(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PostingListResponse{Postings: postings})
}

func (h *Handler) HandleMarkSolved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	posting, err := h.coordinator.MarkSolved(ctx, actor, id)
	if err != nil {
		h.logError(r, "mark solved failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posting)
}

func (h *Handler) HandleFileClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[FileClaimRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.PostingID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "posting_id is required"))
		return
	}

	claim, err := h.coordinator.FileClaim(ctx, actor, req.PostingID, req.EvidenceRef, req.Note)
	if err != nil {
		h.logError(r, "file claim failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, claim)
}

func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	claim, err := h.coordinator.GetClaim(ctx, actor, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	claims, err := h.coordinator.ListClaims(ctx, actor, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimListResponse{Claims: claims})
}

func (h *Handler) HandleApproveClaim(w http.ResponseWriter, r *http.Request) {
	h.resolveClaim(w, r, func(actor identity.Actor, id uuid.UUID) (any, error) {
		return h.coordinator.ApproveClaim(r.Context(), actor, id)
	})
}

func (h *Handler) HandleRejectClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[RejectClaimRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.resolveClaim(w, r, func(actor identity.Actor, id uuid.UUID) (any, error) {
		return h.coordinator.RejectClaim(r.Context(), actor, id, req.Reason)
	})
}

func (h *Handler) resolveClaim(w http.ResponseWriter, r *http.Request, resolve func(identity.Actor, uuid.UUID) (any, error)) {
	actor, err := identity.ActorFromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	claim, err := resolve(actor, id)
	if err != nil {
		h.logError(r, "claim resolution failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) HandleModerationQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	postings, err := h.coordinator.ModerationQueue(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PostingListResponse{Postings: postings})
}

func (h *Handler) HandleApproveModeration(w http.ResponseWriter, r *http.Request) {
	h.adminPostingAction(w, r, h.coordinator.ApproveModeration)
}

func (h *Handler) HandleTakedown(w http.ResponseWriter, r *http.Request) {
	h.adminPostingAction(w, r, h.coordinator.Takedown)
}

func (h *Handler) adminPostingAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error)) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	posting, err := action(ctx, actor, id)
	if err != nil {
		h.logError(r, "moderation action failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posting)
}

func (h *Handler) HandleHardDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := identity.ActorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.HardDeletePosting(ctx, actor, id); err != nil {
		h.logError(r, "hard delete failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	if h.logger == nil {
		return
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
		return
	}
	h.logger.DebugContext(r.Context(), msg, "path", r.URL.Path, "error", err)
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
