package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lofo/internal/identity"
	"lofo/internal/platform/metrics"
	"lofo/internal/platform/middleware"
	"lofo/internal/posting/models"
	"lofo/internal/posting/store"
	dErrors "lofo/pkg/domain-errors"
	"lofo/pkg/platform/sentinel"
)

// Store is the posting persistence the registry needs.
type Store interface {
	Create(ctx context.Context, posting *models.Posting) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Posting, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Posting, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.Status, to models.Status, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClaimSweeper removes a posting's claims when the posting is hard deleted.
type ClaimSweeper interface {
	DeleteForPosting(ctx context.Context, postingID uuid.UUID) error
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service is the posting registry. It owns the posting lifecycle except for
// the claim-driven transitions, which belong to the claim registry.
type Service struct {
	store             Store
	claims            ClaimSweeper
	requireModeration bool
	logger            *slog.Logger
	metrics           *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithModeration makes new postings start in pending_admin instead of active.
func WithModeration(required bool) Option {
	return func(s *Service) {
		s.requireModeration = required
	}
}

// New constructs the posting registry.
func New(store Store, claims ClaimSweeper, opts ...Option) *Service {
	s := &Service{store: store, claims: claims}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new posting. Under the moderation policy postings from
// regular members start in pending_admin; administrator postings go live
// immediately.
func (s *Service) Create(ctx context.Context, actor identity.Actor, kind models.Kind, details models.Details) (*models.Posting, error) {
	initial := models.StatusActive
	if s.requireModeration && !actor.IsAdmin() {
		initial = models.StatusPendingAdmin
	}

	posting, err := models.NewPosting(uuid.New(), actor.ID, kind, details, initial, time.Now().UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Create(ctx, posting); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create posting")
	}

	s.logAudit(ctx, "posting_created",
		"posting_id", posting.ID,
		"reporter_id", posting.ReporterID,
		"kind", posting.Kind,
		"status", posting.Status)
	if s.metrics != nil {
		s.metrics.PostingsCreated.Inc()
	}
	return posting, nil
}

// Get returns a posting by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	posting, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load posting")
	}
	return posting, nil
}

// List returns postings matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Posting, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	postings, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list postings")
	}
	return postings, nil
}

// ModerationQueue lists postings awaiting administrator review.
func (s *Service) ModerationQueue(ctx context.Context, actor identity.Actor) ([]*models.Posting, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}
	postings, err := s.store.List(ctx, store.Filter{Status: models.StatusPendingAdmin, Limit: maxPageSize})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list moderation queue")
	}
	return postings, nil
}

// MarkSolved closes an active posting. Only the reporter may do this; the
// status check and write are atomic, so a claim racing in loses or wins
// cleanly.
func (s *Service) MarkSolved(ctx context.Context, actor identity.Actor, id uuid.UUID) (*models.Posting, error) {
	posting, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if posting.ReporterID != actor.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporter may mark a posting solved")
	}

	err = s.store.UpdateStatus(ctx, id, []models.Status{models.StatusActive}, models.StatusClosed, time.Now().UTC())
	if err != nil {
		return nil, s.transitionError(err, "posting is not active")
	}

	s.logAudit(ctx, "posting_solved", "posting_id", id, "reporter_id", actor.ID)
	if s.metrics != nil {
		s.metrics.PostingsSolved.Inc()
	}
	return s.Get(ctx, id)
}

// ApproveModeration moves a pending_admin posting live.
func (s *Service) ApproveModeration(ctx context.Context, actor identity.Actor, id uuid.UUID) (*models.Posting, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}

	err := s.store.UpdateStatus(ctx, id, []models.Status{models.StatusPendingAdmin}, models.StatusActive, time.Now().UTC())
	if err != nil {
		return nil, s.transitionError(err, "posting is not awaiting moderation")
	}

	s.logAudit(ctx, "posting_moderation_approved", "posting_id", id, "admin_id", actor.ID)
	return s.Get(ctx, id)
}

// Takedown rejects a posting from any non-terminal status. It covers both
// moderation rejection and the takedown of a live posting; a pending claim
// stays pending and its resolution will fail with a conflict.
func (s *Service) Takedown(ctx context.Context, actor identity.Actor, id uuid.UUID) (*models.Posting, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}

	from := []models.Status{models.StatusPendingAdmin, models.StatusActive, models.StatusAwaitingValidation}
	err := s.store.UpdateStatus(ctx, id, from, models.StatusRejectedByAdmin, time.Now().UTC())
	if err != nil {
		return nil, s.transitionError(err, "posting is already closed")
	}

	s.logAudit(ctx, "posting_taken_down", "posting_id", id, "admin_id", actor.ID)
	if s.metrics != nil {
		s.metrics.PostingsTakenDown.Inc()
	}
	return s.Get(ctx, id)
}

// HardDelete removes a posting and its claims entirely. Administrative
// escape hatch for postings that should never have existed; normal takedowns
// keep the record.
func (s *Service) HardDelete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete posting")
	}
	if s.claims != nil {
		if err := s.claims.DeleteForPosting(ctx, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete posting claims")
		}
	}

	s.logAudit(ctx, "posting_deleted", "posting_id", id, "admin_id", actor.ID)
	return nil
}

func (s *Service) transitionError(err error, invalidStateMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "posting not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, invalidStateMsg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update posting")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
