package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lofo/internal/claim/models"
	"lofo/internal/evidence"
	"lofo/internal/identity"
	"lofo/internal/platform/metrics"
	"lofo/internal/platform/middleware"
	postingmodels "lofo/internal/posting/models"
	dErrors "lofo/pkg/domain-errors"
	"lofo/pkg/platform/sentinel"
)

// Store is the claim persistence the registry needs. CreateAndGate and
// ResolveAndRelease are atomic: the claim write and the posting status move
// succeed or fail together.
type Store interface {
	CreateAndGate(ctx context.Context, claim *models.Claim, now time.Time) error
	ResolveAndRelease(ctx context.Context, claim *models.Claim, postingTo postingmodels.Status, now time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	ListForPosting(ctx context.Context, postingID uuid.UUID) ([]*models.Claim, error)
}

// PostingReader loads postings for authorization and kind checks.
type PostingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*postingmodels.Posting, error)
}

// Service is the claim registry. It owns filing and resolution, including the
// claim-driven posting transitions.
type Service struct {
	store    Store
	postings PostingReader
	verifier evidence.Verifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// New constructs the claim registry.
func New(store Store, postings PostingReader, verifier evidence.Verifier, opts ...Option) *Service {
	s := &Service{store: store, postings: postings, verifier: verifier}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// File submits a claim against a found posting. On success the posting is in
// awaiting_validation and no further claims are accepted until the reporter
// resolves this one. A concurrent filer gets a conflict and may retry after
// the resolution; the registry never retries on its own.
func (s *Service) File(ctx context.Context, actor identity.Actor, postingID uuid.UUID, evidenceRef, note string) (*models.Claim, error) {
	posting, err := s.postings.FindByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load posting")
	}
	if posting.Kind != postingmodels.KindFound {
		return nil, dErrors.New(dErrors.CodeValidation, "only found postings can be claimed")
	}
	if posting.ReporterID == actor.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "the reporter cannot claim their own posting")
	}

	if err := s.verifier.Verify(ctx, evidenceRef); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	claim, err := models.NewClaim(uuid.New(), postingID, actor.ID, evidenceRef, note, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.CreateAndGate(ctx, claim, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		case errors.Is(err, sentinel.ErrConflict):
			s.noteConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "a claim is already pending for this posting")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "posting is not open for claims")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to file claim")
		}
	}

	s.logAudit(ctx, "claim_filed",
		"claim_id", claim.ID,
		"posting_id", postingID,
		"claimant_id", actor.ID)
	if s.metrics != nil {
		s.metrics.ClaimsFiled.Inc()
	}
	return claim, nil
}

// Approve accepts a pending claim and closes its posting.
func (s *Service) Approve(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.loadForResolution(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := claim.Approve(now); err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, claim, postingmodels.StatusClosed, now); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "claim_approved",
		"claim_id", claim.ID,
		"posting_id", claim.PostingID,
		"validator_id", actor.ID)
	if s.metrics != nil {
		s.metrics.ClaimsApproved.Inc()
	}
	return claim, nil
}

// Reject turns down a pending claim with a reason and reopens its posting for
// other claimants. The rejected claim stays on record.
func (s *Service) Reject(ctx context.Context, actor identity.Actor, claimID uuid.UUID, reason string) (*models.Claim, error) {
	claim, err := s.loadForResolution(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := claim.Reject(reason, now); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeBadRequest, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.resolve(ctx, claim, postingmodels.StatusActive, now); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "claim_rejected",
		"claim_id", claim.ID,
		"posting_id", claim.PostingID,
		"validator_id", actor.ID)
	if s.metrics != nil {
		s.metrics.ClaimsRejected.Inc()
	}
	return claim, nil
}

// Get returns a claim. Visible to the claimant, the posting's reporter, and
// administrators.
func (s *Service) Get(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if claim.ClaimantID == actor.ID || actor.IsAdmin() {
		return claim, nil
	}
	posting, err := s.postings.FindByID(ctx, claim.PostingID)
	if err == nil && posting.ReporterID == actor.ID {
		return claim, nil
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view this claim")
}

// ListForPosting returns a posting's claims, oldest first. Reporter and
// administrators only; claims carry evidence references.
func (s *Service) ListForPosting(ctx context.Context, actor identity.Actor, postingID uuid.UUID) ([]*models.Claim, error) {
	posting, err := s.postings.FindByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load posting")
	}
	if posting.ReporterID != actor.ID && !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporter may list claims")
	}

	claims, err := s.store.ListForPosting(ctx, postingID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// loadForResolution loads a claim and checks the actor may resolve it: the
// posting's reporter, or an administrator standing in for an absent reporter.
func (s *Service) loadForResolution(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	posting, err := s.postings.FindByID(ctx, claim.PostingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load posting")
	}
	if posting.ReporterID != actor.ID && !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporter may resolve claims")
	}
	return claim, nil
}

func (s *Service) resolve(ctx context.Context, claim *models.Claim, postingTo postingmodels.Status, now time.Time) error {
	err := s.store.ResolveAndRelease(ctx, claim, postingTo, now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "claim is not pending")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "claim not found")
	case errors.Is(err, sentinel.ErrConflict):
		s.noteConflict()
		return dErrors.New(dErrors.CodeConflict, "posting state changed, please re-check the posting")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve claim")
	}
}

func (s *Service) noteConflict() {
	if s.metrics != nil {
		s.metrics.Conflicts.Inc()
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
