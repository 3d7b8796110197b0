package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lofo/internal/claim/models"
	postingmodels "lofo/internal/posting/models"
	"lofo/pkg/platform/sentinel"
)

// PostingGate is the slice of the posting store the claim store needs to move
// a posting in and out of awaiting_validation.
type PostingGate interface {
	FindByID(ctx context.Context, id uuid.UUID) (*postingmodels.Posting, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []postingmodels.Status, to postingmodels.Status, now time.Time) error
}

// Memory is an in-memory claim store for tests and dev mode.
//
// The posting status move acts as the compare-and-swap for both compound
// operations: filing swings the posting to awaiting_validation before the
// claim is written, and resolution checks the claim under the store lock
// before releasing the posting. Concurrent filers or resolvers race on the
// swap, and exactly one wins.
type Memory struct {
	mu       sync.RWMutex
	claims   map[uuid.UUID]*models.Claim
	postings PostingGate
}

// NewMemory builds an in-memory claim store over the given posting store.
func NewMemory(postings PostingGate) *Memory {
	return &Memory{
		claims:   make(map[uuid.UUID]*models.Claim),
		postings: postings,
	}
}

// CreateAndGate inserts the pending claim after moving its posting from
// active to awaiting_validation. Error mapping matches the PostgreSQL store:
// ErrNotFound for a missing posting, ErrConflict when the gate is already
// held, ErrInvalidState otherwise.
func (s *Memory) CreateAndGate(ctx context.Context, claim *models.Claim, now time.Time) error {
	err := s.postings.UpdateStatus(ctx, claim.PostingID,
		[]postingmodels.Status{postingmodels.StatusActive},
		postingmodels.StatusAwaitingValidation, now)
	if errors.Is(err, sentinel.ErrInvalidState) {
		posting, findErr := s.postings.FindByID(ctx, claim.PostingID)
		if findErr != nil {
			return findErr
		}
		if posting.Status == postingmodels.StatusAwaitingValidation {
			return sentinel.ErrConflict
		}
		return sentinel.ErrInvalidState
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *claim
	s.claims[claim.ID] = &cp
	return nil
}

// ResolveAndRelease writes the resolved claim and releases the posting. The
// pending check, the posting move, and the claim write all happen under the
// store lock, so a second resolver or a concurrent takedown loses cleanly.
func (s *Memory) ResolveAndRelease(ctx context.Context, claim *models.Claim, postingTo postingmodels.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.claims[claim.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Outcome != models.OutcomePending {
		return sentinel.ErrInvalidState
	}

	err := s.postings.UpdateStatus(ctx, claim.PostingID,
		[]postingmodels.Status{postingmodels.StatusAwaitingValidation},
		postingTo, now)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return err
	}

	stored.Outcome = claim.Outcome
	stored.ValidationNote = claim.ValidationNote
	stored.ValidatedAt = claim.ValidatedAt
	return nil
}

func (s *Memory) FindByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *claim
	return &cp, nil
}

// ListForPosting returns all claims for a posting, oldest first.
func (s *Memory) ListForPosting(_ context.Context, postingID uuid.UUID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.PostingID != postingID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// DeleteForPosting removes all claims for a posting.
func (s *Memory) DeleteForPosting(_ context.Context, postingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.claims {
		if c.PostingID == postingID {
			delete(s.claims, id)
		}
	}
	return nil
}
