package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lofo/internal/posting/models"
	"lofo/pkg/platform/sentinel"
)

// Memory is an in-memory posting store for tests and dev mode. The
// conditional status update makes the same atomicity promise as the
// PostgreSQL store: the status check and write happen under one lock.
type Memory struct {
	mu       sync.RWMutex
	postings map[uuid.UUID]*models.Posting
}

// NewMemory builds an empty in-memory posting store.
func NewMemory() *Memory {
	return &Memory{postings: make(map[uuid.UUID]*models.Posting)}
}

func (s *Memory) Create(_ context.Context, posting *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.postings[posting.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *posting
	s.postings[posting.ID] = &cp
	return nil
}

func (s *Memory) FindByID(_ context.Context, id uuid.UUID) (*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posting, ok := s.postings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *posting
	return &cp, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kind     models.Kind
	Status   models.Status
	Category string
	Limit    int
	Offset   int
}

func (s *Memory) List(_ context.Context, filter Filter) ([]*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Posting
	for _, p := range s.postings {
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateStatus moves the posting to the new status only if its current status
// is one of from. Check and write are a single atomic unit.
func (s *Memory) UpdateStatus(_ context.Context, id uuid.UUID, from []models.Status, to models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	posting, ok := s.postings[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !slices.Contains(from, posting.Status) {
		return sentinel.ErrInvalidState
	}
	posting.Status = to
	posting.UpdatedAt = now
	return nil
}

// Delete removes the posting entirely. Administrative moderation only.
func (s *Memory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postings[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.postings, id)
	return nil
}
