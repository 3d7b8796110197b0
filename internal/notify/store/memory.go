package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lofo/internal/notify/models"
	"lofo/pkg/platform/sentinel"
)

// Memory is an in-memory notification store for tests and dev mode.
type Memory struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*models.Notification
}

// NewMemory builds an empty in-memory notification store.
func NewMemory() *Memory {
	return &Memory{notifications: make(map[uuid.UUID]*models.Notification)}
}

func (s *Memory) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[notification.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *notification
	s.notifications[notification.ID] = &cp
	return nil
}

// ListForRecipient returns a member's notifications, newest first.
func (s *Memory) ListForRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flags a notification read if it belongs to the recipient.
func (s *Memory) MarkRead(_ context.Context, id, recipientID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[id]
	if !ok || notification.RecipientID != recipientID {
		return sentinel.ErrNotFound
	}
	notification.Read = true
	return nil
}
