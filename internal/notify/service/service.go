package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lofo/internal/identity"
	"lofo/internal/notify/models"
	dErrors "lofo/pkg/domain-errors"
	"lofo/pkg/platform/sentinel"
)

// Store is the notification persistence the service needs.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, now time.Time) error
}

// Service manages the per-member notification inbox.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs the notification service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver materializes an event into the recipient's inbox. Redelivery of an
// already stored event is not an error; the topic is at-least-once.
func (s *Service) Deliver(ctx context.Context, event *models.Event) error {
	err := s.store.Create(ctx, models.FromEvent(event))
	if errors.Is(err, sentinel.ErrConflict) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "notification delivered",
			"notification_id", event.ID,
			"recipient_id", event.RecipientID,
			"type", event.Type)
	}
	return nil
}

// ListForUser returns the actor's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, actor identity.Actor, unreadOnly bool) ([]*models.Notification, error) {
	notifications, err := s.store.ListForRecipient(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	err := s.store.MarkRead(ctx, id, actor.ID, time.Now().UTC())
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
