package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lofo/internal/identity"
	"lofo/internal/notify/models"
	"lofo/internal/notify/store"
	dErrors "lofo/pkg/domain-errors"
)

type NotifyServiceSuite struct {
	suite.Suite
	store   *store.Memory
	service *Service
	member  identity.Actor
	now     time.Time
}

func TestNotifyServiceSuite(t *testing.T) {
	suite.Run(t, new(NotifyServiceSuite))
}

func (s *NotifyServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.service = New(s.store)
	s.member = identity.Actor{ID: uuid.New(), Role: identity.RoleUser}
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *NotifyServiceSuite) event(at time.Time) *models.Event {
	return &models.Event{
		ID:          uuid.New(),
		RecipientID: s.member.ID,
		Type:        models.EventClaimSubmitted,
		PostingID:   uuid.New(),
		ClaimID:     uuid.New(),
		Message:     "someone filed a claim against your posting",
		OccurredAt:  at,
	}
}

func (s *NotifyServiceSuite) TestDeliver() {
	ctx := context.Background()

	s.Run("delivered events land in the inbox", func() {
		s.NoError(s.service.Deliver(ctx, s.event(s.now)))

		inbox, err := s.service.ListForUser(ctx, s.member, false)
		s.NoError(err)
		s.Len(inbox, 1)
		s.False(inbox[0].Read)
	})

	s.Run("redelivery is swallowed", func() {
		event := s.event(s.now)
		s.NoError(s.service.Deliver(ctx, event))
		s.NoError(s.service.Deliver(ctx, event))

		inbox, err := s.service.ListForUser(ctx, s.member, false)
		s.NoError(err)
		s.Len(inbox, 2)
	})
}

func (s *NotifyServiceSuite) TestListForUser() {
	ctx := context.Background()

	old := s.event(s.now.Add(-time.Hour))
	fresh := s.event(s.now)
	s.Require().NoError(s.service.Deliver(ctx, old))
	s.Require().NoError(s.service.Deliver(ctx, fresh))

	s.Run("newest first", func() {
		inbox, err := s.service.ListForUser(ctx, s.member, false)
		s.NoError(err)
		s.Require().Len(inbox, 2)
		s.Equal(fresh.ID, inbox[0].ID)
	})

	s.Run("unread only hides read entries", func() {
		s.Require().NoError(s.service.MarkRead(ctx, s.member, old.ID))

		inbox, err := s.service.ListForUser(ctx, s.member, true)
		s.NoError(err)
		s.Require().Len(inbox, 1)
		s.Equal(fresh.ID, inbox[0].ID)
	})

	s.Run("another member sees nothing", func() {
		stranger := identity.Actor{ID: uuid.New(), Role: identity.RoleUser}
		inbox, err := s.service.ListForUser(ctx, stranger, false)
		s.NoError(err)
		s.Empty(inbox)
	})
}

func (s *NotifyServiceSuite) TestMarkRead() {
	ctx := context.Background()
	event := s.event(s.now)
	s.Require().NoError(s.service.Deliver(ctx, event))

	s.Run("recipient marks their notification read", func() {
		s.NoError(s.service.MarkRead(ctx, s.member, event.ID))

		inbox, err := s.service.ListForUser(ctx, s.member, false)
		s.NoError(err)
		s.Require().Len(inbox, 1)
		s.True(inbox[0].Read)
	})

	s.Run("another member cannot", func() {
		stranger := identity.Actor{ID: uuid.New(), Role: identity.RoleUser}
		err := s.service.MarkRead(ctx, stranger, event.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing notification is not found", func() {
		err := s.service.MarkRead(ctx, s.member, uuid.New())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
