package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lofo/internal/posting/models"
	"lofo/pkg/platform/sentinel"
)

type MemoryPostingStoreSuite struct {
	suite.Suite
	store *Memory
	now   time.Time
}

func TestMemoryPostingStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryPostingStoreSuite))
}

func (s *MemoryPostingStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryPostingStoreSuite) newPosting(kind models.Kind, status models.Status) *models.Posting {
	posting, err := models.NewPosting(uuid.New(), uuid.New(), kind, models.Details{
		Category:    "electronics",
		Description: "black headphones, scuffed left cup",
		Location:    "library second floor",
		EventTime:   s.now.Add(-2 * time.Hour),
	}, models.StatusActive, s.now)
	s.Require().NoError(err)
	posting.Status = status
	return posting
}

func (s *MemoryPostingStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	s.Run("missing posting returns not found", func() {
		_, err := s.store.FindByID(ctx, uuid.New())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("created posting round-trips", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))

		got, err := s.store.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(posting, got)
	})

	s.Run("duplicate id conflicts", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))
		s.ErrorIs(s.store.Create(ctx, posting), sentinel.ErrConflict)
	})

	s.Run("returned posting is a copy", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))

		got, err := s.store.FindByID(ctx, posting.ID)
		s.NoError(err)
		got.Status = models.StatusClosed

		again, err := s.store.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(models.StatusActive, again.Status)
	})
}

func (s *MemoryPostingStoreSuite) TestUpdateStatus() {
	ctx := context.Background()

	s.Run("moves status when guard matches", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))

		later := s.now.Add(time.Minute)
		err := s.store.UpdateStatus(ctx, posting.ID, []models.Status{models.StatusActive}, models.StatusClosed, later)
		s.NoError(err)

		got, err := s.store.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(models.StatusClosed, got.Status)
		s.Equal(later, got.UpdatedAt)
	})

	s.Run("guard mismatch leaves posting untouched", func() {
		posting := s.newPosting(models.KindFound, models.StatusAwaitingValidation)
		s.NoError(s.store.Create(ctx, posting))

		err := s.store.UpdateStatus(ctx, posting.ID, []models.Status{models.StatusActive}, models.StatusClosed, s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		got, err := s.store.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(models.StatusAwaitingValidation, got.Status)
	})

	s.Run("missing posting returns not found", func() {
		err := s.store.UpdateStatus(ctx, uuid.New(), []models.Status{models.StatusActive}, models.StatusClosed, s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("only one of two concurrent transitions wins", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))

		errs := make(chan error, 2)
		for range 2 {
			go func() {
				errs <- s.store.UpdateStatus(ctx, posting.ID, []models.Status{models.StatusActive}, models.StatusClosed, s.now)
			}()
		}
		var wins, losses int
		for range 2 {
			if err := <-errs; err == nil {
				wins++
			} else {
				s.ErrorIs(err, sentinel.ErrInvalidState)
				losses++
			}
		}
		s.Equal(1, wins)
		s.Equal(1, losses)
	})
}

func (s *MemoryPostingStoreSuite) TestList() {
	ctx := context.Background()

	lost := s.newPosting(models.KindLost, models.StatusActive)
	lost.Category = "keys"
	lost.CreatedAt = s.now.Add(-time.Hour)
	found := s.newPosting(models.KindFound, models.StatusActive)
	closed := s.newPosting(models.KindFound, models.StatusClosed)
	s.Require().NoError(s.store.Create(ctx, lost))
	s.Require().NoError(s.store.Create(ctx, found))
	s.Require().NoError(s.store.Create(ctx, closed))

	s.Run("no filter returns all, newest first", func() {
		out, err := s.store.List(ctx, Filter{})
		s.NoError(err)
		s.Len(out, 3)
		s.Equal(lost.ID, out[2].ID)
	})

	s.Run("kind filter", func() {
		out, err := s.store.List(ctx, Filter{Kind: models.KindLost})
		s.NoError(err)
		s.Len(out, 1)
		s.Equal(lost.ID, out[0].ID)
	})

	s.Run("status filter", func() {
		out, err := s.store.List(ctx, Filter{Status: models.StatusClosed})
		s.NoError(err)
		s.Len(out, 1)
		s.Equal(closed.ID, out[0].ID)
	})

	s.Run("category filter", func() {
		out, err := s.store.List(ctx, Filter{Category: "keys"})
		s.NoError(err)
		s.Len(out, 1)
		s.Equal(lost.ID, out[0].ID)
	})

	s.Run("limit and offset page through results", func() {
		page1, err := s.store.List(ctx, Filter{Limit: 2})
		s.NoError(err)
		s.Len(page1, 2)

		page2, err := s.store.List(ctx, Filter{Limit: 2, Offset: 2})
		s.NoError(err)
		s.Len(page2, 1)

		s.NotEqual(page1[0].ID, page2[0].ID)
		s.NotEqual(page1[1].ID, page2[0].ID)
	})

	s.Run("offset past the end returns empty", func() {
		out, err := s.store.List(ctx, Filter{Offset: 10})
		s.NoError(err)
		s.Empty(out)
	})
}

func (s *MemoryPostingStoreSuite) TestDelete() {
	ctx := context.Background()

	s.Run("removes the posting", func() {
		posting := s.newPosting(models.KindFound, models.StatusActive)
		s.NoError(s.store.Create(ctx, posting))
		s.NoError(s.store.Delete(ctx, posting.ID))

		_, err := s.store.FindByID(ctx, posting.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("missing posting returns not found", func() {
		s.ErrorIs(s.store.Delete(ctx, uuid.New()), sentinel.ErrNotFound)
	})
}
