package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lofo/internal/claim/models"
	postingmodels "lofo/internal/posting/models"
	postingstore "lofo/internal/posting/store"
	"lofo/pkg/platform/sentinel"
)

type MemoryClaimStoreSuite struct {
	suite.Suite
	postings *postingstore.Memory
	store    *Memory
	now      time.Time
}

func TestMemoryClaimStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryClaimStoreSuite))
}

func (s *MemoryClaimStoreSuite) SetupTest() {
	s.postings = postingstore.NewMemory()
	s.store = NewMemory(s.postings)
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryClaimStoreSuite) createPosting(status postingmodels.Status) *postingmodels.Posting {
	posting, err := postingmodels.NewPosting(uuid.New(), uuid.New(), postingmodels.KindFound, postingmodels.Details{
		Category:    "electronics",
		Description: "black headphones, scuffed left cup",
		Location:    "library second floor",
		EventTime:   s.now.Add(-2 * time.Hour),
	}, postingmodels.StatusActive, s.now)
	s.Require().NoError(err)
	posting.Status = status
	s.Require().NoError(s.postings.Create(context.Background(), posting))
	return posting
}

func (s *MemoryClaimStoreSuite) newClaim(postingID uuid.UUID) *models.Claim {
	claim, err := models.NewClaim(uuid.New(), postingID, uuid.New(),
		"s3://evidence/receipt.jpg", "serial number engraved under the left hinge", s.now)
	s.Require().NoError(err)
	return claim
}

func (s *MemoryClaimStoreSuite) TestCreateAndGate() {
	ctx := context.Background()

	s.Run("files against an active posting and gates it", func() {
		posting := s.createPosting(postingmodels.StatusActive)
		claim := s.newClaim(posting.ID)

		s.NoError(s.store.CreateAndGate(ctx, claim, s.now))

		got, err := s.store.FindByID(ctx, claim.ID)
		s.NoError(err)
		s.Equal(models.OutcomePending, got.Outcome)

		gated, err := s.postings.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(postingmodels.StatusAwaitingValidation, gated.Status)
	})

	s.Run("missing posting returns not found", func() {
		claim := s.newClaim(uuid.New())
		s.ErrorIs(s.store.CreateAndGate(ctx, claim, s.now), sentinel.ErrNotFound)
	})

	s.Run("gated posting returns conflict and writes nothing", func() {
		posting := s.createPosting(postingmodels.StatusAwaitingValidation)
		claim := s.newClaim(posting.ID)

		s.ErrorIs(s.store.CreateAndGate(ctx, claim, s.now), sentinel.ErrConflict)

		_, err := s.store.FindByID(ctx, claim.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("closed posting returns invalid state", func() {
		posting := s.createPosting(postingmodels.StatusClosed)
		claim := s.newClaim(posting.ID)
		s.ErrorIs(s.store.CreateAndGate(ctx, claim, s.now), sentinel.ErrInvalidState)
	})

	s.Run("exactly one of many concurrent filers wins", func() {
		posting := s.createPosting(postingmodels.StatusActive)

		const filers = 8
		errs := make(chan error, filers)
		var wg sync.WaitGroup
		for range filers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.store.CreateAndGate(ctx, s.newClaim(posting.ID), s.now)
			}()
		}
		wg.Wait()
		close(errs)

		var wins, conflicts int
		for err := range errs {
			switch {
			case err == nil:
				wins++
			default:
				s.ErrorIs(err, sentinel.ErrConflict)
				conflicts++
			}
		}
		s.Equal(1, wins)
		s.Equal(filers-1, conflicts)

		claims, err := s.store.ListForPosting(ctx, posting.ID)
		s.NoError(err)
		s.Len(claims, 1)
	})
}

func (s *MemoryClaimStoreSuite) TestResolveAndRelease() {
	ctx := context.Background()

	file := func() (*postingmodels.Posting, *models.Claim) {
		posting := s.createPosting(postingmodels.StatusActive)
		claim := s.newClaim(posting.ID)
		s.Require().NoError(s.store.CreateAndGate(ctx, claim, s.now))
		return posting, claim
	}

	s.Run("approval closes the posting", func() {
		posting, claim := file()
		s.Require().NoError(claim.Approve(s.now))

		s.NoError(s.store.ResolveAndRelease(ctx, claim, postingmodels.StatusClosed, s.now))

		got, err := s.store.FindByID(ctx, claim.ID)
		s.NoError(err)
		s.Equal(models.OutcomeApproved, got.Outcome)

		released, err := s.postings.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(postingmodels.StatusClosed, released.Status)
	})

	s.Run("rejection reopens the posting", func() {
		posting, claim := file()
		s.Require().NoError(claim.Reject("the serial number does not match", s.now))

		s.NoError(s.store.ResolveAndRelease(ctx, claim, postingmodels.StatusActive, s.now))

		got, err := s.store.FindByID(ctx, claim.ID)
		s.NoError(err)
		s.Equal(models.OutcomeRejected, got.Outcome)
		s.Equal("the serial number does not match", got.ValidationNote)

		released, err := s.postings.FindByID(ctx, posting.ID)
		s.NoError(err)
		s.Equal(postingmodels.StatusActive, released.Status)
	})

	s.Run("already resolved claim returns invalid state", func() {
		_, claim := file()
		s.Require().NoError(claim.Approve(s.now))
		s.Require().NoError(s.store.ResolveAndRelease(ctx, claim, postingmodels.StatusClosed, s.now))

		s.ErrorIs(s.store.ResolveAndRelease(ctx, claim, postingmodels.StatusClosed, s.now), sentinel.ErrInvalidState)
	})

	s.Run("posting moved on underneath returns conflict and leaves claim pending", func() {
		posting, claim := file()
		// An administrator takes the posting down while the claim is open.
		s.Require().NoError(s.postings.UpdateStatus(ctx, posting.ID,
			[]postingmodels.Status{postingmodels.StatusAwaitingValidation},
			postingmodels.StatusRejectedByAdmin, s.now))

		resolved := *claim
		s.Require().NoError(resolved.Approve(s.now))
		s.ErrorIs(s.store.ResolveAndRelease(ctx, &resolved, postingmodels.StatusClosed, s.now), sentinel.ErrConflict)

		got, err := s.store.FindByID(ctx, claim.ID)
		s.NoError(err)
		s.Equal(models.OutcomePending, got.Outcome)
	})

	s.Run("missing claim returns not found", func() {
		claim := s.newClaim(uuid.New())
		s.Require().NoError(claim.Approve(s.now))
		s.ErrorIs(s.store.ResolveAndRelease(ctx, claim, postingmodels.StatusClosed, s.now), sentinel.ErrNotFound)
	})
}

func (s *MemoryClaimStoreSuite) TestListForPosting() {
	ctx := context.Background()
	posting := s.createPosting(postingmodels.StatusActive)

	first := s.newClaim(posting.ID)
	first.SubmittedAt = s.now.Add(-time.Hour)
	s.Require().NoError(s.store.CreateAndGate(ctx, first, s.now))

	s.Require().NoError(first.Reject("we could not verify the engraving", s.now))
	s.Require().NoError(s.store.ResolveAndRelease(ctx, first, postingmodels.StatusActive, s.now))

	second := s.newClaim(posting.ID)
	s.Require().NoError(s.store.CreateAndGate(ctx, second, s.now))

	claims, err := s.store.ListForPosting(ctx, posting.ID)
	s.NoError(err)
	s.Require().Len(claims, 2)
	s.Equal(first.ID, claims[0].ID)
	s.Equal(second.ID, claims[1].ID)

	s.Run("unrelated posting lists nothing", func() {
		claims, err := s.store.ListForPosting(ctx, uuid.New())
		s.NoError(err)
		s.Empty(claims)
	})
}

func (s *MemoryClaimStoreSuite) TestDeleteForPosting() {
	ctx := context.Background()
	posting := s.createPosting(postingmodels.StatusActive)
	claim := s.newClaim(posting.ID)
	s.Require().NoError(s.store.CreateAndGate(ctx, claim, s.now))

	s.NoError(s.store.DeleteForPosting(ctx, posting.ID))

	claims, err := s.store.ListForPosting(ctx, posting.ID)
	s.NoError(err)
	s.Empty(claims)

	s.Run("no claims is not an error", func() {
		s.NoError(s.store.DeleteForPosting(ctx, uuid.New()))
	})
}
