// Package lifecycle sequences the posting and claim registries behind the
// HTTP surface. The coordinator adds no rules of its own: registries enforce
// ownership and state, stores make the writes atomic, and the coordinator
// decides what happens around a successful change, which today means tracing
// and notifications. Notifications go out only after the state change has
// committed and are fire and forget; a failed notification never rolls back
// or fails the operation that triggered it.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	claimmodels "lofo/internal/claim/models"
	"lofo/internal/identity"
	notifymodels "lofo/internal/notify/models"
	postingmodels "lofo/internal/posting/models"
	postingstore "lofo/internal/posting/store"
)

// PostingRegistry is the posting surface the coordinator sequences.
type PostingRegistry interface {
	Create(ctx context.Context, actor identity.Actor, kind postingmodels.Kind, details postingmodels.Details) (*postingmodels.Posting, error)
	Get(ctx context.Context, id uuid.UUID) (*postingmodels.Posting, error)
	List(ctx context.Context, filter postingstore.Filter) ([]*postingmodels.Posting, error)
	ModerationQueue(ctx context.Context, actor identity.Actor) ([]*postingmodels.Posting, error)
	MarkSolved(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error)
	ApproveModeration(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error)
	Takedown(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error)
	HardDelete(ctx context.Context, actor identity.Actor, id uuid.UUID) error
}

// ClaimRegistry is the claim surface the coordinator sequences.
type ClaimRegistry interface {
	File(ctx context.Context, actor identity.Actor, postingID uuid.UUID, evidenceRef, note string) (*claimmodels.Claim, error)
	Approve(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*claimmodels.Claim, error)
	Reject(ctx context.Context, actor identity.Actor, claimID uuid.UUID, reason string) (*claimmodels.Claim, error)
	Get(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*claimmodels.Claim, error)
	ListForPosting(ctx context.Context, actor identity.Actor, postingID uuid.UUID) ([]*claimmodels.Claim, error)
}

//go:generate mockgen -source=coordinator.go -destination=mocks/mock_lifecycle.go -package=mocks Sink

// Sink publishes notification events. Publish must not block or fail the
// caller.
type Sink interface {
	Publish(ctx context.Context, event *notifymodels.Event)
}

// Coordinator ties the registries together.
type Coordinator struct {
	postings PostingRegistry
	claims   ClaimRegistry
	sink     Sink
	tracer   trace.Tracer
}

// New constructs a coordinator. A nil sink disables notifications.
func New(postings PostingRegistry, claims ClaimRegistry, sink Sink) *Coordinator {
	return &Coordinator{
		postings: postings,
		claims:   claims,
		sink:     sink,
		tracer:   otel.Tracer("lofo/lifecycle"),
	}
}

// CreatePosting registers a new posting.
func (c *Coordinator) CreatePosting(ctx context.Context, actor identity.Actor, kind postingmodels.Kind, details postingmodels.Details) (*postingmodels.Posting, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.create_posting",
		trace.WithAttributes(attribute.String("posting.kind", string(kind))))
	defer span.End()

	posting, err := c.postings.Create(ctx, actor, kind, details)
	if err != nil {
		return nil, c.fail(span, err)
	}
	span.SetAttributes(attribute.String("posting.id", posting.ID.String()))
	return posting, nil
}

// GetPosting returns a posting by id.
func (c *Coordinator) GetPosting(ctx context.Context, id uuid.UUID) (*postingmodels.Posting, error) {
	return c.postings.Get(ctx, id)
}

// ListPostings browses postings.
func (c *Coordinator) ListPostings(ctx context.Context, filter postingstore.Filter) ([]*postingmodels.Posting, error) {
	return c.postings.List(ctx, filter)
}

// ModerationQueue lists postings awaiting review.
func (c *Coordinator) ModerationQueue(ctx context.Context, actor identity.Actor) ([]*postingmodels.Posting, error) {
	return c.postings.ModerationQueue(ctx, actor)
}

// MarkSolved closes an active posting and tells past claimants the item is
// gone.
func (c *Coordinator) MarkSolved(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.mark_solved",
		trace.WithAttributes(attribute.String("posting.id", id.String())))
	defer span.End()

	posting, err := c.postings.MarkSolved(ctx, actor, id)
	if err != nil {
		return nil, c.fail(span, err)
	}

	claims, err := c.claims.ListForPosting(ctx, actor, id)
	if err == nil {
		for _, claim := range claims {
			c.notify(ctx, claim.ClaimantID, notifymodels.EventPostingClosed, posting.ID, claim.ID,
				"a posting you claimed was closed by its reporter")
		}
	}
	return posting, nil
}

// ApproveModeration moves a pending posting live and tells the reporter.
func (c *Coordinator) ApproveModeration(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.approve_moderation",
		trace.WithAttributes(attribute.String("posting.id", id.String())))
	defer span.End()

	posting, err := c.postings.ApproveModeration(ctx, actor, id)
	if err != nil {
		return nil, c.fail(span, err)
	}
	c.notify(ctx, posting.ReporterID, notifymodels.EventPostingApproved, posting.ID, uuid.Nil,
		"your posting was approved and is now live")
	return posting, nil
}

// Takedown rejects a posting and tells the reporter and any pending claimant.
func (c *Coordinator) Takedown(ctx context.Context, actor identity.Actor, id uuid.UUID) (*postingmodels.Posting, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.takedown",
		trace.WithAttributes(attribute.String("posting.id", id.String())))
	defer span.End()

	posting, err := c.postings.Takedown(ctx, actor, id)
	if err != nil {
		return nil, c.fail(span, err)
	}

	c.notify(ctx, posting.ReporterID, notifymodels.EventPostingTakenDown, posting.ID, uuid.Nil,
		"your posting was taken down by an administrator")
	claims, err := c.claims.ListForPosting(ctx, actor, id)
	if err == nil {
		for _, claim := range claims {
			if claim.Outcome != claimmodels.OutcomePending {
				continue
			}
			c.notify(ctx, claim.ClaimantID, notifymodels.EventPostingTakenDown, posting.ID, claim.ID,
				"a posting you claimed was taken down by an administrator")
		}
	}
	return posting, nil
}

// HardDeletePosting removes a posting and its claims entirely.
func (c *Coordinator) HardDeletePosting(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	ctx, span := c.tracer.Start(ctx, "lifecycle.hard_delete_posting",
		trace.WithAttributes(attribute.String("posting.id", id.String())))
	defer span.End()

	if err := c.postings.HardDelete(ctx, actor, id); err != nil {
		return c.fail(span, err)
	}
	return nil
}

// FileClaim submits a claim and tells the reporter there is something to
// validate.
func (c *Coordinator) FileClaim(ctx context.Context, actor identity.Actor, postingID uuid.UUID, evidenceRef, note string) (*claimmodels.Claim, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.file_claim",
		trace.WithAttributes(attribute.String("posting.id", postingID.String())))
	defer span.End()

	claim, err := c.claims.File(ctx, actor, postingID, evidenceRef, note)
	if err != nil {
		return nil, c.fail(span, err)
	}
	span.SetAttributes(attribute.String("claim.id", claim.ID.String()))

	if posting, err := c.postings.Get(ctx, postingID); err == nil {
		c.notify(ctx, posting.ReporterID, notifymodels.EventClaimSubmitted, postingID, claim.ID,
			"a claim was filed against your posting")
	}
	return claim, nil
}

// ApproveClaim accepts a claim, closing its posting, and tells the claimant.
func (c *Coordinator) ApproveClaim(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*claimmodels.Claim, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.approve_claim",
		trace.WithAttributes(attribute.String("claim.id", claimID.String())))
	defer span.End()

	claim, err := c.claims.Approve(ctx, actor, claimID)
	if err != nil {
		return nil, c.fail(span, err)
	}
	c.notify(ctx, claim.ClaimantID, notifymodels.EventClaimApproved, claim.PostingID, claim.ID,
		"your claim was approved, arrange the handover with the reporter")
	return claim, nil
}

// RejectClaim turns a claim down, reopening its posting, and tells the
// claimant why.
func (c *Coordinator) RejectClaim(ctx context.Context, actor identity.Actor, claimID uuid.UUID, reason string) (*claimmodels.Claim, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.reject_claim",
		trace.WithAttributes(attribute.String("claim.id", claimID.String())))
	defer span.End()

	claim, err := c.claims.Reject(ctx, actor, claimID, reason)
	if err != nil {
		return nil, c.fail(span, err)
	}
	c.notify(ctx, claim.ClaimantID, notifymodels.EventClaimRejected, claim.PostingID, claim.ID,
		fmt.Sprintf("your claim was rejected: %s", claim.ValidationNote))
	return claim, nil
}

// GetClaim returns a claim visible to the actor.
func (c *Coordinator) GetClaim(ctx context.Context, actor identity.Actor, claimID uuid.UUID) (*claimmodels.Claim, error) {
	return c.claims.Get(ctx, actor, claimID)
}

// ListClaims returns a posting's claims, oldest first.
func (c *Coordinator) ListClaims(ctx context.Context, actor identity.Actor, postingID uuid.UUID) ([]*claimmodels.Claim, error) {
	return c.claims.ListForPosting(ctx, actor, postingID)
}

func (c *Coordinator) notify(ctx context.Context, recipientID uuid.UUID, eventType notifymodels.EventType, postingID, claimID uuid.UUID, message string) {
	if c.sink == nil {
		return
	}
	c.sink.Publish(ctx, &notifymodels.Event{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        eventType,
		PostingID:   postingID,
		ClaimID:     claimID,
		Message:     message,
		OccurredAt:  time.Now().UTC(),
	})
}

func (c *Coordinator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
