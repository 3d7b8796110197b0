package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "lofo/pkg/domain-errors"
)

// Outcome is the validation outcome of a claim.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// MinNoteLength is the domain rule for claim notes and rejection reasons.
const MinNoteLength = 10

// Claim is an assertion of ownership against a found-item posting.
//
// Invariants:
//   - PostingID and ClaimantID are immutable after construction
//   - Note is at least MinNoteLength characters
//   - Outcome moves pending→approved or pending→rejected exactly once
//   - A rejected claim carries a ValidationNote of at least MinNoteLength
//   - Claims are never deleted; rejected claims remain as an audit trail
type Claim struct {
	ID             uuid.UUID  `json:"id"`
	PostingID      uuid.UUID  `json:"posting_id"`
	ClaimantID     uuid.UUID  `json:"claimant_id"`
	EvidenceRef    string     `json:"evidence_ref"`
	Note           string     `json:"note"`
	Outcome        Outcome    `json:"outcome"`
	ValidationNote string     `json:"validation_note,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ValidatedAt    *time.Time `json:"validated_at,omitempty"`
}

// NewClaim constructs a pending Claim, enforcing construction invariants.
func NewClaim(id, postingID, claimantID uuid.UUID, evidenceRef, note string, now time.Time) (*Claim, error) {
	if postingID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim requires a posting")
	}
	if claimantID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim requires a claimant")
	}
	if strings.TrimSpace(evidenceRef) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evidence ref is required")
	}
	if len(strings.TrimSpace(note)) < MinNoteLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "note must be at least 10 characters")
	}
	return &Claim{
		ID:          id,
		PostingID:   postingID,
		ClaimantID:  claimantID,
		EvidenceRef: evidenceRef,
		Note:        note,
		Outcome:     OutcomePending,
		SubmittedAt: now,
	}, nil
}

// Approve marks a pending claim approved.
func (c *Claim) Approve(now time.Time) error {
	if c.Outcome != OutcomePending {
		return dErrors.New(dErrors.CodeInvalidState, "claim is not pending")
	}
	c.Outcome = OutcomeApproved
	c.ValidatedAt = &now
	return nil
}

// Reject marks a pending claim rejected with the given reason.
func (c *Claim) Reject(reason string, now time.Time) error {
	if c.Outcome != OutcomePending {
		return dErrors.New(dErrors.CodeInvalidState, "claim is not pending")
	}
	if len(strings.TrimSpace(reason)) < MinNoteLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "rejection reason must be at least 10 characters")
	}
	c.Outcome = OutcomeRejected
	c.ValidationNote = reason
	c.ValidatedAt = &now
	return nil
}
