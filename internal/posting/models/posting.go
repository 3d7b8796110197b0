package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "lofo/pkg/domain-errors"
)

// Kind says whether the reporter lost the item or found someone else's.
// Immutable after creation.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLost, KindFound:
		return Kind(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "kind must be lost or found")
	}
}

// Status is the posting's position in its lifecycle.
type Status string

const (
	// StatusPendingAdmin is the initial status under the moderation policy;
	// an administrator must approve the posting before it goes live.
	StatusPendingAdmin Status = "pending_admin"

	// StatusActive means the posting is live and, for found items, claimable.
	StatusActive Status = "active"

	// StatusAwaitingValidation means a claim is pending and blocks further
	// claims until the reporter resolves it.
	StatusAwaitingValidation Status = "awaiting_validation"

	// StatusClosed is terminal: the item was returned or otherwise resolved.
	StatusClosed Status = "closed"

	// StatusRejectedByAdmin is terminal: an administrator took the posting
	// down.
	StatusRejectedByAdmin Status = "rejected_by_admin"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusRejectedByAdmin
}

// transitions is the full state machine. Claim-driven transitions
// (active→awaiting_validation, awaiting_validation→closed/active) are driven
// exclusively by the claim registry; the rest by the posting registry.
var transitions = map[Status][]Status{
	StatusPendingAdmin:       {StatusActive, StatusRejectedByAdmin},
	StatusActive:             {StatusAwaitingValidation, StatusClosed, StatusRejectedByAdmin},
	StatusAwaitingValidation: {StatusClosed, StatusActive, StatusRejectedByAdmin},
	StatusClosed:             {},
	StatusRejectedByAdmin:    {},
}

// CanTransition reports whether from→to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Details are the reporter-supplied posting fields.
type Details struct {
	Category    string
	Description string
	Location    string
	// EventTime is when the item was lost or found, distinct from CreatedAt.
	EventTime time.Time
	PhotoRef  string
}

// Posting is a lost or found item report.
//
// Invariants:
//   - Kind is immutable after construction
//   - Status moves only along the transitions table
//   - ReporterID is the sole owner for the mark-solved action
type Posting struct {
	ID          uuid.UUID `json:"id"`
	ReporterID  uuid.UUID `json:"reporter_id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventTime   time.Time `json:"event_time"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPosting constructs a Posting, enforcing construction invariants.
func NewPosting(id, reporterID uuid.UUID, kind Kind, details Details, initial Status, now time.Time) (*Posting, error) {
	if reporterID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "posting requires a reporter")
	}
	if kind != KindLost && kind != KindFound {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "kind must be lost or found")
	}
	if details.Category == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category is required")
	}
	if details.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	}
	if details.Location == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location is required")
	}
	if details.EventTime.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event time is required")
	}
	if initial != StatusActive && initial != StatusPendingAdmin {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "posting must start active or pending_admin")
	}
	return &Posting{
		ID:          id,
		ReporterID:  reporterID,
		Kind:        kind,
		Status:      initial,
		Category:    details.Category,
		Description: details.Description,
		Location:    details.Location,
		EventTime:   details.EventTime,
		PhotoRef:    details.PhotoRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
