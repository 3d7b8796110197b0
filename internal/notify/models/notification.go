package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the lifecycle moments members are told about.
type EventType string

const (
	EventClaimSubmitted   EventType = "claim_submitted"
	EventClaimApproved    EventType = "claim_approved"
	EventClaimRejected    EventType = "claim_rejected"
	EventPostingApproved  EventType = "posting_approved"
	EventPostingClosed    EventType = "posting_closed"
	EventPostingTakenDown EventType = "posting_taken_down"
)

// Event is the wire payload published on the notifications topic. The
// consumer materializes events into stored notifications.
type Event struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Type        EventType `json:"type"`
	PostingID   uuid.UUID `json:"posting_id,omitempty"`
	ClaimID     uuid.UUID `json:"claim_id,omitempty"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notification is a stored, per-member inbox entry.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Type        EventType `json:"type"`
	PostingID   uuid.UUID `json:"posting_id,omitempty"`
	ClaimID     uuid.UUID `json:"claim_id,omitempty"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromEvent converts a wire event into its stored form.
func FromEvent(event *Event) *Notification {
	return &Notification{
		ID:          event.ID,
		RecipientID: event.RecipientID,
		Type:        event.Type,
		PostingID:   event.PostingID,
		ClaimID:     event.ClaimID,
		Message:     event.Message,
		Read:        false,
		CreatedAt:   event.OccurredAt,
	}
}
