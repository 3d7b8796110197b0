package handler

import (
	"time"

	"github.com/google/uuid"

	postingmodels "lofo/internal/posting/models"
)

// CreatePostingRequest is the body for POST /postings.
type CreatePostingRequest struct {
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventTime   time.Time `json:"event_time"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
}

// Details converts the request body to domain details.
func (r *CreatePostingRequest) Details() postingmodels.Details {
	return postingmodels.Details{
		Category:    r.Category,
		Description: r.Description,
		Location:    r.Location,
		EventTime:   r.EventTime,
		PhotoRef:    r.PhotoRef,
	}
}

// FileClaimRequest is the body for POST /claims.
type FileClaimRequest struct {
	PostingID   uuid.UUID `json:"posting_id"`
	EvidenceRef string    `json:"evidence_ref"`
	Note        string    `json:"note"`
}

// RejectClaimRequest is the body for POST /claims/{id}/reject.
type RejectClaimRequest struct {
	Reason string `json:"reason"`
}
