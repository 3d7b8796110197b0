package handler

import (
	claimmodels "lofo/internal/claim/models"
	postingmodels "lofo/internal/posting/models"
)

// PostingListResponse wraps a page of postings.
type PostingListResponse struct {
	Postings []*postingmodels.Posting `json:"postings"`
}

// ClaimListResponse wraps a posting's claims.
type ClaimListResponse struct {
	Claims []*claimmodels.Claim `json:"claims"`
}
