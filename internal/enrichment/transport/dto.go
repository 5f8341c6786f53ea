package transport

import (
	"github.com/google/uuid"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/internal/listings/domain"
)

// EnrichListingQuery controls a single-record run.
type EnrichListingQuery struct {
	Photos *bool `form:"photos"`
}

// EnrichListingResponse is the outcome and the record as stored afterwards.
type EnrichListingResponse struct {
	Outcome service.Outcome `json:"outcome"`
	Listing domain.Listing  `json:"listing"`
}

// StartBatchRequest queues a batch. An empty body processes every eligible record.
type StartBatchRequest struct {
	ListingIDs []string `json:"listingIds" validate:"omitempty,max=500,dive,uuid"`
	WithPhotos *bool    `json:"withPhotos"`
	Limit      int      `json:"limit" validate:"omitempty,min=1,max=1000"`
}

// IDs parses ListingIDs. Call after validation.
func (r StartBatchRequest) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.ListingIDs))
	for _, raw := range r.ListingIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// StartBatchResponse identifies a queued batch.
type StartBatchResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
}
