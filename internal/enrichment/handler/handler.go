package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/internal/enrichment/transport"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/httpkit"
	"venue_enrichment_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// BatchQueue hands a batch to the background worker.
type BatchQueue interface {
	EnqueueBatch(ctx context.Context, opts service.Options) error
}

// ProgressStore persists batch snapshots.
type ProgressStore interface {
	Save(ctx context.Context, r service.Report) error
	Get(ctx context.Context, batchID string) (service.Report, error)
}

// Handler handles enrichment HTTP requests.
type Handler struct {
	svc        *service.Service
	queue      BatchQueue
	progress   ProgressStore
	val        *validator.Validator
	withPhotos bool
}

// New creates the handler. queue and progress may be nil when Redis is not
// configured; batch endpoints then answer 503.
func New(svc *service.Service, queue BatchQueue, progress ProgressStore, val *validator.Validator, withPhotos bool) *Handler {
	return &Handler{svc: svc, queue: queue, progress: progress, val: val, withPhotos: withPhotos}
}

// EnrichListing runs the pipeline for one listing synchronously.
// POST /api/v1/enrichment/listings/:id
func (h *Handler) EnrichListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "invalid listing id")
		return
	}
	var q transport.EnrichListingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	withPhotos := h.withPhotos
	if q.Photos != nil {
		withPhotos = *q.Photos
	}

	outcome, listing, err := h.svc.EnrichOne(c.Request.Context(), id, withPhotos)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.EnrichListingResponse{Outcome: outcome, Listing: listing})
}

// StartBatch queues a batch run.
// POST /api/v1/enrichment/batches
func (h *Handler) StartBatch(c *gin.Context) {
	if h.queue == nil || h.progress == nil {
		httpkit.HandleError(c, apperr.Unavailable("batch queue is not configured"))
		return
	}

	var req transport.StartBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	opts := service.Options{
		BatchID:    uuid.NewString(),
		ListingIDs: req.IDs(),
		WithPhotos: h.withPhotos,
		Limit:      req.Limit,
	}
	if req.WithPhotos != nil {
		opts.WithPhotos = *req.WithPhotos
	}

	ctx := c.Request.Context()
	if err := h.progress.Save(ctx, service.Report{BatchID: opts.BatchID, Status: service.StatusQueued}); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	if err := h.queue.EnqueueBatch(ctx, opts); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.StartBatchResponse{BatchID: opts.BatchID, Status: service.StatusQueued})
}

// GetBatch reports a batch's latest snapshot.
// GET /api/v1/enrichment/batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	if h.progress == nil {
		httpkit.HandleError(c, apperr.Unavailable("batch progress is not configured"))
		return
	}
	report, err := h.progress.Get(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}
