package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/validator"
)

type emptyListings struct{}

func (emptyListings) List(context.Context, repository.Query) []domain.Listing { return nil }

func (emptyListings) GetByID(context.Context, uuid.UUID) (domain.Listing, error) {
	return domain.Listing{}, apperr.NotFound("listing not found")
}

func (emptyListings) Update(context.Context, uuid.UUID, domain.ListingUpdate) (domain.Listing, error) {
	return domain.Listing{}, errors.New("unexpected update")
}

type fakeQueue struct {
	enqueued []service.Options
	err      error
}

func (q *fakeQueue) EnqueueBatch(_ context.Context, opts service.Options) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, opts)
	return nil
}

type fakeProgress struct {
	reports map[string]service.Report
}

func (p *fakeProgress) Save(_ context.Context, r service.Report) error {
	p.reports[r.BatchID] = r
	return nil
}

func (p *fakeProgress) Get(_ context.Context, batchID string) (service.Report, error) {
	r, ok := p.reports[batchID]
	if !ok {
		return service.Report{}, apperr.NotFound("batch not found")
	}
	return r, nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/enrichment/listings/:id", h.EnrichListing)
	r.POST("/enrichment/batches", h.StartBatch)
	r.GET("/enrichment/batches/:id", h.GetBatch)
	return r
}

func newHandler(queue BatchQueue, progress ProgressStore) *Handler {
	svc := service.New(emptyListings{}, nil, nil, nil, nil, service.Costs{}, logger.Discard())
	return New(svc, queue, progress, validator.New(), true)
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartBatchQueuesAndRecordsSnapshot(t *testing.T) {
	queue := &fakeQueue{}
	progress := &fakeProgress{reports: map[string]service.Report{}}
	r := newRouter(newHandler(queue, progress))

	id := uuid.New()
	w := serve(r, http.MethodPost, "/enrichment/batches", `{"listingIds":["`+id.String()+`"],"withPhotos":false,"limit":5}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		BatchID string `json:"batchId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != service.StatusQueued || resp.BatchID == "" {
		t.Errorf("response = %+v", resp)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued = %d", len(queue.enqueued))
	}
	opts := queue.enqueued[0]
	if opts.BatchID != resp.BatchID || opts.WithPhotos || opts.Limit != 5 || len(opts.ListingIDs) != 1 || opts.ListingIDs[0] != id {
		t.Errorf("options = %+v", opts)
	}
	if snap := progress.reports[resp.BatchID]; snap.Status != service.StatusQueued {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStartBatchEmptyBodyUsesDefaults(t *testing.T) {
	queue := &fakeQueue{}
	r := newRouter(newHandler(queue, &fakeProgress{reports: map[string]service.Report{}}))

	w := serve(r, http.MethodPost, "/enrichment/batches", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if opts := queue.enqueued[0]; !opts.WithPhotos || opts.Limit != 0 || len(opts.ListingIDs) != 0 {
		t.Errorf("options = %+v", opts)
	}
}

func TestStartBatchValidation(t *testing.T) {
	queue := &fakeQueue{}
	r := newRouter(newHandler(queue, &fakeProgress{reports: map[string]service.Report{}}))

	w := serve(r, http.MethodPost, "/enrichment/batches", `{"listingIds":["not-a-uuid"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Error("invalid batch must not be queued")
	}
}

func TestBatchEndpointsWithoutRedis(t *testing.T) {
	r := newRouter(newHandler(nil, nil))

	if w := serve(r, http.MethodPost, "/enrichment/batches", "{}"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("start status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/enrichment/batches/abc", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("get status = %d", w.Code)
	}
}

func TestGetBatch(t *testing.T) {
	progress := &fakeProgress{reports: map[string]service.Report{
		"b1": {BatchID: "b1", Status: service.StatusRunning, Progress: service.Progress{Current: 1, Total: 2, Percentage: 50, Succeeded: 1}},
	}}
	r := newRouter(newHandler(&fakeQueue{}, progress))

	w := serve(r, http.MethodGet, "/enrichment/batches/b1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"percentage":50`) {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/enrichment/batches/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}

func TestEnrichListingErrors(t *testing.T) {
	r := newRouter(newHandler(nil, nil))

	if w := serve(r, http.MethodPost, "/enrichment/listings/nope", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/enrichment/listings/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", w.Code)
	}
}
