package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"venue_enrichment_backend/internal/content"
	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/internal/listings/domain"
	listingsrepo "venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
)

func newTestStore(t *testing.T) (*ProgressStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProgressStore(rdb, logger.Discard()), mr
}

func TestProgressRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	id := uuid.New()
	report := service.Report{
		BatchID:   "batch-1",
		Status:    service.StatusRunning,
		Progress:  service.Progress{Current: 2, Total: 3, Percentage: 66, Succeeded: 1, Failed: 1},
		Outcomes:  []service.Outcome{{ListingID: id, Title: "Church Farm Barn", Success: true, PhotosAdded: 2}},
		StartedAt: started,
	}
	store.Record(ctx, report)

	got, err := store.Get(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Progress != report.Progress || got.Status != service.StatusRunning {
		t.Errorf("progress = %+v status = %q", got.Progress, got.Status)
	}
	if len(got.Outcomes) != 1 || got.Outcomes[0].ListingID != id || got.Outcomes[0].PhotosAdded != 2 {
		t.Errorf("outcomes = %+v", got.Outcomes)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started = %v", got.StartedAt)
	}

	if ttl := mr.TTL(keyPrefix + "batch-1"); ttl != defaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, defaultTTL)
	}
}

func TestProgressLatestSnapshotWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Record(ctx, service.Report{BatchID: "b", Status: service.StatusQueued})
	store.Record(ctx, service.Report{BatchID: "b", Status: service.StatusCompleted, Progress: service.Progress{Current: 1, Total: 1, Percentage: 100, Succeeded: 1}})

	got, err := store.Get(ctx, "b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != service.StatusCompleted || got.Progress.Percentage != 100 {
		t.Errorf("got %+v", got)
	}
}

func TestProgressMissingBatch(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestProgressSaveRequiresBatchID(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Save(context.Background(), service.Report{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	rdb, err := OpenRedis("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer rdb.Close()
	opt := rdb.Options()
	if opt.Addr != "cache.internal:6380" || opt.DB != 2 || opt.Password != "secret" {
		t.Errorf("options = %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Error("expected insecure TLS config")
	}

	if _, err := OpenRedis("::not a url", false); err == nil {
		t.Error("expected parse error")
	}
}

type staticListings struct {
	rows []domain.Listing
}

func (s staticListings) List(context.Context, listingsrepo.Query) []domain.Listing { return s.rows }

func (s staticListings) GetByID(_ context.Context, id uuid.UUID) (domain.Listing, error) {
	for _, l := range s.rows {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, apperr.NotFound("listing not found")
}

func (s staticListings) Update(_ context.Context, id uuid.UUID, u domain.ListingUpdate) (domain.Listing, error) {
	l, err := s.GetByID(context.Background(), id)
	if err != nil {
		return domain.Listing{}, err
	}
	return u.Apply(l), nil
}

type copyWriter struct{}

func (copyWriter) Enrich(_ context.Context, in content.Input) (content.Result, error) {
	return content.Result{
		Description:     in.Title + " sleeps a crowd.",
		Features:        []string{"Hot tub"},
		Content:         "Copy for " + in.Title,
		MetaDescription: in.Title,
	}, nil
}

type cancelAfterFirst struct {
	cancel context.CancelFunc
}

func (c cancelAfterFirst) Record(_ context.Context, r service.Report) {
	if r.Progress.Current == 1 {
		c.cancel()
	}
}

func TestProgressCancelledBatchIsStoredAsCancelled(t *testing.T) {
	store, _ := newTestStore(t)
	rows := []domain.Listing{
		{ID: uuid.New(), Title: "One", IsPublished: true},
		{ID: uuid.New(), Title: "Two", IsPublished: true},
		{ID: uuid.New(), Title: "Three", IsPublished: true},
	}
	svc := service.New(staticListings{rows: rows}, nil, copyWriter{}, nil, nil, service.Costs{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	report, err := svc.Run(ctx, service.Options{BatchID: "cancelled-batch"}, service.Sinks(store, cancelAfterFirst{cancel: cancel}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != service.StatusCancelled {
		t.Fatalf("returned status = %q", report.Status)
	}

	got, err := store.Get(context.Background(), "cancelled-batch")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != service.StatusCancelled || !got.Cancelled || got.FinishedAt == nil {
		t.Errorf("stored status = %q cancelled = %v finished = %v", got.Status, got.Cancelled, got.FinishedAt)
	}
	if got.Progress.Current != 1 || got.Progress.Total != 3 {
		t.Errorf("stored progress = %+v", got.Progress)
	}
}
