package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/content"
	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/verification"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
)

type fakeListings struct {
	mu        sync.Mutex
	order     []uuid.UUID
	records   map[uuid.UUID]domain.Listing
	updates   map[uuid.UUID][]domain.ListingUpdate
	lastQuery repository.Query
	updateErr error
}

func newFakeListings(rows ...domain.Listing) *fakeListings {
	f := &fakeListings{records: map[uuid.UUID]domain.Listing{}, updates: map[uuid.UUID][]domain.ListingUpdate{}}
	for _, l := range rows {
		f.order = append(f.order, l.ID)
		f.records[l.ID] = l
	}
	return f
}

func (f *fakeListings) List(_ context.Context, q repository.Query) []domain.Listing {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	var out []domain.Listing
	for _, id := range f.order {
		l := f.records[id]
		if l.IsPublished && !l.EnrichmentComplete {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeListings) GetByID(_ context.Context, id uuid.UUID) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.records[id]
	if !ok {
		return domain.Listing{}, apperr.NotFound("listing not found")
	}
	return l, nil
}

func (f *fakeListings) Update(_ context.Context, id uuid.UUID, u domain.ListingUpdate) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Listing{}, f.updateErr
	}
	f.updates[id] = append(f.updates[id], u)
	l := u.Apply(f.records[id])
	f.records[id] = l
	return l, nil
}

type fakeVerifier struct {
	results map[string]verification.Result
	calls   []string
}

func (f *fakeVerifier) Verify(_ context.Context, rawAddress, _ string) verification.Result {
	f.calls = append(f.calls, rawAddress)
	if res, ok := f.results[rawAddress]; ok {
		return res
	}
	return verification.Result{Degraded: true, VerifiedAddress: rawAddress}
}

type fakeWriter struct {
	fail  map[string]error
	calls []content.Input
}

func (f *fakeWriter) Enrich(_ context.Context, in content.Input) (content.Result, error) {
	f.calls = append(f.calls, in)
	if err := f.fail[in.Title]; err != nil {
		return content.Result{}, err
	}
	return content.Result{
		Model:           "gemini-2.5-flash",
		Description:     in.Title + " is a converted barn for big groups.",
		Features:        []string{"Hot tub", "Games room", "Sleeps 14"},
		Content:         "Long copy about " + in.Title,
		MetaDescription: "Stay at " + in.Title,
	}, nil
}

type fakePhotos struct {
	page        string
	discovered  string
	ingested    []string
	ingestErrAt int
}

func (f *fakePhotos) Discover(_ context.Context, pageURL string) (string, bool, error) {
	f.page = pageURL
	return f.discovered, f.discovered != "", nil
}

func (f *fakePhotos) Ingest(_ context.Context, listingID uuid.UUID, imageURL string) (string, error) {
	if f.ingestErrAt > 0 && len(f.ingested)+1 == f.ingestErrAt {
		return "", errors.New("download failed")
	}
	f.ingested = append(f.ingested, imageURL)
	return "https://media.example.com/listings/" + listingID.String() + "/" + strings.TrimPrefix(imageURL, "https://"), nil
}

type recordingSink struct {
	snapshots []Report
	onRecord  func(Report)
}

func (s *recordingSink) Record(_ context.Context, r Report) {
	s.snapshots = append(s.snapshots, r)
	if s.onRecord != nil {
		s.onRecord(r)
	}
}

func listing(title, address string) domain.Listing {
	return domain.Listing{
		ID:          uuid.New(),
		Slug:        domain.Slugify(title),
		Title:       title,
		RawAddress:  address,
		Location:    "Cotswolds",
		Features:    []string{},
		IsPublished: true,
	}
}

func publicResult(address string) verification.Result {
	return verification.Result{
		IsPublicProperty: true,
		Model:            "gemini-2.5-flash",
		VerifiedAddress:  address + ", England",
		Postcode:         "gl54 3aa",
		Sleeps:           "14",
		WebsiteURL:       "https://www.churchfarmbarn.co.uk",
		Photos:           []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}
}

func newTestService(l Listings, v Verifier, w Writer, p Photos) *Service {
	return New(l, v, w, p, NewPacer(60000, 4), Costs{Text: 1, Photo: 4}, logger.Discard())
}

func TestRunIsolatesRecordFailures(t *testing.T) {
	a := listing("Church Farm Barn", "Church Farm, Guiting Power")
	b := listing("Broken Barn", "Mill Lane, Bourton")
	c := listing("Lake View Lodge", "Windermere Road")
	store := newFakeListings(a, b, c)
	verifier := &fakeVerifier{results: map[string]verification.Result{
		a.RawAddress: publicResult(a.RawAddress),
		b.RawAddress: publicResult(b.RawAddress),
		c.RawAddress: publicResult(c.RawAddress),
	}}
	writer := &fakeWriter{fail: map[string]error{b.Title: errors.New("model quota exhausted")}}
	sink := &recordingSink{}

	svc := newTestService(store, verifier, writer, nil)
	report, err := svc.Run(context.Background(), Options{}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(report.Outcomes))
	}
	wantSuccess := []bool{true, false, true}
	for i, o := range report.Outcomes {
		if o.Success != wantSuccess[i] {
			t.Errorf("outcome %d success = %v, want %v (%s)", i, o.Success, wantSuccess[i], o.Message)
		}
	}
	if msg := report.Outcomes[1].Message; !strings.Contains(msg, "model quota exhausted") {
		t.Errorf("failure message = %q", msg)
	}

	want := Progress{Current: 3, Total: 3, Percentage: 100, Succeeded: 2, Failed: 1}
	if report.Progress != want {
		t.Errorf("progress = %+v, want %+v", report.Progress, want)
	}
	if report.Status != StatusCompleted || report.Cancelled || report.FinishedAt == nil {
		t.Errorf("status = %q cancelled = %v finished = %v", report.Status, report.Cancelled, report.FinishedAt)
	}

	// start + one per record + finish
	if len(sink.snapshots) != 5 {
		t.Errorf("snapshots = %d, want 5", len(sink.snapshots))
	}
	if first := sink.snapshots[0]; first.Progress.Total != 3 || first.Progress.Current != 0 {
		t.Errorf("first snapshot progress = %+v", first.Progress)
	}

	// Verification data for the failed record is still stored.
	failed := store.records[b.ID]
	if !failed.AddressVerified || failed.VerifiedAddress == "" || failed.Postcode != "GL54 3AA" {
		t.Errorf("verification not persisted for failed record: %+v", failed)
	}
	if failed.ContentGenerated || failed.EnrichmentComplete {
		t.Error("failed record must not be marked content generated or complete")
	}
	if done := store.records[a.ID]; !done.EnrichmentComplete || !done.ContentGenerated || done.Description == "" {
		t.Errorf("record a not completed: %+v", done)
	}
}

func TestRunQueryAndRerunIdempotence(t *testing.T) {
	a := listing("Church Farm Barn", "Church Farm, Guiting Power")
	b := listing("Broken Barn", "Mill Lane, Bourton")
	store := newFakeListings(a, b)
	verifier := &fakeVerifier{results: map[string]verification.Result{a.RawAddress: publicResult(a.RawAddress)}}
	writer := &fakeWriter{fail: map[string]error{b.Title: errors.New("boom")}}
	svc := newTestService(store, verifier, writer, nil)

	if _, err := svc.Run(context.Background(), Options{Limit: 10}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	q := store.lastQuery
	params, err := q.RESTParams()
	if err != nil {
		t.Fatalf("RESTParams: %v", err)
	}
	if params.Get("is_published") != "eq.true" || params.Get("enrichment_complete") != "eq.false" {
		t.Errorf("eligibility filters = %v", params)
	}
	if params.Get("order") != "created_at.desc" || params.Get("limit") != "10" {
		t.Errorf("order/limit = %v", params)
	}

	// Second run only revisits the record that did not complete.
	delete(writer.fail, b.Title)
	writer.calls = nil
	report, err := svc.Run(context.Background(), Options{}, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].ListingID != b.ID || !report.Outcomes[0].Success {
		t.Fatalf("second run outcomes = %+v", report.Outcomes)
	}

	// Third run has nothing left.
	report, _ = svc.Run(context.Background(), Options{}, nil)
	if report.Progress.Total != 0 || len(report.Outcomes) != 0 {
		t.Errorf("third run should be empty, got %+v", report.Progress)
	}
}

func TestFlagsAreNeverCleared(t *testing.T) {
	l := listing("Church Farm Barn", "Church Farm, Guiting Power")
	l.AddressVerified = true
	l.BookingLinksFound = true
	l.WebsiteURL = "https://www.churchfarmbarn.co.uk"
	store := newFakeListings(l)

	// Verification degrades on this run.
	svc := newTestService(store, &fakeVerifier{}, &fakeWriter{}, nil)
	report, _ := svc.Run(context.Background(), Options{}, nil)

	if len(report.Outcomes) != 1 || !report.Outcomes[0].Degraded {
		t.Fatalf("outcomes = %+v", report.Outcomes)
	}
	for _, u := range store.updates[l.ID] {
		for col, v := range u.Columns() {
			if b, ok := v.(bool); ok && !b {
				t.Errorf("update clears %s", col)
			}
		}
	}
	got := store.records[l.ID]
	if !got.AddressVerified || !got.BookingLinksFound {
		t.Error("existing flags lost")
	}
	if got.EnrichmentComplete {
		t.Error("degraded verification must not complete the record")
	}
	if !got.ContentGenerated {
		t.Error("content flag should be set")
	}
}

func TestRunCancellationBetweenRecords(t *testing.T) {
	rows := []domain.Listing{
		listing("One", "1 High Street"),
		listing("Two", "2 High Street"),
		listing("Three", "3 High Street"),
	}
	store := newFakeListings(rows...)
	svc := newTestService(store, &fakeVerifier{}, &fakeWriter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{onRecord: func(r Report) {
		if r.Progress.Current == 1 {
			cancel()
		}
	}}

	report, err := svc.Run(ctx, Options{}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || report.Status != StatusCancelled {
		t.Errorf("cancelled = %v status = %q", report.Cancelled, report.Status)
	}
	if len(report.Outcomes) != 1 || report.Progress.Current != 1 || report.Progress.Total != 3 {
		t.Errorf("partial report = %+v", report.Progress)
	}
}

func TestPhotoStageFillsEmptySlotsInOrder(t *testing.T) {
	l := listing("Church Farm Barn", "Church Farm, Guiting Power")
	l.WebsiteURL = "https://www.churchfarmbarn.co.uk"
	store := newFakeListings(l)
	verifier := &fakeVerifier{results: map[string]verification.Result{l.RawAddress: publicResult(l.RawAddress)}}
	photos := &fakePhotos{discovered: "https://www.churchfarmbarn.co.uk/og.jpg"}

	svc := newTestService(store, verifier, &fakeWriter{}, photos)
	report, _ := svc.Run(context.Background(), Options{WithPhotos: true}, nil)

	if photos.page != l.WebsiteURL {
		t.Errorf("discovered on %q", photos.page)
	}
	wantIngested := []string{
		"https://www.churchfarmbarn.co.uk/og.jpg",
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}
	if strings.Join(photos.ingested, ",") != strings.Join(wantIngested, ",") {
		t.Errorf("ingested = %v", photos.ingested)
	}

	got := store.records[l.ID]
	if !strings.HasSuffix(got.ImageURL, "/www.churchfarmbarn.co.uk/og.jpg") {
		t.Errorf("image_url = %q", got.ImageURL)
	}
	if !strings.HasSuffix(got.Photo1URL, "/a.jpg") || !strings.HasSuffix(got.Photo2URL, "/b.jpg") || got.Photo3URL != "" {
		t.Errorf("photo slots = %q %q %q", got.Photo1URL, got.Photo2URL, got.Photo3URL)
	}
	if !got.PhotosExtracted || report.Outcomes[0].PhotosAdded != 3 {
		t.Errorf("photos flag = %v added = %d", got.PhotosExtracted, report.Outcomes[0].PhotosAdded)
	}
}

func TestPhotoStageSkipsWhenImagePresentOrNoWebsite(t *testing.T) {
	withImage := listing("Has Image", "1 High Street")
	withImage.ImageURL = "https://media.example.com/existing.jpg"
	withImage.WebsiteURL = "https://example.com"
	noSite := listing("No Site", "2 High Street")

	store := newFakeListings(withImage, noSite)
	photos := &fakePhotos{discovered: "https://example.com/og.jpg"}
	svc := newTestService(store, &fakeVerifier{}, &fakeWriter{}, photos)
	if _, err := svc.Run(context.Background(), Options{WithPhotos: true}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if photos.page != "" || len(photos.ingested) != 0 {
		t.Errorf("photo stage ran: page=%q ingested=%v", photos.page, photos.ingested)
	}
}

func TestPhotoErrorOnlyAbortsPhotoStage(t *testing.T) {
	l := listing("Church Farm Barn", "Church Farm, Guiting Power")
	l.WebsiteURL = "https://www.churchfarmbarn.co.uk"
	store := newFakeListings(l)
	verifier := &fakeVerifier{results: map[string]verification.Result{l.RawAddress: publicResult(l.RawAddress)}}
	photos := &fakePhotos{discovered: "https://www.churchfarmbarn.co.uk/og.jpg", ingestErrAt: 2}

	svc := newTestService(store, verifier, &fakeWriter{}, photos)
	report, _ := svc.Run(context.Background(), Options{WithPhotos: true}, nil)

	o := report.Outcomes[0]
	if !o.Success || o.PhotosAdded != 1 {
		t.Errorf("outcome = %+v", o)
	}
	if got := store.records[l.ID]; got.ImageURL == "" || got.Photo1URL != "" {
		t.Errorf("slots = %q %q", got.ImageURL, got.Photo1URL)
	}
}

func TestPersistFailureFailsRecord(t *testing.T) {
	l := listing("Church Farm Barn", "Church Farm, Guiting Power")
	store := newFakeListings(l)
	store.updateErr = errors.New("connection refused")

	svc := newTestService(store, &fakeVerifier{}, &fakeWriter{}, nil)
	report, _ := svc.Run(context.Background(), Options{}, nil)

	o := report.Outcomes[0]
	if o.Success || !strings.HasPrefix(o.Message, "persist:") {
		t.Errorf("outcome = %+v", o)
	}
	if report.Progress.Failed != 1 {
		t.Errorf("progress = %+v", report.Progress)
	}
}

func TestContentInputPrefersVerifiedFacts(t *testing.T) {
	l := listing("Church Farm Barn", "Church Farm, Guiting Power")
	l.Description = "Old description"
	store := newFakeListings(l)
	verifier := &fakeVerifier{results: map[string]verification.Result{l.RawAddress: publicResult(l.RawAddress)}}
	writer := &fakeWriter{}

	svc := newTestService(store, verifier, writer, nil)
	if _, _, err := svc.EnrichOne(context.Background(), l.ID, false); err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}

	in := writer.calls[0]
	if in.Address != "Church Farm, Guiting Power, England" || in.Postcode != "GL54 3AA" {
		t.Errorf("input = %+v", in)
	}
	if in.Existing == nil || in.Existing.Description != "Old description" {
		t.Errorf("existing copy not passed: %+v", in.Existing)
	}
}

func TestEnrichOneSkipsVerificationWithoutAddress(t *testing.T) {
	l := listing("Church Farm Barn", "")
	store := newFakeListings(l)
	verifier := &fakeVerifier{}

	svc := newTestService(store, verifier, &fakeWriter{}, nil)
	o, updated, err := svc.EnrichOne(context.Background(), l.ID, false)
	if err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}
	if len(verifier.calls) != 0 {
		t.Errorf("verifier called with %v", verifier.calls)
	}
	if !o.Success || !o.Complete || !updated.EnrichmentComplete {
		t.Errorf("outcome = %+v", o)
	}
}

func TestEnrichOneNotFound(t *testing.T) {
	svc := newTestService(newFakeListings(), &fakeVerifier{}, &fakeWriter{}, nil)
	_, _, err := svc.EnrichOne(context.Background(), uuid.New(), false)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRunRejectsNegativeLimit(t *testing.T) {
	svc := newTestService(newFakeListings(), &fakeVerifier{}, &fakeWriter{}, nil)
	if _, err := svc.Run(context.Background(), Options{Limit: -1}, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
}

type cancellingWriter struct {
	cancel context.CancelFunc
}

func (w *cancellingWriter) Enrich(ctx context.Context, _ content.Input) (content.Result, error) {
	w.cancel()
	return content.Result{}, ctx.Err()
}

// liveContextListings rejects writes made with a cancelled context, like a real store would.
type liveContextListings struct {
	*fakeListings
}

func (l liveContextListings) Update(ctx context.Context, id uuid.UUID, u domain.ListingUpdate) (domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return domain.Listing{}, err
	}
	return l.fakeListings.Update(ctx, id, u)
}

func TestRunCancelledMidRecordKeepsVerification(t *testing.T) {
	a := listing("Church Farm Barn", "Church Farm, Guiting Power")
	b := listing("Lake View Lodge", "Windermere Road")
	store := newFakeListings(a, b)
	verifier := &fakeVerifier{results: map[string]verification.Result{
		a.RawAddress: publicResult(a.RawAddress),
		b.RawAddress: publicResult(b.RawAddress),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{}
	svc := newTestService(liveContextListings{store}, verifier, &cancellingWriter{cancel: cancel}, nil)

	report, err := svc.Run(ctx, Options{}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || report.Status != StatusCancelled {
		t.Fatalf("cancelled = %v status = %q", report.Cancelled, report.Status)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("outcomes = %+v", report.Outcomes)
	}
	if msg := report.Outcomes[0].Message; !strings.HasPrefix(msg, "cancelled: ") {
		t.Errorf("message = %q", msg)
	}
	if got := store.records[a.ID]; !got.AddressVerified || got.Postcode != "GL54 3AA" {
		t.Errorf("verification not persisted: %+v", got)
	}
	if len(store.updates[b.ID]) != 0 {
		t.Error("second record must not be processed")
	}
	last := sink.snapshots[len(sink.snapshots)-1]
	if last.Status != StatusCancelled || last.FinishedAt == nil {
		t.Errorf("final snapshot = %+v", last)
	}
}
