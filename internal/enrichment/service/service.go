// Package service runs the enrichment pipeline over listing records:
// address verification, content generation and photo ingestion, merged
// into one write per record.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/content"
	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/verification"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
)

const (
	stageVerification = "verification"
	stageContent      = "content"
	stagePhotos       = "photos"
	stagePersist      = "persist"
)

// Listings is the record store the orchestrator reads and writes.
type Listings interface {
	List(ctx context.Context, q repository.Query) []domain.Listing
	GetByID(ctx context.Context, id uuid.UUID) (domain.Listing, error)
	Update(ctx context.Context, id uuid.UUID, u domain.ListingUpdate) (domain.Listing, error)
}

// Verifier checks an address. It never fails.
type Verifier interface {
	Verify(ctx context.Context, rawAddress, regionHint string) verification.Result
}

// Writer generates listing copy.
type Writer interface {
	Enrich(ctx context.Context, in content.Input) (content.Result, error)
}

// Photos finds and re-hosts listing images.
type Photos interface {
	Discover(ctx context.Context, pageURL string) (string, bool, error)
	Ingest(ctx context.Context, listingID uuid.UUID, imageURL string) (string, error)
}

// Costs are the pacer tokens one record spends.
type Costs struct {
	Text  int
	Photo int
}

// Options select the records of a batch.
type Options struct {
	BatchID    string      `json:"batchId"`
	ListingIDs []uuid.UUID `json:"listingIds,omitempty"`
	WithPhotos bool        `json:"withPhotos"`
	Limit      int         `json:"limit,omitempty"`
}

// Service orchestrates enrichment.
type Service struct {
	listings Listings
	verifier Verifier
	writer   Writer
	photos   Photos
	pacer    *Pacer
	costs    Costs
	log      *logger.Logger
	now      func() time.Time
}

// New creates the orchestrator. photos may be nil when no object store is
// configured; the photo stage is then skipped.
func New(listings Listings, verifier Verifier, writer Writer, photos Photos, pacer *Pacer, costs Costs, log *logger.Logger) *Service {
	if costs.Text < 1 {
		costs.Text = 1
	}
	if costs.Photo < costs.Text {
		costs.Photo = costs.Text
	}
	return &Service{
		listings: listings,
		verifier: verifier,
		writer:   writer,
		photos:   photos,
		pacer:    pacer,
		costs:    costs,
		log:      log,
		now:      time.Now,
	}
}

// Eligible loads the records a batch would process: published and not yet
// complete, newest first.
func (s *Service) Eligible(ctx context.Context, opts Options) []domain.Listing {
	q := repository.NewQuery().
		Eq("is_published", true).
		Eq("enrichment_complete", false).
		OrderBy("created_at", true)
	if len(opts.ListingIDs) > 0 {
		ids := make([]any, 0, len(opts.ListingIDs))
		for _, id := range opts.ListingIDs {
			ids = append(ids, id)
		}
		q = q.In("id", ids...)
	}
	if opts.Limit > 0 {
		q = q.WithLimit(opts.Limit)
	}

	rows := s.listings.List(ctx, q)
	out := rows[:0]
	for _, l := range rows {
		if l.EnrichmentComplete || !l.IsPublished {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Run enriches every eligible record in turn. A record's failure is captured
// in its Outcome and never stops the batch. Cancellation is honoured between
// records and yields the partial report with Cancelled set.
func (s *Service) Run(ctx context.Context, opts Options, sink Sink) (Report, error) {
	if opts.Limit < 0 {
		return Report{}, apperr.Validation("limit must not be negative")
	}
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}
	if sink == nil {
		sink = Sinks()
	}
	ctx = logger.ContextWithBatchID(ctx, opts.BatchID)
	log := s.log.WithContext(ctx)

	records := s.Eligible(ctx, opts)
	report := Report{
		BatchID:   opts.BatchID,
		Status:    StatusRunning,
		Progress:  Progress{Total: len(records)},
		Outcomes:  make([]Outcome, 0, len(records)),
		StartedAt: s.now().UTC(),
	}
	log.Info("enrichment batch started", "records", len(records), "with_photos", opts.WithPhotos)
	sink.Record(ctx, report)

	for _, l := range records {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if err := s.pacer.Wait(ctx, s.cost(l, opts.WithPhotos)); err != nil {
			report.Cancelled = true
			break
		}

		outcome, _ := s.enrich(ctx, l, opts.WithPhotos)
		report.Outcomes = append(report.Outcomes, outcome)
		report.Progress.add(outcome)
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		sink.Record(ctx, report)
	}

	finished := s.now().UTC()
	report.FinishedAt = &finished
	report.Status = StatusCompleted
	if report.Cancelled {
		report.Status = StatusCancelled
		log.Warn("enrichment batch cancelled", "processed", report.Progress.Current, "total", report.Progress.Total)
	}
	// The final snapshot must land even when ctx is already cancelled.
	sink.Record(context.WithoutCancel(ctx), report)

	log.Info("enrichment batch finished",
		"succeeded", report.Progress.Succeeded,
		"failed", report.Progress.Failed,
		"cancelled", report.Cancelled,
	)
	return report, nil
}

// EnrichOne runs the pipeline for a single record regardless of its
// completion flag.
func (s *Service) EnrichOne(ctx context.Context, id uuid.UUID, withPhotos bool) (Outcome, domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, domain.Listing{}, err
	}
	if err := s.pacer.Wait(ctx, s.cost(l, withPhotos)); err != nil {
		return Outcome{}, domain.Listing{}, err
	}
	outcome, updated := s.enrich(ctx, l, withPhotos)
	return outcome, updated, nil
}

func (s *Service) cost(l domain.Listing, withPhotos bool) int {
	if s.photoStageApplies(l, withPhotos) {
		return s.costs.Photo
	}
	return s.costs.Text
}

func (s *Service) photoStageApplies(l domain.Listing, withPhotos bool) bool {
	return withPhotos && s.photos != nil && l.ImageURL == ""
}

// enrich runs every stage for l and persists the merged result. It returns
// the outcome and the record as written.
func (s *Service) enrich(ctx context.Context, l domain.Listing, withPhotos bool) (Outcome, domain.Listing) {
	log := s.log.WithContext(ctx)
	id := l.ID.String()
	outcome := Outcome{ListingID: l.ID, Title: l.Title}

	var e domain.Enrichment

	if addr := l.VerificationAddress(); addr != "" {
		res := s.verifier.Verify(ctx, addr, regionHint(l))
		facts := res.Facts()
		e.Verification = &facts
		if res.Degraded {
			log.StageFailed(stageVerification, id, fmt.Errorf("no model produced a usable reply"))
		}
	}

	var contentErr error
	res, err := s.writer.Enrich(ctx, contentInput(l, e.Verification))
	if err != nil {
		contentErr = err
		log.StageFailed(stageContent, id, err)
	} else {
		facts := res.Facts()
		e.Content = &facts
	}

	if s.photoStageApplies(l, withPhotos) {
		website := l.WebsiteURL
		var verified []string
		if v := e.Verification; v != nil {
			if website == "" {
				website = v.WebsiteURL
			}
			verified = v.Photos
		}
		if website != "" {
			e.PhotoURLs = s.collectPhotos(ctx, l, website, verified)
		}
	}

	update := domain.BuildUpdate(l, e)
	updated := l
	if !update.IsEmpty() {
		// Stage results already paid for are kept if the run is cancelled mid-record.
		written, err := s.listings.Update(context.WithoutCancel(ctx), l.ID, update)
		if err != nil {
			log.StageFailed(stagePersist, id, err)
			outcome.Message = fmt.Sprintf("persist: %v", err)
			return outcome, l
		}
		updated = written
	}

	outcome.AddressVerified = update.Marked(domain.FlagAddressVerified)
	outcome.BookingLinks = update.Marked(domain.FlagBookingLinksFound)
	outcome.ContentGenerated = update.Marked(domain.FlagContentGenerated)
	outcome.Complete = update.Marked(domain.FlagEnrichmentComplete)
	outcome.PhotosAdded = countPhotos(update)
	if e.Verification != nil {
		outcome.Degraded = e.Verification.Degraded
	}

	if contentErr != nil {
		outcome.Message = fmt.Sprintf("content: %v", contentErr)
		if ctx.Err() != nil {
			outcome.Message = fmt.Sprintf("cancelled: %v", contentErr)
		}
		return outcome, updated
	}
	outcome.Success = true
	return outcome, updated
}

// collectPhotos re-hosts the site's representative image followed by the
// photos verification found, filling at most the empty slots. The first
// error ends the stage but keeps what was already stored.
func (s *Service) collectPhotos(ctx context.Context, l domain.Listing, website string, verified []string) []string {
	log := s.log.WithContext(ctx)
	id := l.ID.String()

	free := 0
	for _, slot := range l.Photos() {
		if slot == "" {
			free++
		}
	}

	var sources []string
	img, found, err := s.photos.Discover(ctx, website)
	if err != nil {
		log.StageFailed(stagePhotos, id, err)
		return nil
	}
	if found {
		sources = append(sources, img)
	}
	sources = append(sources, verified...)

	seen := make(map[string]struct{}, len(sources))
	var stored []string
	for _, src := range sources {
		if len(stored) >= free {
			break
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}

		publicURL, err := s.photos.Ingest(ctx, l.ID, src)
		if err != nil {
			log.StageFailed(stagePhotos, id, err)
			break
		}
		stored = append(stored, publicURL)
	}
	return stored
}

func contentInput(l domain.Listing, v *domain.VerificationFacts) content.Input {
	in := content.Input{
		Title:    l.Title,
		Location: l.Location,
		Address:  firstNonEmpty(l.VerifiedAddress, l.Address, l.RawAddress),
		Postcode: l.Postcode,
	}
	if v != nil && !v.Degraded {
		in.Address = firstNonEmpty(v.VerifiedAddress, in.Address)
		in.Postcode = firstNonEmpty(domain.NormalizePostcode(v.Postcode), in.Postcode)
		in.Location = firstNonEmpty(in.Location, v.Location)
	}
	if l.Description != "" || len(l.Features) > 0 || l.Content != "" {
		in.Existing = &content.Existing{
			Description: l.Description,
			Features:    l.Features,
			Content:     l.Content,
		}
	}
	return in
}

func regionHint(l domain.Listing) string {
	return firstNonEmpty(l.Location, l.Region)
}

func countPhotos(u domain.ListingUpdate) int {
	n := 0
	for _, p := range []*string{u.ImageURL, u.Photo1URL, u.Photo2URL, u.Photo3URL} {
		if p != nil {
			n++
		}
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
