package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"venue_enrichment_backend/platform/logger"
)

// Batch states stored with progress snapshots.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Outcome is the result of enriching one listing.
type Outcome struct {
	ListingID uuid.UUID `json:"listingId"`
	Title     string    `json:"title"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`

	AddressVerified  bool `json:"addressVerified"`
	Degraded         bool `json:"degraded"`
	BookingLinks     bool `json:"bookingLinks"`
	ContentGenerated bool `json:"contentGenerated"`
	PhotosAdded      int  `json:"photosAdded"`
	Complete         bool `json:"complete"`
}

// Progress counts processed records.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

func (p *Progress) add(o Outcome) {
	p.Current++
	if o.Success {
		p.Succeeded++
	} else {
		p.Failed++
	}
	if p.Total > 0 {
		p.Percentage = p.Current * 100 / p.Total
	}
}

// Report is a snapshot of a batch run.
type Report struct {
	BatchID    string     `json:"batchId"`
	Status     string     `json:"status"`
	Cancelled  bool       `json:"cancelled"`
	Progress   Progress   `json:"progress"`
	Outcomes   []Outcome  `json:"outcomes"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Sink receives report snapshots: once when the batch starts, after every
// record, and once when it ends.
type Sink interface {
	Record(ctx context.Context, r Report)
}

// LogSink writes progress to the structured log.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) LogSink {
	return LogSink{log: log}
}

func (s LogSink) Record(ctx context.Context, r Report) {
	log := s.log.WithContext(ctx)
	if n := len(r.Outcomes); n > 0 && r.Status == StatusRunning {
		last := r.Outcomes[n-1]
		if last.Success {
			log.Info("listing enriched", "listing_id", last.ListingID.String(), "title", last.Title)
		} else {
			log.Warn("listing enrichment failed", "listing_id", last.ListingID.String(), "title", last.Title, "error", last.Message)
		}
	}
	p := r.Progress
	log.BatchProgress(p.Current, p.Total, p.Succeeded, p.Failed)
}

type multiSink []Sink

func (m multiSink) Record(ctx context.Context, r Report) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, r)
		}
	}
}

// Sinks fans snapshots out to every non-nil sink.
func Sinks(sinks ...Sink) Sink {
	return multiSink(sinks)
}
