package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/listings/transport"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/validator"
)

type fakeStore struct {
	lastQuery repository.Query
	inserted  []domain.NewListing
}

func (s *fakeStore) List(_ context.Context, q repository.Query) []domain.Listing {
	s.lastQuery = q
	return []domain.Listing{{Title: "Church Farm Barn"}}
}

func (s *fakeStore) GetBySlug(context.Context, string) (domain.Listing, error) {
	return domain.Listing{}, apperr.NotFound("listing not found")
}

func (s *fakeStore) Insert(_ context.Context, n domain.NewListing) (domain.Listing, error) {
	s.inserted = append(s.inserted, n)
	return domain.Listing{ID: uuid.New(), Title: n.Title}, nil
}

func TestListDefaultsToPublishedNewestFirst(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, validator.New())

	resp := svc.List(context.Background(), transport.ListListingsRequest{Region: " Cotswolds "})
	if resp.Count != 1 {
		t.Fatalf("expected one item, got %d", resp.Count)
	}

	q := store.lastQuery
	if q.Limit != defaultListLimit {
		t.Fatalf("expected default limit, got %d", q.Limit)
	}
	if len(q.Eqs) != 2 || q.Eqs[0].Value != true || q.Eqs[1].Value != "Cotswolds" {
		t.Fatalf("unexpected filters %+v", q.Eqs)
	}
	if len(q.Orders) != 1 || q.Orders[0].Column != "created_at" || !q.Orders[0].Desc {
		t.Fatalf("unexpected ordering %+v", q.Orders)
	}
}

func TestCreateValidatesPayload(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, validator.New())

	_, err := svc.Create(context.Background(), transport.CreateListingRequest{Title: "Barn", WebsiteURL: "not a url"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), transport.CreateListingRequest{Title: "!!!"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unsluggable title, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("invalid payloads must not be inserted")
	}

	got, err := svc.Create(context.Background(), transport.CreateListingRequest{Title: "Church Farm Barn", WebsiteURL: "https://churchfarmbarn.co.uk"})
	if err != nil || got.Title != "Church Farm Barn" {
		t.Fatalf("unexpected result %+v %v", got, err)
	}
}

func TestGetBySlugRequiresSlug(t *testing.T) {
	svc := New(&fakeStore{}, validator.New())
	if _, err := svc.GetBySlug(context.Background(), "  "); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
