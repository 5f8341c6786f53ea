// Package service implements the read and registration use cases for listings.
package service

import (
	"context"
	"strings"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/listings/transport"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/validator"
)

const defaultListLimit = 50

// Store is the subset of the repository used by the service.
type Store interface {
	List(ctx context.Context, q repository.Query) []domain.Listing
	GetBySlug(ctx context.Context, slug string) (domain.Listing, error)
	Insert(ctx context.Context, n domain.NewListing) (domain.Listing, error)
}

// Service handles listing queries and registration.
type Service struct {
	store Store
	val   *validator.Validator
}

// New creates a listing service.
func New(store Store, val *validator.Validator) *Service {
	return &Service{store: store, val: val}
}

// List returns listings, newest first. Published defaults to true.
func (s *Service) List(ctx context.Context, req transport.ListListingsRequest) transport.ListListingsResponse {
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := repository.NewQuery().
		Eq("is_published", published).
		OrderBy("created_at", true).
		WithLimit(limit)
	if region := strings.TrimSpace(req.Region); region != "" {
		q = q.Eq("region", region)
	}

	items := s.store.List(ctx, q)
	return transport.ListListingsResponse{Items: items, Count: len(items)}
}

// GetBySlug returns a single listing.
func (s *Service) GetBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Listing{}, apperr.BadRequest("slug is required")
	}
	return s.store.GetBySlug(ctx, slug)
}

// Create registers a new listing.
func (s *Service) Create(ctx context.Context, req transport.CreateListingRequest) (domain.Listing, error) {
	n := req.ToDomain()
	if err := s.val.Struct(n); err != nil {
		return domain.Listing{}, apperr.Validation("invalid listing").WithDetails(validator.Fields(err))
	}
	if domain.Slugify(n.Title) == "" && strings.TrimSpace(n.Slug) == "" {
		return domain.Listing{}, apperr.Validation("title must contain letters or digits")
	}
	return s.store.Insert(ctx, n)
}
