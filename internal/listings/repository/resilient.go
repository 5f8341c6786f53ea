package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
)

// Store is one data path to the listings table.
type Store interface {
	Name() string
	List(ctx context.Context, q Query) ([]domain.Listing, error)
	Update(ctx context.Context, id uuid.UUID, cols map[string]any) (domain.Listing, error)
	Insert(ctx context.Context, cols map[string]any) (domain.Listing, error)
}

// Repository reads and writes listings through the cached path and retries on
// the direct path when the cached path reports a stale schema. Reads degrade
// to empty results; writes surface their error.
type Repository struct {
	primary   Store
	secondary Store
	log       *logger.Logger
	now       func() time.Time
}

// New builds a repository. primary may be nil, in which case every call goes
// straight to secondary.
func New(primary, secondary Store, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.Discard()
	}
	return &Repository{
		primary:   primary,
		secondary: secondary,
		log:       log,
		now:       time.Now,
	}
}

// List returns listings matching q. Failures are logged and yield an empty slice.
func (r *Repository) List(ctx context.Context, q Query) []domain.Listing {
	if err := q.Validate(); err != nil {
		r.log.WithContext(ctx).Error("invalid listing query", "error", err)
		return []domain.Listing{}
	}
	rows, err := withFallback(ctx, r, "list", func(s Store) ([]domain.Listing, error) {
		return s.List(ctx, q)
	})
	if err != nil {
		r.log.WithContext(ctx).DatabaseError("list_listings", err)
		return []domain.Listing{}
	}
	for i := range rows {
		rows[i].Normalize()
	}
	return rows
}

// GetBySlug returns the listing with slug or a NotFound error.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	return r.first(ctx, NewQuery().Eq("slug", slug))
}

// GetByID returns the listing with id or a NotFound error.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Listing, error) {
	return r.first(ctx, NewQuery().Eq("id", id))
}

func (r *Repository) first(ctx context.Context, q Query) (domain.Listing, error) {
	rows := r.List(ctx, q.WithLimit(1))
	if len(rows) == 0 {
		return domain.Listing{}, apperr.NotFound("listing not found")
	}
	return rows[0], nil
}

// Update writes u to the listing with id and returns the stored record.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u domain.ListingUpdate) (domain.Listing, error) {
	cols := u.Columns()
	if len(cols) == 0 {
		return domain.Listing{}, apperr.Validation("empty listing update")
	}
	cols["updated_at"] = r.now().UTC()
	out, err := withFallback(ctx, r, "update", func(s Store) (domain.Listing, error) {
		return s.Update(ctx, id, cols)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	out.Normalize()
	return out, nil
}

// Insert creates a listing from n.
func (r *Repository) Insert(ctx context.Context, n domain.NewListing) (domain.Listing, error) {
	cols := n.Columns()
	out, err := withFallback(ctx, r, "insert", func(s Store) (domain.Listing, error) {
		return s.Insert(ctx, cols)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	out.Normalize()
	return out, nil
}

// withFallback runs op on the primary store and, only when it reports a stale
// schema cache, once more on the secondary store.
func withFallback[T any](ctx context.Context, r *Repository, op string, fn func(Store) (T, error)) (T, error) {
	if r.primary == nil {
		return fn(r.secondary)
	}
	out, err := fn(r.primary)
	if err == nil || !IsStaleSchemaCache(err) || r.secondary == nil {
		return out, err
	}
	r.log.WithContext(ctx).Warn("schema cache stale, using direct path",
		"op", op,
		"primary", r.primary.Name(),
		"secondary", r.secondary.Name(),
		"error", err,
	)
	return fn(r.secondary)
}
