package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/platform/apperr"
)

// listingRecord is the GORM mapping of the listings table. Columns that the
// cached path may not expose yet are pointers so NULLs survive the scan.
type listingRecord struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Slug  string    `gorm:"column:slug"`
	Title string    `gorm:"column:title"`

	RawAddress      *string  `gorm:"column:raw_address"`
	Address         *string  `gorm:"column:address"`
	VerifiedAddress *string  `gorm:"column:verified_address"`
	Postcode        *string  `gorm:"column:postcode"`
	Region          *string  `gorm:"column:region"`
	Location        *string  `gorm:"column:location"`
	Latitude        *float64 `gorm:"column:latitude"`
	Longitude       *float64 `gorm:"column:longitude"`
	GoogleMapsURL   *string  `gorm:"column:google_maps_url"`

	WebsiteURL      *string `gorm:"column:website_url"`
	AirbnbURL       *string `gorm:"column:airbnb_url"`
	BookingComURL   *string `gorm:"column:booking_com_url"`
	VrboURL         *string `gorm:"column:vrbo_url"`
	OtherBookingURL *string `gorm:"column:other_booking_url"`

	ImageURL  *string `gorm:"column:image_url"`
	Photo1URL *string `gorm:"column:photo_1_url"`
	Photo2URL *string `gorm:"column:photo_2_url"`
	Photo3URL *string `gorm:"column:photo_3_url"`

	Description     *string        `gorm:"column:description"`
	Content         *string        `gorm:"column:content"`
	Features        pq.StringArray `gorm:"column:features;type:text[]"`
	Sleeps          *string        `gorm:"column:sleeps"`
	MetaTitle       *string        `gorm:"column:meta_title"`
	MetaDescription *string        `gorm:"column:meta_description"`

	AddressVerified    *bool `gorm:"column:address_verified;default:false"`
	BookingLinksFound  *bool `gorm:"column:booking_links_found;default:false"`
	PhotosExtracted    *bool `gorm:"column:photos_extracted;default:false"`
	ContentGenerated   *bool `gorm:"column:content_generated;default:false"`
	EnrichmentComplete *bool `gorm:"column:enrichment_complete;default:false"`
	IsPublished        *bool `gorm:"column:is_published;default:false"`
	IsFeatured         *bool `gorm:"column:is_featured;default:false"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (listingRecord) TableName() string { return tableListings }

// toDomain converts a row, defaulting NULL flags to false and NULL lists to empty.
func (r listingRecord) toDomain() domain.Listing {
	l := domain.Listing{
		ID:                 r.ID,
		Slug:               r.Slug,
		Title:              r.Title,
		RawAddress:         deref(r.RawAddress),
		Address:            deref(r.Address),
		VerifiedAddress:    deref(r.VerifiedAddress),
		Postcode:           deref(r.Postcode),
		Region:             deref(r.Region),
		Location:           deref(r.Location),
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		GoogleMapsURL:      deref(r.GoogleMapsURL),
		WebsiteURL:         deref(r.WebsiteURL),
		AirbnbURL:          deref(r.AirbnbURL),
		BookingComURL:      deref(r.BookingComURL),
		VrboURL:            deref(r.VrboURL),
		OtherBookingURL:    deref(r.OtherBookingURL),
		ImageURL:           deref(r.ImageURL),
		Photo1URL:          deref(r.Photo1URL),
		Photo2URL:          deref(r.Photo2URL),
		Photo3URL:          deref(r.Photo3URL),
		Description:        deref(r.Description),
		Content:            deref(r.Content),
		Features:           []string(r.Features),
		Sleeps:             deref(r.Sleeps),
		MetaTitle:          deref(r.MetaTitle),
		MetaDescription:    deref(r.MetaDescription),
		AddressVerified:    derefBool(r.AddressVerified),
		BookingLinksFound:  derefBool(r.BookingLinksFound),
		PhotosExtracted:    derefBool(r.PhotosExtracted),
		ContentGenerated:   derefBool(r.ContentGenerated),
		EnrichmentComplete: derefBool(r.EnrichmentComplete),
		IsPublished:        derefBool(r.IsPublished),
		IsFeatured:         derefBool(r.IsFeatured),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if l.OtherBookingURL == "" {
		l.OtherBookingURL = "[]"
	}
	l.Normalize()
	return l
}

// DirectStore is the uncached path: GORM over the same Postgres database.
type DirectStore struct {
	db *gorm.DB
}

// OpenDirect wraps an existing database/sql handle (typically the pgx pool
// via stdlib.OpenDBFromPool) in GORM.
func OpenDirect(sqlDB *sql.DB) (*DirectStore, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}
	return &DirectStore{db: db}, nil
}

// NewDirectStore wraps an already configured GORM handle.
func NewDirectStore(db *gorm.DB) *DirectStore {
	return &DirectStore{db: db}
}

func (s *DirectStore) Name() string { return "direct" }

func (s *DirectStore) List(ctx context.Context, q Query) ([]domain.Listing, error) {
	tx, err := q.Apply(s.db.WithContext(ctx).Model(&listingRecord{}))
	if err != nil {
		return nil, err
	}
	var records []listingRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(records))
	for _, r := range records {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *DirectStore) Update(ctx context.Context, id uuid.UUID, cols map[string]any) (domain.Listing, error) {
	res := s.update(ctx, id, cols)
	if res.Error != nil {
		return domain.Listing{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Listing{}, apperr.NotFound("listing not found")
	}
	return s.byID(ctx, id)
}

func (s *DirectStore) Insert(ctx context.Context, cols map[string]any) (domain.Listing, error) {
	rec := recordFromColumns(cols)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := s.create(ctx, &rec).Error; err != nil {
		return domain.Listing{}, err
	}
	return s.byID(ctx, rec.ID)
}

func (s *DirectStore) update(ctx context.Context, id uuid.UUID, cols map[string]any) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&listingRecord{}).
		Where(&listingRecord{ID: id}).
		Updates(gormColumns(cols))
}

func (s *DirectStore) create(ctx context.Context, rec *listingRecord) *gorm.DB {
	return s.db.WithContext(ctx).Create(rec)
}

func (s *DirectStore) byID(ctx context.Context, id uuid.UUID) (domain.Listing, error) {
	var rec listingRecord
	err := s.db.WithContext(ctx).Where(&listingRecord{ID: id}).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Listing{}, apperr.NotFound("listing not found")
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return rec.toDomain(), nil
}

// gormColumns adapts column values for database/sql: text[] goes through pq.
func gormColumns(cols map[string]any) map[string]any {
	out := make(map[string]any, len(cols))
	for k, v := range cols {
		if list, ok := v.([]string); ok {
			out[k] = pq.StringArray(list)
			continue
		}
		out[k] = v
	}
	return out
}

func recordFromColumns(cols map[string]any) listingRecord {
	str := func(key string) *string {
		if v, ok := cols[key].(string); ok {
			return &v
		}
		return nil
	}
	rec := listingRecord{
		RawAddress: str("raw_address"),
		Address:    str("address"),
		Postcode:   str("postcode"),
		Region:     str("region"),
		Location:   str("location"),
		WebsiteURL: str("website_url"),
		Features:   pq.StringArray{},
	}
	if v, ok := cols["title"].(string); ok {
		rec.Title = v
	}
	if v, ok := cols["slug"].(string); ok {
		rec.Slug = v
	}
	if v, ok := cols["is_published"].(bool); ok {
		rec.IsPublished = &v
	}
	if v, ok := cols["features"].([]string); ok {
		rec.Features = pq.StringArray(v)
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
