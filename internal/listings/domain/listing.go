// Package domain holds the listing record and the rules for merging enrichment
// results into it. It has no infrastructure dependencies.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Listing is a venue record as stored in the listings table.
// Nullable text columns decode to "".
type Listing struct {
	ID    uuid.UUID `json:"id"`
	Slug  string    `json:"slug"`
	Title string    `json:"title"`

	RawAddress      string   `json:"raw_address"`
	Address         string   `json:"address"`
	VerifiedAddress string   `json:"verified_address"`
	Postcode        string   `json:"postcode"`
	Region          string   `json:"region"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	GoogleMapsURL   string   `json:"google_maps_url"`

	WebsiteURL      string `json:"website_url"`
	AirbnbURL       string `json:"airbnb_url"`
	BookingComURL   string `json:"booking_com_url"`
	VrboURL         string `json:"vrbo_url"`
	OtherBookingURL string `json:"other_booking_url"`

	ImageURL  string `json:"image_url"`
	Photo1URL string `json:"photo_1_url"`
	Photo2URL string `json:"photo_2_url"`
	Photo3URL string `json:"photo_3_url"`

	Description     string   `json:"description"`
	Content         string   `json:"content"`
	Features        []string `json:"features"`
	Sleeps          string   `json:"sleeps"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`

	AddressVerified    bool `json:"address_verified"`
	BookingLinksFound  bool `json:"booking_links_found"`
	PhotosExtracted    bool `json:"photos_extracted"`
	ContentGenerated   bool `json:"content_generated"`
	EnrichmentComplete bool `json:"enrichment_complete"`

	IsPublished bool `json:"is_published"`
	IsFeatured  bool `json:"is_featured"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize applies safe defaults for columns a store may return as NULL.
func (l *Listing) Normalize() {
	if l.Features == nil {
		l.Features = []string{}
	}
}

// VerificationAddress is the address handed to verification: the imported raw
// address when present, otherwise the display address.
func (l Listing) VerificationAddress() string {
	if raw := strings.TrimSpace(l.RawAddress); raw != "" {
		return raw
	}
	return strings.TrimSpace(l.Address)
}

// OtherBookingURLs decodes other_booking_url, which holds a JSON array or,
// for legacy rows, a single bare URL.
func (l Listing) OtherBookingURLs() []string {
	return DecodeURLList(l.OtherBookingURL)
}

// HasBookingLinks reports whether any booking surface is known.
func (l Listing) HasBookingLinks() bool {
	return l.WebsiteURL != "" || l.AirbnbURL != "" || l.BookingComURL != "" ||
		l.VrboURL != "" || len(l.OtherBookingURLs()) > 0
}

// Photos returns the four photo slots in display order.
func (l Listing) Photos() [4]string {
	return [4]string{l.ImageURL, l.Photo1URL, l.Photo2URL, l.Photo3URL}
}

// DecodeURLList parses a JSON array of URLs, falling back to a single URL.
func DecodeURLList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return []string{raw}
	}
	out := urls[:0]
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// EncodeURLList renders urls as the JSON array stored in other_booking_url.
func EncodeURLList(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	raw, _ := json.Marshal(urls)
	return string(raw)
}

// NewListing is the payload for inserting a record that will later be enriched.
type NewListing struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=200"`
	RawAddress  string `json:"raw_address" validate:"omitempty,max=500"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	Postcode    string `json:"postcode" validate:"omitempty,max=16"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	WebsiteURL  string `json:"website_url" validate:"omitempty,url"`
	IsPublished bool   `json:"is_published"`
}

// Columns maps the insert payload to column values, deriving slug and region.
func (n NewListing) Columns() map[string]any {
	slug := strings.TrimSpace(n.Slug)
	if slug == "" {
		slug = Slugify(n.Title)
	}
	cols := map[string]any{
		"title":        strings.TrimSpace(n.Title),
		"slug":         slug,
		"is_published": n.IsPublished,
		"features":     []string{},
	}
	setIfPresent(cols, "raw_address", n.RawAddress)
	setIfPresent(cols, "address", n.Address)
	setIfPresent(cols, "location", n.Location)
	setIfPresent(cols, "website_url", n.WebsiteURL)
	if postcode := NormalizePostcode(n.Postcode); postcode != "" {
		cols["postcode"] = postcode
		if region := RegionForPostcode(postcode); region != "" {
			cols["region"] = region
		}
	}
	return cols
}

func setIfPresent(cols map[string]any, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		cols[key] = v
	}
}
