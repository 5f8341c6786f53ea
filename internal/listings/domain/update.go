package domain

import "sort"

// Flag names an enrichment stage completion column.
type Flag string

const (
	FlagAddressVerified    Flag = "address_verified"
	FlagBookingLinksFound  Flag = "booking_links_found"
	FlagPhotosExtracted    Flag = "photos_extracted"
	FlagContentGenerated   Flag = "content_generated"
	FlagEnrichmentComplete Flag = "enrichment_complete"
)

// ListingUpdate is a partial write produced by the pipeline. Nil fields are left
// untouched. Flags can only be marked, never cleared, so the pipeline cannot
// turn a true flag false.
type ListingUpdate struct {
	VerifiedAddress *string
	Postcode        *string
	Region          *string
	Location        *string
	Latitude        *float64
	Longitude       *float64
	GoogleMapsURL   *string

	WebsiteURL       *string
	AirbnbURL        *string
	BookingComURL    *string
	VrboURL          *string
	OtherBookingURLs []string

	ImageURL  *string
	Photo1URL *string
	Photo2URL *string
	Photo3URL *string

	Description     *string
	Content         *string
	Features        []string
	Sleeps          *string
	MetaDescription *string

	flags map[Flag]struct{}
}

// Mark sets flag to true in this update.
func (u *ListingUpdate) Mark(flag Flag) {
	if u.flags == nil {
		u.flags = make(map[Flag]struct{})
	}
	u.flags[flag] = struct{}{}
}

// Marked reports whether flag is set by this update.
func (u ListingUpdate) Marked(flag Flag) bool {
	_, ok := u.flags[flag]
	return ok
}

// Flags returns the marked flags in a stable order.
func (u ListingUpdate) Flags() []Flag {
	out := make([]Flag, 0, len(u.flags))
	for f := range u.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsEmpty reports whether applying the update would change nothing.
func (u ListingUpdate) IsEmpty() bool {
	return len(u.Columns()) == 0
}

// Columns maps the update to column values. Both storage paths write exactly this map.
func (u ListingUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	putString(cols, "verified_address", u.VerifiedAddress)
	putString(cols, "postcode", u.Postcode)
	putString(cols, "region", u.Region)
	putString(cols, "location", u.Location)
	putFloat(cols, "latitude", u.Latitude)
	putFloat(cols, "longitude", u.Longitude)
	putString(cols, "google_maps_url", u.GoogleMapsURL)
	putString(cols, "website_url", u.WebsiteURL)
	putString(cols, "airbnb_url", u.AirbnbURL)
	putString(cols, "booking_com_url", u.BookingComURL)
	putString(cols, "vrbo_url", u.VrboURL)
	if u.OtherBookingURLs != nil {
		cols["other_booking_url"] = EncodeURLList(u.OtherBookingURLs)
	}
	putString(cols, "image_url", u.ImageURL)
	putString(cols, "photo_1_url", u.Photo1URL)
	putString(cols, "photo_2_url", u.Photo2URL)
	putString(cols, "photo_3_url", u.Photo3URL)
	putString(cols, "description", u.Description)
	putString(cols, "content", u.Content)
	if u.Features != nil {
		cols["features"] = u.Features
	}
	putString(cols, "sleeps", u.Sleeps)
	putString(cols, "meta_description", u.MetaDescription)
	for f := range u.flags {
		cols[string(f)] = true
	}
	return cols
}

// Apply returns a copy of l with the update applied. Used to report the
// post-write state without re-reading the record.
func (u ListingUpdate) Apply(l Listing) Listing {
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&l.VerifiedAddress, u.VerifiedAddress)
	apply(&l.Postcode, u.Postcode)
	apply(&l.Region, u.Region)
	apply(&l.Location, u.Location)
	if u.Latitude != nil {
		l.Latitude = u.Latitude
	}
	if u.Longitude != nil {
		l.Longitude = u.Longitude
	}
	apply(&l.GoogleMapsURL, u.GoogleMapsURL)
	apply(&l.WebsiteURL, u.WebsiteURL)
	apply(&l.AirbnbURL, u.AirbnbURL)
	apply(&l.BookingComURL, u.BookingComURL)
	apply(&l.VrboURL, u.VrboURL)
	if u.OtherBookingURLs != nil {
		l.OtherBookingURL = EncodeURLList(u.OtherBookingURLs)
	}
	apply(&l.ImageURL, u.ImageURL)
	apply(&l.Photo1URL, u.Photo1URL)
	apply(&l.Photo2URL, u.Photo2URL)
	apply(&l.Photo3URL, u.Photo3URL)
	apply(&l.Description, u.Description)
	apply(&l.Content, u.Content)
	if u.Features != nil {
		l.Features = append([]string(nil), u.Features...)
	}
	apply(&l.Sleeps, u.Sleeps)
	apply(&l.MetaDescription, u.MetaDescription)
	for f := range u.flags {
		switch f {
		case FlagAddressVerified:
			l.AddressVerified = true
		case FlagBookingLinksFound:
			l.BookingLinksFound = true
		case FlagPhotosExtracted:
			l.PhotosExtracted = true
		case FlagContentGenerated:
			l.ContentGenerated = true
		case FlagEnrichmentComplete:
			l.EnrichmentComplete = true
		}
	}
	return l
}

func putString(cols map[string]any, key string, value *string) {
	if value != nil {
		cols[key] = *value
	}
}

func putFloat(cols map[string]any, key string, value *float64) {
	if value != nil {
		cols[key] = *value
	}
}
