package domain

import "strings"

// VerificationFacts is what address verification learned about a venue.
type VerificationFacts struct {
	IsPublic bool
	// Degraded is set when no model produced a usable answer and the facts are
	// the unverified fallback shape.
	Degraded bool

	VerifiedAddress string
	GoogleMapsURL   string
	Location        string
	Postcode        string
	Sleeps          string
	Latitude        *float64
	Longitude       *float64

	WebsiteURL       string
	AirbnbURL        string
	BookingComURL    string
	VrboURL          string
	OtherBookingURLs []string

	Photos []string
}

// HasBookingLinks reports whether verification returned any booking evidence.
func (v VerificationFacts) HasBookingLinks() bool {
	return v.WebsiteURL != "" || v.AirbnbURL != "" || v.BookingComURL != "" ||
		v.VrboURL != "" || len(v.OtherBookingURLs) > 0
}

// ContentFacts is generated marketing copy.
type ContentFacts struct {
	Description     string
	Content         string
	MetaDescription string
	Features        []string
	Sleeps          string
}

// Enrichment collects the stage results for one record. A nil stage did not
// run or failed.
type Enrichment struct {
	Verification *VerificationFacts
	Content      *ContentFacts
	// PhotoURLs are re-hosted photo URLs in preference order.
	PhotoURLs []string
}

// BuildUpdate merges stage results into a partial write for current.
//
// Verified values overwrite stored ones unless the verification was degraded,
// in which case they only fill empty columns. Booking links and photos only
// ever fill empty slots. Verification sleeps win over generated sleeps.
func BuildUpdate(current Listing, e Enrichment) ListingUpdate {
	var u ListingUpdate
	postcode := current.Postcode

	if v := e.Verification; v != nil {
		authoritative := !v.Degraded

		setText(&u.VerifiedAddress, current.VerifiedAddress, v.VerifiedAddress, authoritative)
		setText(&u.GoogleMapsURL, current.GoogleMapsURL, v.GoogleMapsURL, authoritative)
		setText(&u.Location, current.Location, v.Location, false)
		setText(&u.Sleeps, current.Sleeps, v.Sleeps, authoritative)

		if pc := NormalizePostcode(v.Postcode); pc != "" {
			if setText(&u.Postcode, current.Postcode, pc, authoritative) {
				postcode = pc
			}
		}

		if authoritative && v.Latitude != nil && v.Longitude != nil {
			if current.Latitude == nil || current.Longitude == nil ||
				*current.Latitude != *v.Latitude || *current.Longitude != *v.Longitude {
				lat, lng := *v.Latitude, *v.Longitude
				u.Latitude, u.Longitude = &lat, &lng
			}
		}

		setText(&u.WebsiteURL, current.WebsiteURL, v.WebsiteURL, false)
		setText(&u.AirbnbURL, current.AirbnbURL, v.AirbnbURL, false)
		setText(&u.BookingComURL, current.BookingComURL, v.BookingComURL, false)
		setText(&u.VrboURL, current.VrboURL, v.VrboURL, false)

		existing := current.OtherBookingURLs()
		if merged, grew := unionURLs(existing, v.OtherBookingURLs); grew {
			u.OtherBookingURLs = merged
		}

		if authoritative && v.IsPublic {
			u.Mark(FlagAddressVerified)
		}
		if v.HasBookingLinks() {
			u.Mark(FlagBookingLinksFound)
		}
	}

	if current.Region == "" && postcode != "" {
		if region := RegionForPostcode(postcode); region != "" {
			u.Region = &region
		}
	}

	if c := e.Content; c != nil {
		u.Description = strPtr(c.Description)
		u.Content = strPtr(c.Content)
		u.MetaDescription = strPtr(c.MetaDescription)
		u.Features = append([]string{}, c.Features...)
		if u.Sleeps == nil && current.Sleeps == "" && strings.TrimSpace(c.Sleeps) != "" {
			u.Sleeps = strPtr(strings.TrimSpace(c.Sleeps))
		}
		u.Mark(FlagContentGenerated)
		if e.Verification == nil || !e.Verification.Degraded {
			u.Mark(FlagEnrichmentComplete)
		}
	}

	if placePhotos(&u, current, e.PhotoURLs) > 0 {
		u.Mark(FlagPhotosExtracted)
	}

	return u
}

// placePhotos fills empty photo slots in order: main image first, then the
// secondary slots. URLs already on the record are skipped.
func placePhotos(u *ListingUpdate, current Listing, urls []string) int {
	slots := []struct {
		existing string
		target   **string
	}{
		{current.ImageURL, &u.ImageURL},
		{current.Photo1URL, &u.Photo1URL},
		{current.Photo2URL, &u.Photo2URL},
		{current.Photo3URL, &u.Photo3URL},
	}
	present := make(map[string]struct{}, 4)
	for _, s := range slots {
		if s.existing != "" {
			present[s.existing] = struct{}{}
		}
	}

	written := 0
	next := 0
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, dup := present[url]; dup {
			continue
		}
		for next < len(slots) && slots[next].existing != "" {
			next++
		}
		if next >= len(slots) {
			break
		}
		*slots[next].target = strPtr(url)
		present[url] = struct{}{}
		next++
		written++
	}
	return written
}

// setText writes candidate into dst when it is non-empty and either the column is
// empty or overwrite is allowed and the value differs. It reports whether it wrote.
func setText(dst **string, current, candidate string, overwrite bool) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || candidate == current {
		return false
	}
	if current != "" && !overwrite {
		return false
	}
	*dst = &candidate
	return true
}

func unionURLs(existing, found []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(existing)+len(found))
	merged := make([]string, 0, len(existing)+len(found))
	for _, u := range existing {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			merged = append(merged, u)
		}
	}
	grew := false
	for _, u := range found {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			merged = append(merged, u)
			grew = true
		}
	}
	return merged, grew
}

func strPtr(s string) *string { return &s }
