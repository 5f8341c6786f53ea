package transport

import "venue_enrichment_backend/internal/listings/domain"

// ListListingsRequest filters the public listing index.
type ListListingsRequest struct {
	Region    string `form:"region" validate:"omitempty,max=100"`
	Published *bool  `form:"published"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// ListListingsResponse wraps a listing page.
type ListListingsResponse struct {
	Items []domain.Listing `json:"items"`
	Count int              `json:"count"`
}

// CreateListingRequest registers a venue to be enriched later.
type CreateListingRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=200"`
	RawAddress  string `json:"rawAddress" validate:"omitempty,max=500"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	Postcode    string `json:"postcode" validate:"omitempty,max=16"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	WebsiteURL  string `json:"websiteUrl" validate:"omitempty,url"`
	IsPublished bool   `json:"isPublished"`
}

// ToDomain maps the request to the insert payload.
func (r CreateListingRequest) ToDomain() domain.NewListing {
	return domain.NewListing{
		Title:       r.Title,
		Slug:        r.Slug,
		RawAddress:  r.RawAddress,
		Address:     r.Address,
		Postcode:    r.Postcode,
		Location:    r.Location,
		WebsiteURL:  r.WebsiteURL,
		IsPublished: r.IsPublished,
	}
}
