// Package verification asks the generative service whether a raw address is a
// publicly bookable venue and collects its booking links and photos.
package verification

import (
	"context"
	"net/url"
	"strings"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/platform/ai/llm"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/validator"
)

const (
	maxPhotos      = 4
	mapsSearchBase = "https://www.google.com/maps/search/?api=1&query="
)

// Result is the outcome of verifying one address.
type Result struct {
	IsPublicProperty bool
	// Degraded is set when no model produced a usable reply.
	Degraded bool
	// Model is the model id that answered, empty when degraded.
	Model string

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

// HasBookingLinks reports whether any booking link was found.
func (r Result) HasBookingLinks() bool {
	return r.Facts().HasBookingLinks()
}

// Facts converts the result for the listing merge rules.
func (r Result) Facts() domain.VerificationFacts {
	return domain.VerificationFacts{
		IsPublic:         r.IsPublicProperty,
		Degraded:         r.Degraded,
		VerifiedAddress:  r.VerifiedAddress,
		GoogleMapsURL:    r.GoogleMapsURL,
		Location:         r.Location,
		Postcode:         r.Postcode,
		Sleeps:           r.Sleeps,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		WebsiteURL:       r.WebsiteURL,
		AirbnbURL:        r.AirbnbURL,
		BookingComURL:    r.BookingComURL,
		VrboURL:          r.VrboURL,
		OtherBookingURLs: r.OtherBookingURLs,
		Photos:           r.Photos,
	}
}

// Service verifies addresses.
type Service struct {
	gen      llm.Generator
	resolver *llm.Resolver
	models   []string
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a verification service that tries models in order.
func New(gen llm.Generator, resolver *llm.Resolver, models []string, val *validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{gen: gen, resolver: resolver, models: models, val: val, log: log}
}

// Verify never fails: when every model attempt errors it returns the degraded
// unverified shape for rawAddress.
func (s *Service) Verify(ctx context.Context, rawAddress, regionHint string) Result {
	rawAddress = strings.TrimSpace(rawAddress)
	regionHint = strings.TrimSpace(regionHint)

	req := llm.Request{
		System: systemPrompt(),
		Prompt: buildPrompt(rawAddress, regionHint),
		JSON:   true,
		Search: true,
	}

	var rep reply
	modelName, err := s.resolver.Run(ctx, s.models, func(ctx context.Context, model string) error {
		text, err := s.gen.Generate(ctx, model, req)
		if err != nil {
			return err
		}
		rep = reply{}
		return llm.DecodeJSON(text, &rep, s.val)
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("address verification degraded",
			"model", modelName,
			"parse_error", llm.IsParseError(err),
			"error", err.Error(),
		)
		res := unverified(rawAddress)
		res.Degraded = true
		res.Location = regionHint
		return res
	}

	return interpret(rawAddress, regionHint, rep, modelName)
}

func interpret(rawAddress, regionHint string, rep reply, modelName string) Result {
	res := Result{
		Model:            modelName,
		VerifiedAddress:  nullish(rep.VerifiedAddress),
		GoogleMapsURL:    httpURL(rep.GoogleMapsURL),
		Location:         nullish(rep.Location),
		Postcode:         nullish(rep.Postcode),
		Sleeps:           nullish(rep.Sleeps.String()),
		Latitude:         coordinate(rep.Latitude, 90),
		Longitude:        coordinate(rep.Longitude, 180),
		WebsiteURL:       httpURL(rep.WebsiteURL),
		AirbnbURL:        httpURL(rep.AirbnbURL),
		BookingComURL:    httpURL(rep.BookingComURL),
		VrboURL:          httpURL(rep.VrboURL),
		OtherBookingURLs: httpURLs(rep.OtherBookingURLs, 0),
		Photos:           httpURLs(rep.Photos, maxPhotos),
	}
	if res.Location == "" {
		res.Location = regionHint
	}

	saysPublic := rep.IsPublicProperty == nil || *rep.IsPublicProperty
	if saysPublic && res.HasBookingLinks() {
		res.IsPublicProperty = true
		if res.VerifiedAddress == "" {
			res.VerifiedAddress = rawAddress
		}
		if res.GoogleMapsURL == "" {
			res.GoogleMapsURL = MapsSearchURL(rawAddress)
		}
		return res
	}

	out := unverified(rawAddress)
	out.Model = modelName
	out.Location = res.Location
	out.Postcode = res.Postcode
	out.Sleeps = res.Sleeps
	out.WebsiteURL = res.WebsiteURL
	out.AirbnbURL = res.AirbnbURL
	out.BookingComURL = res.BookingComURL
	out.VrboURL = res.VrboURL
	out.OtherBookingURLs = res.OtherBookingURLs
	return out
}

func unverified(rawAddress string) Result {
	return Result{
		IsPublicProperty: false,
		VerifiedAddress:  rawAddress,
		GoogleMapsURL:    MapsSearchURL(rawAddress),
	}
}

// MapsSearchURL is the deterministic Google Maps search link for an address.
func MapsSearchURL(address string) string {
	return mapsSearchBase + strings.ReplaceAll(url.QueryEscape(address), "+", "%20")
}
