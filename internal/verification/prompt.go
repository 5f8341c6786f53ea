package verification

import (
	"fmt"
	"strings"
)

func systemPrompt() string {
	return `You are a research assistant that verifies UK holiday and group accommodation for a venue directory.
You search the web for the property behind an address and report only what you can find evidence for.
You reply with a single JSON object and nothing else.`
}

func buildPrompt(rawAddress, regionHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %q\n", rawAddress)
	if regionHint != "" {
		fmt.Fprintf(&b, "Region: %s\n", regionHint)
	}
	b.WriteString(`
## Task
Decide whether this address is a PUBLIC property (holiday let, hotel, B&B, event venue) that a group can book.
A private home with no public booking page is NOT public.

Mark is_public_property true only when you found independent booking evidence: the property's own website
or a listing on Airbnb, Booking.com, VRBO or another booking platform. No booking link means false.

## Fields
- verified_address: the official, Google-recognised form of the address
- is_public_property: true or false, following the rule above
- google_maps_url: a Google Maps URL for the property
- website_url: the official property or venue website
- airbnb_url, booking_com_url, vrbo_url: listing URLs on those platforms
- other_booking_urls: array of listing URLs on any other booking platform
- location: town or city
- postcode: UK postcode
- sleeps: how many guests it sleeps, e.g. "8", "10-12" or "12+"
- latitude, longitude: decimal coordinates of the property
- photos: up to 4 direct image URLs of the property (exterior, main rooms) from its website or listings

## Output
Return ONLY this JSON object. Use null or [] for anything you could not find. Do not guess URLs.
{
  "verified_address": "Full official address",
  "is_public_property": true,
  "google_maps_url": "https://maps.google.com/...",
  "website_url": "https://...",
  "airbnb_url": null,
  "booking_com_url": null,
  "vrbo_url": null,
  "other_booking_urls": [],
  "location": "Town",
  "postcode": "POSTCODE",
  "sleeps": "8",
  "latitude": 51.5,
  "longitude": -1.8,
  "photos": ["https://..."]
}
`)
	return b.String()
}
