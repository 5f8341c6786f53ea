package verification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"venue_enrichment_backend/platform/ai/llm"
)

// reply is the model's answer. Every field is optional.
type reply struct {
	VerifiedAddress  string         `json:"verified_address"`
	IsPublicProperty *bool          `json:"is_public_property"`
	GoogleMapsURL    string         `json:"google_maps_url"`
	WebsiteURL       string         `json:"website_url"`
	AirbnbURL        string         `json:"airbnb_url"`
	BookingComURL    string         `json:"booking_com_url"`
	VrboURL          string         `json:"vrbo_url"`
	OtherBookingURLs urlList        `json:"other_booking_urls"`
	Location         string         `json:"location"`
	Postcode         string         `json:"postcode"`
	Sleeps           llm.FlexString `json:"sleeps"`
	Latitude         llm.FlexString `json:"latitude"`
	Longitude        llm.FlexString `json:"longitude"`
	Photos           urlList        `json:"photos"`
}

// urlList accepts a JSON array of strings, a single string or null.
type urlList []string

func (u *urlList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*u = nil
		return nil
	}
	if trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*u = urlList{single}
		return nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("url list: %w", err)
	}
	out := make(urlList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	*u = out
	return nil
}

// httpURL returns raw trimmed when it is an absolute http(s) URL, otherwise "".
func httpURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return raw
	}
	return ""
}

func httpURLs(raw []string, max int) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		u := httpURL(r)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func coordinate(raw llm.FlexString, limit float64) *float64 {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < -limit || v > limit {
		return nil
	}
	return &v
}

// nullish treats the placeholder strings models emit for missing values as empty.
func nullish(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}
