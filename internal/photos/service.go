// Package photos discovers a listing's representative image on its website
// and re-hosts images in object storage.
package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/adapters/storage"
	"venue_enrichment_backend/platform/logger"
)

const (
	downloadTimeout = 10 * time.Second
	defaultMaxBytes = 10 << 20
	keyPrefix       = "listings"
)

// Service discovers and ingests listing photos.
type Service struct {
	fetcher  Fetcher
	client   *http.Client
	store    storage.ObjectStore
	exclude  []string
	maxBytes int64
	log      *logger.Logger
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	ExcludeTokens []string
	MaxBytes      int64
	Client        *http.Client
}

func New(fetcher Fetcher, store storage.ObjectStore, opts Options, log *logger.Logger) *Service {
	exclude := opts.ExcludeTokens
	if exclude == nil {
		exclude = []string{"logo"}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Service{
		fetcher:  fetcher,
		client:   client,
		store:    store,
		exclude:  exclude,
		maxBytes: maxBytes,
		log:      log,
	}
}

// Discover fetches pageURL and extracts its representative image. A page
// without a usable image is not an error.
func (s *Service) Discover(ctx context.Context, pageURL string) (string, bool, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", false, err
	}
	img, ok := ExtractImage(page.HTML, page.URL, s.exclude)
	if !ok {
		s.log.Debug("no image found on page", "url", pageURL)
	}
	return img, ok, nil
}

// Ingest downloads imageURL and stores it under listings/<listingID>/.
// It returns the stored object's public URL.
func (s *Service) Ingest(ctx context.Context, listingID uuid.UUID, imageURL string) (string, error) {
	data, contentType, err := s.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%s.%s", keyPrefix, listingID, uuid.NewString()[:8], extension(contentType))
	publicURL, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store photo %s: %w", key, err)
	}
	s.log.Info("photo ingested", "listing_id", listingID.String(), "key", key, "bytes", len(data))
	return publicURL, nil
}

func (s *Service) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: imageURL, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", &FetchError{URL: imageURL, Err: err}
	}
	if err := storage.ValidateFileSize(int64(len(data)), s.maxBytes); err != nil {
		return nil, "", fmt.Errorf("photo %s: %w", imageURL, err)
	}

	contentType := storage.NormalizeContentType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.NormalizeContentType(http.DetectContentType(data))
	}
	if !storage.IsImageContentType(contentType) {
		return nil, "", fmt.Errorf("photo %s: content type %q is not an image", imageURL, contentType)
	}
	return data, contentType, nil
}

func extension(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "jpg"
	}
}
