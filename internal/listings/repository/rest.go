package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/config"
)

const (
	tableListings      = "listings"
	defaultRESTTimeout = 15 * time.Second
	maxRESTBody        = 8 << 20
)

// ErrSchemaCacheStale is matched by REST errors reporting an outdated schema cache.
var ErrSchemaCacheStale = errors.New("schema cache stale")

// RESTError is a PostgREST error body.
type RESTError struct {
	Status  int             `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	Hint    string          `json:"hint"`
}

func (e *RESTError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rest %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rest %d: %s", e.Status, e.Message)
}

// IsStaleSchemaCache reports whether the front-end's cached schema is behind the database.
func (e *RESTError) IsStaleSchemaCache() bool {
	switch e.Code {
	case "PGRST204", "PGRST205":
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "schema cache")
}

// Is lets errors.Is(err, ErrSchemaCacheStale) match.
func (e *RESTError) Is(target error) bool {
	return target == ErrSchemaCacheStale && e.IsStaleSchemaCache()
}

// IsStaleSchemaCache reports whether err signals a stale schema cache.
func IsStaleSchemaCache(err error) bool {
	return errors.Is(err, ErrSchemaCacheStale)
}

// RESTStore is the cached query path: a PostgREST front-end over the listings table.
type RESTStore struct {
	endpoint   string
	serviceKey string
	httpClient *http.Client
}

// NewRESTStore builds a REST store from configuration.
func NewRESTStore(cfg config.RESTConfig) *RESTStore {
	timeout := cfg.GetRESTTimeout()
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}
	return newRESTStore(cfg.GetRESTURL(), cfg.GetRESTServiceKey(), &http.Client{Timeout: timeout})
}

func newRESTStore(baseURL, serviceKey string, client *http.Client) *RESTStore {
	return &RESTStore{
		endpoint:   strings.TrimRight(baseURL, "/") + "/rest/v1/" + tableListings,
		serviceKey: serviceKey,
		httpClient: client,
	}
}

func (s *RESTStore) Name() string { return "rest" }

func (s *RESTStore) List(ctx context.Context, q Query) ([]domain.Listing, error) {
	params, err := q.RESTParams()
	if err != nil {
		return nil, err
	}
	var rows []domain.Listing
	if err := s.do(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RESTStore) Update(ctx context.Context, id uuid.UUID, cols map[string]any) (domain.Listing, error) {
	target := s.endpoint + "?id=eq." + id.String()
	var rows []domain.Listing
	if err := s.do(ctx, http.MethodPatch, target, cols, &rows); err != nil {
		return domain.Listing{}, err
	}
	if len(rows) == 0 {
		return domain.Listing{}, apperr.NotFound("listing not found")
	}
	return rows[0], nil
}

func (s *RESTStore) Insert(ctx context.Context, cols map[string]any) (domain.Listing, error) {
	var rows []domain.Listing
	if err := s.do(ctx, http.MethodPost, s.endpoint, cols, &rows); err != nil {
		return domain.Listing{}, err
	}
	if len(rows) == 0 {
		return domain.Listing{}, fmt.Errorf("rest insert returned no rows")
	}
	return rows[0], nil
}

func (s *RESTStore) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode rest body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRESTBody))
	if err != nil {
		return fmt.Errorf("read rest response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		restErr := &RESTError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, restErr); jsonErr != nil || restErr.Message == "" {
			restErr.Message = strings.TrimSpace(string(raw))
		}
		return restErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode rest response: %w", err)
	}
	return nil
}
