// Package repository keeps batch progress snapshots in Redis so any API
// instance can report on a batch the worker is running.
package repository

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
)

const (
	keyPrefix  = "enrichment:batch:"
	defaultTTL = 7 * 24 * time.Hour
)

// OpenRedis parses a redis:// or rediss:// URL into a client.
func OpenRedis(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

// ProgressStore saves the latest report of each batch.
type ProgressStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewProgressStore(rdb *redis.Client, log *logger.Logger) *ProgressStore {
	return &ProgressStore{rdb: rdb, ttl: defaultTTL, log: log}
}

// Save overwrites the snapshot for r.BatchID.
func (s *ProgressStore) Save(ctx context.Context, r service.Report) error {
	if r.BatchID == "" {
		return apperr.Validation("batch id is required")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+r.BatchID, data, s.ttl).Err()
}

// Get returns the snapshot for batchID or a NotFound error.
func (s *ProgressStore) Get(ctx context.Context, batchID string) (service.Report, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+batchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return service.Report{}, apperr.NotFound("batch not found")
	}
	if err != nil {
		return service.Report{}, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	var r service.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return service.Report{}, fmt.Errorf("decode batch %s: %w", batchID, err)
	}
	return r, nil
}

// Record implements service.Sink. Write failures are logged; progress
// reporting never stops a batch.
func (s *ProgressStore) Record(ctx context.Context, r service.Report) {
	if err := s.Save(ctx, r); err != nil {
		s.log.WithContext(ctx).Warn("save batch progress failed", "batch_id", r.BatchID, "error", err)
	}
}
