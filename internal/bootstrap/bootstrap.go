// Package bootstrap holds the infrastructure wiring shared by the API server,
// the batch worker and the batch CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"venue_enrichment_backend/internal/adapters/storage"
	"venue_enrichment_backend/internal/enrichment"
	"venue_enrichment_backend/internal/listings"
	listingsrepo "venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/platform/ai/llm"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/db"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/validator"
)

const (
	retryAttempts  = 5
	retryBaseDelay = 2 * time.Second
)

// Infra is the shared infrastructure of every binary.
type Infra struct {
	Pool      *pgxpool.Pool
	Listings  *listingsrepo.Repository
	Store     storage.ObjectStore
	Generator llm.Generator
	Validator *validator.Validator
}

// Close releases the database pool.
func (i *Infra) Close() {
	if i != nil && i.Pool != nil {
		i.Pool.Close()
	}
}

// Open connects to the database, applies migrations when migrate is set and
// wires the listings repository, object storage and generative client.
// Storage failures disable the photo stage instead of failing startup.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate bool) (*Infra, error) {
	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", retryAttempts, retryBaseDelay, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if migrate {
		if err := WithRetry(ctx, log, "database migrations", retryAttempts, retryBaseDelay, func() error {
			applied, err := db.RunMigrations(ctx, pool)
			if err == nil && len(applied) > 0 {
				log.Info("database migrations applied", "versions", applied)
			}
			return err
		}); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run database migrations: %w", err)
		}
		log.Info("database migrations complete")
	}

	repo, err := listings.NewRepository(pool, cfg, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init listings repository: %w", err)
	}

	factory, err := llm.FactoryFromConfig(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Infra{
		Pool:      pool,
		Listings:  repo,
		Store:     openStorage(ctx, cfg, log),
		Generator: llm.NewClient(factory),
		Validator: validator.New(),
	}, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) storage.ObjectStore {
	store, err := storage.New(cfg)
	if err != nil {
		log.Warn("object storage unavailable; photo stage disabled", "driver", cfg.GetStorageDriver(), "error", err)
		return nil
	}
	if err := WithRetry(ctx, log, "ensure storage bucket", retryAttempts, retryBaseDelay, func() error {
		return store.EnsureBucket(ctx)
	}); err != nil {
		log.Warn("storage bucket unavailable; photo stage disabled", "bucket", cfg.GetStorageBucket(), "error", err)
		return nil
	}
	log.Info("storage service initialized", "driver", cfg.GetStorageDriver(), "bucket", cfg.GetStorageBucket())
	return store
}

// EnrichmentDeps assembles the enrichment module's collaborators from infra.
func (i *Infra) EnrichmentDeps(cfg *config.Config, log *logger.Logger) enrichment.Deps {
	return enrichment.Deps{
		Listings:  i.Listings,
		Generator: i.Generator,
		Validator: i.Validator,
		Store:     i.Store,
		Config:    cfg,
		Log:       log,
	}
}

// WithRetry runs fn up to attempts times with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
