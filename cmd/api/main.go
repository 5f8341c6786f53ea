package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"venue_enrichment_backend/internal/bootstrap"
	"venue_enrichment_backend/internal/enrichment"
	"venue_enrichment_backend/internal/enrichment/handler"
	progressrepo "venue_enrichment_backend/internal/enrichment/repository"
	apphttp "venue_enrichment_backend/internal/http"
	"venue_enrichment_backend/internal/http/router"
	"venue_enrichment_backend/internal/listings"
	"venue_enrichment_backend/internal/scheduler"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	infra, err := bootstrap.Open(ctx, cfg, log, true)
	if err != nil {
		log.Error("failed to initialize infrastructure", "error", err)
		panic("failed to initialize infrastructure: " + err.Error())
	}
	defer infra.Close()

	queue, progress, closeQueue := initBatchQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	listingsModule := listings.NewModule(infra.Listings, infra.Validator)

	deps := infra.EnrichmentDeps(cfg, log)
	deps.Queue = queue
	deps.Progress = progress
	enrichmentModule := enrichment.NewModule(deps)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: infra.Pool,
		Modules: []apphttp.Module{
			listingsModule,
			enrichmentModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initBatchQueue connects the asynq client and the Redis progress store.
// Without REDIS_URL only synchronous single-record enrichment is offered.
func initBatchQueue(cfg *config.Config, log *logger.Logger) (handler.BatchQueue, *progressrepo.ProgressStore, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; batch endpoints disabled")
		return nil, nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize batch queue client", "error", err)
		return nil, nil, nil
	}

	rdb, err := progressrepo.OpenRedis(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize batch progress store", "error", err)
		_ = client.Close()
		return nil, nil, nil
	}

	return client, progressrepo.NewProgressStore(rdb, log), func() {
		_ = client.Close()
		_ = rdb.Close()
	}
}
