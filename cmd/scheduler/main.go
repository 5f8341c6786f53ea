package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"venue_enrichment_backend/internal/bootstrap"
	"venue_enrichment_backend/internal/email"
	"venue_enrichment_backend/internal/enrichment"
	progressrepo "venue_enrichment_backend/internal/enrichment/repository"
	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/internal/scheduler"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, log, false)
	if err != nil {
		log.Error("failed to initialize infrastructure", "error", err)
		panic("failed to initialize infrastructure: " + err.Error())
	}
	defer infra.Close()

	rdb, err := progressrepo.OpenRedis(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	orchestrator := enrichment.NewService(infra.EnrichmentDeps(cfg, log))
	sink := service.Sinks(service.NewLogSink(log), progressrepo.NewProgressStore(rdb, log))

	worker, err := scheduler.NewWorker(cfg, orchestrator, sink, email.New(cfg), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
