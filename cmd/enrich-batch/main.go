package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"venue_enrichment_backend/internal/bootstrap"
	"venue_enrichment_backend/internal/email"
	"venue_enrichment_backend/internal/enrichment"
	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/logger"
)

type cliArgs struct {
	idsCSV     string
	withPhotos bool
	limit      int
	report     bool
	jsonOut    bool
}

func parseArgs(cfg *config.Config) cliArgs {
	var a cliArgs
	flag.StringVar(&a.idsCSV, "ids", "", "only enrich these listing IDs (CSV)")
	flag.BoolVar(&a.withPhotos, "photos", cfg.GetEnrichWithPhotos(), "discover and re-host photos (env: ENRICH_WITH_PHOTOS)")
	flag.IntVar(&a.limit, "limit", cfg.GetEnrichBatchLimit(), "max records to process, 0 = all (env: ENRICH_BATCH_LIMIT)")
	flag.BoolVar(&a.report, "email", cfg.GetEmailEnabled(), "e-mail the report when done (env: EMAIL_ENABLED)")
	flag.BoolVar(&a.jsonOut, "json", false, "print the final report as JSON")
	flag.Parse()
	return a
}

func parseIDs(csv string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid listing id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	args := parseArgs(cfg)

	log := logger.New(cfg.Env)
	log.Info("starting enrichment batch", "photos", args.withPhotos, "limit", args.limit)

	ids, err := parseIDs(args.idsCSV)
	if err != nil {
		log.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	// Ctrl-C stops the batch after the current record.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, log, false)
	if err != nil {
		log.Error("failed to initialize infrastructure", "error", err)
		os.Exit(1)
	}
	defer infra.Close()

	orchestrator := enrichment.NewService(infra.EnrichmentDeps(cfg, log))
	report, err := orchestrator.Run(ctx, service.Options{
		ListingIDs: ids,
		WithPhotos: args.withPhotos,
		Limit:      args.limit,
	}, service.NewLogSink(log))
	if err != nil {
		log.Error("enrichment batch failed", "error", err)
		os.Exit(1)
	}

	if args.report {
		// The signal context may already be cancelled.
		if err := email.New(cfg).SendBatchReport(context.Background(), report); err != nil {
			log.Warn("batch report e-mail failed", "error", err)
		}
	}

	if args.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}

	log.Info("enrichment batch complete",
		"processed", report.Progress.Current,
		"succeeded", report.Progress.Succeeded,
		"failed", report.Progress.Failed,
		"cancelled", report.Cancelled,
	)
	if report.Progress.Failed > 0 {
		os.Exit(3)
	}
}
