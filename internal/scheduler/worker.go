package scheduler

import (
	"context"
	"fmt"

	"venue_enrichment_backend/internal/enrichment/service"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// BatchRunner executes a batch.
type BatchRunner interface {
	Run(ctx context.Context, opts service.Options, sink service.Sink) (service.Report, error)
}

// Reporter delivers a finished batch report, e.g. by e-mail.
type Reporter interface {
	SendBatchReport(ctx context.Context, r service.Report) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	batch  *batchHandler
	log    *logger.Logger
}

// NewWorker processes enrichment batches one at a time. reporter may be nil.
func NewWorker(cfg config.SchedulerConfig, runner BatchRunner, sink service.Sink, reporter Reporter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		batch:  &batchHandler{runner: runner, sink: sink, reporter: reporter, log: log},
		log:    log,
	}

	mux.HandleFunc(TaskEnrichmentBatch, w.batch.handle)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

type batchHandler struct {
	runner   BatchRunner
	sink     service.Sink
	reporter Reporter
	log      *logger.Logger
}

func (h *batchHandler) handle(ctx context.Context, task *asynq.Task) error {
	opts, err := ParseEnrichmentBatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	report, err := h.runner.Run(ctx, opts, h.sink)
	if err != nil {
		return err
	}

	if h.reporter != nil {
		if err := h.reporter.SendBatchReport(ctx, report); err != nil {
			h.log.WithContext(ctx).Warn("batch report e-mail failed", "batch_id", report.BatchID, "error", err)
		}
	}
	return nil
}
