package llm

import (
	"context"
	"errors"

	"venue_enrichment_backend/platform/logger"
)

// ErrNoCandidates is returned when a resolver run is given an empty model chain.
var ErrNoCandidates = errors.New("no model candidates configured")

// Resolver walks an ordered list of model ids, moving on only when the current
// one is unavailable.
type Resolver struct {
	log *logger.Logger
}

func NewResolver(log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{log: log}
}

// Run invokes op for each candidate in order until op succeeds or fails with an
// error that is not ErrModelUnavailable. It returns the model id of the last
// attempt. When every candidate is unavailable the last error is returned.
func (r *Resolver) Run(ctx context.Context, candidates []string, op func(ctx context.Context, model string) error) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	var (
		lastModel string
		lastErr   error
	)
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return lastModel, err
		}
		lastModel = candidate
		lastErr = op(ctx, candidate)
		if lastErr == nil || !IsModelUnavailable(lastErr) {
			return candidate, lastErr
		}
		if i < len(candidates)-1 {
			r.log.WithContext(ctx).Warn("model unavailable, falling back",
				"model", candidate,
				"next", candidates[i+1],
				"error", lastErr.Error(),
			)
		}
	}
	return lastModel, lastErr
}

// TryWithFallback runs op against primary and, only if primary is unavailable,
// exactly once against fallback.
func (r *Resolver) TryWithFallback(ctx context.Context, primary, fallback string, op func(ctx context.Context, model string) error) error {
	_, err := r.Run(ctx, []string{primary, fallback}, op)
	return err
}
