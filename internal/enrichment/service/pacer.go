package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out generative calls. Each record spends tokens according to
// the work it will do.
type Pacer struct {
	limiter *rate.Limiter
	burst   int
}

// NewPacer refills perMinute tokens a minute and holds at most burst.
func NewPacer(perMinute float64, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	every := rate.Inf
	if perMinute > 0 {
		every = rate.Every(time.Duration(float64(time.Minute) / perMinute))
	}
	return &Pacer{limiter: rate.NewLimiter(every, burst), burst: burst}
}

// Wait blocks until cost tokens are available or ctx ends.
func (p *Pacer) Wait(ctx context.Context, cost int) error {
	if p == nil {
		return ctx.Err()
	}
	if cost < 1 {
		cost = 1
	}
	if cost > p.burst {
		cost = p.burst
	}
	return p.limiter.WaitN(ctx, cost)
}
