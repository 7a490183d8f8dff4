package triage

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// MinPace is the smallest gap allowed between two triaged items.
const MinPace = 500 * time.Millisecond

// Pacer throttles the per-item pipeline. Wait is called once after every
// item, whatever its outcome.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFactory returns a fresh Pacer for each batch.
type PacerFactory func() Pacer

// RatePacer admits one item per interval using a token bucket with no burst.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer whose first Wait already blocks for a full
// interval. Intervals below MinPace are raised to MinPace.
func NewRatePacer(interval time.Duration) *RatePacer {
	if interval < MinPace {
		interval = MinPace
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()
	return &RatePacer{limiter: limiter}
}

// Wait blocks until the next item may start or ctx is done.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// RatePacerFactory builds a PacerFactory for NewRatePacer.
func RatePacerFactory(interval time.Duration) PacerFactory {
	return func() Pacer { return NewRatePacer(interval) }
}
