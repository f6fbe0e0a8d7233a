package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next dispatch is allowed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval enforces a minimum gap between dispatches within one process.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval builds a pacer that lets one dispatch through every gap.
// A non-positive gap disables pacing.
func NewInterval(gap time.Duration) *Interval {
	if gap <= 0 {
		return &Interval{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(gap), 1)}
}

func (p *Interval) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Chain waits on every pacer in order, e.g. a local interval then a shared one.
type Chain []Pacer

func (c Chain) Wait(ctx context.Context) error {
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
