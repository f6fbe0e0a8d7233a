package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
	"github.com/hetulpatel/marketsnap/internal/pacing"
)

const defaultMaxInFlight = 4

// Config controls the fallback ladder and batch concurrency.
type Config struct {
	Tiers       []markets.TierSpec // richest first; defaults to markets.DefaultTiers()
	MaxInFlight int                // concurrent market fetches; defaults to 4
	Pacer       pacing.Pacer       // minimum gap between dispatches; nil disables pacing
}

// Fetcher retrieves order books, degrading per market through the tier ladder.
type Fetcher struct {
	source      markets.BookSource
	tiers       []markets.TierSpec
	maxInFlight int
	pacer       pacing.Pacer
}

// Attempt records one tier request.
type Attempt struct {
	Tier     markets.DetailTier
	Err      error
	Duration time.Duration
}

// Outcome is the full result of fetching one market.
type Outcome struct {
	Book      markets.MarketBook
	Attempts  []Attempt
	Err       error // non-fallback failure or cancellation
	Cancelled bool
}

// New builds a Fetcher over source.
func New(source markets.BookSource, cfg Config) (*Fetcher, error) {
	if source == nil {
		return nil, errors.New("fetcher: book source is required")
	}
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = markets.DefaultTiers()
	}
	for _, t := range tiers {
		if t.Tier == markets.TierNone {
			return nil, fmt.Errorf("fetcher: tier NONE cannot be requested")
		}
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Fetcher{
		source:      source,
		tiers:       append([]markets.TierSpec(nil), tiers...),
		maxInFlight: maxInFlight,
		pacer:       cfg.Pacer,
	}, nil
}

// Tiers returns the configured ladder.
func (f *Fetcher) Tiers() []markets.TierSpec {
	return append([]markets.TierSpec(nil), f.tiers...)
}

// Fetch walks the tier ladder for one market. The returned book is always
// usable: when every tier fails it is a TierNone book with no runners and the
// error is nil. A non-nil error means the walk stopped early on a failure that
// does not allow fallback (e.g. transport) or on cancellation; the book is
// TierNone in that case too.
func (f *Fetcher) Fetch(ctx context.Context, marketID string) (markets.MarketBook, error) {
	out := f.FetchOutcome(ctx, marketID)
	return out.Book, out.Err
}

// FetchOutcome is Fetch with the attempt trail.
func (f *Fetcher) FetchOutcome(ctx context.Context, marketID string) Outcome {
	out := Outcome{Book: markets.EmptyBook(marketID)}
	for _, spec := range f.tiers {
		if err := ctx.Err(); err != nil {
			out.Err = err
			out.Cancelled = true
			return out
		}

		start := time.Now()
		book, err := f.source.FetchBook(ctx, marketID, spec)
		out.Attempts = append(out.Attempts, Attempt{Tier: spec.Tier, Err: err, Duration: time.Since(start)})

		if err == nil {
			book.MarketID = marketID
			out.Book = spec.Clamp(book)
			if len(out.Attempts) > 1 {
				logging.Infof("[fetcher] market=%s served at %s after %d attempts", marketID, spec.Tier, len(out.Attempts))
			}
			return out
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Err = ctxErr
			out.Cancelled = true
			return out
		}
		if !markets.ShouldFallback(err) {
			logging.Errorf("[fetcher] market=%s tier=%s aborted: %v", marketID, spec.Tier, err)
			out.Err = err
			return out
		}
		logging.Debugf("[fetcher] market=%s tier=%s failed, trying next tier: %v", marketID, spec.Tier, err)
	}

	logging.Warnf("[fetcher] market=%s all %d tiers failed, degraded to %s", marketID, len(f.tiers), markets.TierNone)
	return out
}
