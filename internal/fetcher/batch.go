package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

// BookSet collects per-market outcomes from concurrent fetches.
type BookSet struct {
	mu        sync.Mutex
	books     map[string]markets.MarketBook
	failures  map[string]error
	attempts  map[string][]Attempt
	cancelled []string
}

func NewBookSet() *BookSet {
	return &BookSet{
		books:    make(map[string]markets.MarketBook),
		failures: make(map[string]error),
		attempts: make(map[string][]Attempt),
	}
}

// Put records a finished outcome. Cancelled outcomes are tracked separately
// and never appear in Books.
func (s *BookSet) Put(marketID string, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if out.Cancelled {
		s.cancelled = append(s.cancelled, marketID)
		return
	}
	s.books[marketID] = out.Book
	s.attempts[marketID] = out.Attempts
	if out.Err != nil {
		s.failures[marketID] = out.Err
	}
}

// Books returns a copy of the completed books keyed by market id.
func (s *BookSet) Books() map[string]markets.MarketBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]markets.MarketBook, len(s.books))
	for k, v := range s.books {
		out[k] = v
	}
	return out
}

// Failures returns markets whose fetch stopped on a non-fallback error.
func (s *BookSet) Failures() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]error, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}

// Attempts returns the tier trail for a market.
func (s *BookSet) Attempts(marketID string) []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attempt(nil), s.attempts[marketID]...)
}

// Has reports whether the market's fetch completed (successfully or degraded).
func (s *BookSet) Has(marketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.books[marketID]
	return ok
}

func (s *BookSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}

// Cancelled lists markets that were started but interrupted by cancellation.
func (s *BookSet) Cancelled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}

// FetchAll fetches every market concurrently, at most MaxInFlight at a time,
// with the pacer spacing out the start of each request. A failing market never
// affects the others. When ctx is cancelled no further markets are
// dispatched; whatever completed is in the returned set.
func (f *Fetcher) FetchAll(ctx context.Context, marketIDs []string) *BookSet {
	set := NewBookSet()
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(f.maxInFlight)

	var dispatched, degraded atomic.Int64
	for _, id := range marketIDs {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if f.pacer != nil {
				if err := f.pacer.Wait(ctx); err != nil {
					set.Put(id, Outcome{Cancelled: true, Err: err})
					return nil
				}
			}
			dispatched.Add(1)
			out := f.FetchOutcome(ctx, id)
			if !out.Cancelled && out.Book.Tier == markets.TierNone {
				degraded.Add(1)
			}
			set.Put(id, out)
			return nil
		})
	}
	_ = g.Wait()

	logging.Infof("[fetcher] batch complete markets=%d fetched=%d degraded=%d failed=%d duration=%s",
		len(marketIDs), set.Len(), degraded.Load(), len(set.Failures()), time.Since(start))
	if ctx.Err() != nil {
		logging.Warnf("[fetcher] batch cancelled after %d of %d dispatches", dispatched.Load(), len(marketIDs))
	}
	return set
}
