package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/marketsnap/internal/aggregate"
	"github.com/hetulpatel/marketsnap/internal/fetcher"
	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

const (
	defaultEnrichmentInFlight = 4
	// presentGrace bounds presentation after the run context is done.
	presentGrace = 10 * time.Second
)

// Config wires the collaborators of a run. Enrichment and Presenter are
// optional.
type Config struct {
	Directory          markets.Directory
	Fetcher            *fetcher.Fetcher
	Enrichment         markets.EnrichmentSource
	EnrichmentInFlight int
	Presenter          markets.Presenter
	Now                func() time.Time
}

// Engine runs one snapshot batch at a time. It keeps no state between runs.
type Engine struct {
	directory          markets.Directory
	fetcher            *fetcher.Fetcher
	enrichment         markets.EnrichmentSource
	enrichmentInFlight int
	presenter          markets.Presenter
	now                func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Snapshots []markets.MarketSnapshot
	// Failures holds markets whose fetch stopped on a non-fallback error.
	// Their snapshots are still present at TierNone.
	Failures  map[string]error
	Cancelled bool
}

// TierCounts tallies snapshots by the tier that served them.
func (r *Result) TierCounts() map[markets.DetailTier]int {
	out := make(map[markets.DetailTier]int)
	if r == nil {
		return out
	}
	for _, s := range r.Snapshots {
		out[s.Book.Tier]++
	}
	return out
}

func New(cfg Config) (*Engine, error) {
	if cfg.Directory == nil {
		return nil, errors.New("snapshot: directory is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("snapshot: fetcher is required")
	}
	inFlight := cfg.EnrichmentInFlight
	if inFlight <= 0 {
		inFlight = defaultEnrichmentInFlight
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		directory:          cfg.Directory,
		fetcher:            cfg.Fetcher,
		enrichment:         cfg.Enrichment,
		enrichmentInFlight: inFlight,
		presenter:          cfg.Presenter,
		now:                now,
	}, nil
}

// Run discovers markets, fetches books and race cards concurrently, then
// aggregates and presents. Only a discovery failure is returned as an error.
// On cancellation the result holds the markets whose fetch had completed, in
// catalogue order, and Cancelled is set.
func (e *Engine) Run(ctx context.Context, filter markets.MarketFilter) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: e.now().UTC()}
	log := logging.WithField("run_id", res.RunID)

	descriptors, err := e.directory.Discover(ctx, filter)
	if err != nil {
		return nil, err
	}
	descriptors = uniqueMarkets(descriptors)
	log.Infof("[snapshot] discovered %d markets", len(descriptors))

	ids := make([]string, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.MarketID
	}

	var (
		books       *fetcher.BookSet
		enrichments map[string]*markets.EnrichmentRecord
		phases      errgroup.Group
	)
	phases.Go(func() error {
		books = e.fetcher.FetchAll(ctx, ids)
		return nil
	})
	phases.Go(func() error {
		enrichments = e.lookupAll(ctx, ids)
		return nil
	})
	_ = phases.Wait()

	res.Failures = books.Failures()
	res.Cancelled = ctx.Err() != nil
	if res.Cancelled {
		completed := descriptors[:0:0]
		for _, d := range descriptors {
			if books.Has(d.MarketID) {
				completed = append(completed, d)
			}
		}
		log.Warnf("[snapshot] run cancelled; keeping %d of %d markets", len(completed), len(descriptors))
		descriptors = completed
	}

	capturedAt := e.now().UTC()
	res.Snapshots = aggregate.Aggregate(res.RunID, capturedAt, descriptors, books.Books(), enrichments)
	res.Duration = time.Since(res.StartedAt)

	counts := res.TierCounts()
	log.Infof("[snapshot] aggregated %d markets high=%d medium=%d low=%d none=%d failed=%d",
		len(res.Snapshots), counts[markets.TierHigh], counts[markets.TierMedium], counts[markets.TierLow],
		counts[markets.TierNone], len(res.Failures))

	if e.presenter != nil && len(res.Snapshots) > 0 {
		presentCtx := ctx
		if res.Cancelled {
			var cancel context.CancelFunc
			presentCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), presentGrace)
			defer cancel()
		}
		if err := e.presenter.Present(presentCtx, res.Snapshots); err != nil {
			log.Errorf("[snapshot] present: %v", err)
		}
	}
	return res, nil
}

// lookupAll queries the enrichment source for every market. Errors and
// misses leave the market without a record.
func (e *Engine) lookupAll(ctx context.Context, ids []string) map[string]*markets.EnrichmentRecord {
	out := make(map[string]*markets.EnrichmentRecord)
	if e.enrichment == nil {
		return out
	}

	var (
		mu     sync.Mutex
		g      errgroup.Group
		misses int
	)
	g.SetLimit(e.enrichmentInFlight)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			rec, err := e.enrichment.Lookup(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Debugf("[snapshot] enrichment %s market=%s: %v", e.enrichment.Name(), id, err)
				misses++
				return nil
			}
			if rec == nil {
				misses++
				return nil
			}
			out[id] = rec
			return nil
		})
	}
	_ = g.Wait()

	logging.Debugf("[snapshot] enrichment %s found=%d missing=%d", e.enrichment.Name(), len(out), misses)
	return out
}

func uniqueMarkets(in []markets.MarketDescriptor) []markets.MarketDescriptor {
	seen := make(map[string]bool, len(in))
	out := make([]markets.MarketDescriptor, 0, len(in))
	for _, d := range in {
		if d.MarketID == "" || seen[d.MarketID] {
			continue
		}
		seen[d.MarketID] = true
		out = append(out, d)
	}
	return out
}
