package aggregate

import (
	"time"

	"github.com/hetulpatel/marketsnap/internal/analytics"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Aggregate joins catalogue descriptors with fetched books and optional
// enrichment. It yields exactly one snapshot per descriptor, in descriptor
// order. Book and enrichment runners that the catalogue does not list are
// dropped; a market with no book gets a TierNone book. Inputs are not mutated.
func Aggregate(
	runID string,
	capturedAt time.Time,
	descriptors []markets.MarketDescriptor,
	books map[string]markets.MarketBook,
	enrichments map[string]*markets.EnrichmentRecord,
) []markets.MarketSnapshot {
	out := make([]markets.MarketSnapshot, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, Market(runID, capturedAt, d, books[d.MarketID], enrichments[d.MarketID]))
	}
	return out
}

// Market builds the snapshot for a single market. A zero-value book (no
// market id) is treated as missing.
func Market(
	runID string,
	capturedAt time.Time,
	d markets.MarketDescriptor,
	book markets.MarketBook,
	enrichment *markets.EnrichmentRecord,
) markets.MarketSnapshot {
	joined := joinBook(d, book)
	stats := analytics.Analyze(joined)

	snap := markets.MarketSnapshot{
		RunID:      runID,
		CapturedAt: capturedAt,
		Descriptor: d,
		Book:       joined,
		Enrichment: joinEnrichment(d, enrichment),
		Analytics:  stats,
		Runners:    make([]markets.RunnerSnapshot, 0, len(d.Runners)),
	}

	for _, r := range d.Runners {
		rs := markets.RunnerSnapshot{Descriptor: r}
		if rb, ok := joined.Runners[r.SelectionID]; ok {
			rb := rb
			rs.Book = &rb
		}
		if ra, ok := stats.PerRunner[r.SelectionID]; ok {
			ra := ra
			rs.Analytics = &ra
		}
		if snap.Enrichment != nil {
			if re, ok := snap.Enrichment.Runners[r.SelectionID]; ok {
				re := re
				rs.Enrichment = &re
			}
		}
		snap.Runners = append(snap.Runners, rs)
	}
	return snap
}

func joinBook(d markets.MarketDescriptor, book markets.MarketBook) markets.MarketBook {
	if book.MarketID == "" {
		return markets.EmptyBook(d.MarketID)
	}
	joined := markets.MarketBook{
		MarketID:     d.MarketID,
		Tier:         book.Tier,
		Status:       book.Status,
		InPlay:       book.InPlay,
		TotalMatched: book.TotalMatched,
		Runners:      make(map[string]markets.RunnerBook, len(book.Runners)),
	}
	if book.Tier == markets.TierNone {
		return joined
	}
	for id, rb := range book.Runners {
		if d.HasRunner(id) {
			joined.Runners[id] = rb
		}
	}
	return joined
}

func joinEnrichment(d markets.MarketDescriptor, rec *markets.EnrichmentRecord) *markets.EnrichmentRecord {
	if rec == nil {
		return nil
	}
	joined := *rec
	joined.MarketID = d.MarketID
	if len(rec.Runners) > 0 {
		joined.Runners = make(map[string]markets.RunnerEnrichment, len(rec.Runners))
		for id, re := range rec.Runners {
			if d.HasRunner(id) {
				joined.Runners[id] = re
			}
		}
	}
	return &joined
}
