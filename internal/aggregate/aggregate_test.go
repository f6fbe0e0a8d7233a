package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

var captured = time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC)

func descriptor(id string, runners ...string) markets.MarketDescriptor {
	d := markets.MarketDescriptor{MarketID: id, EventName: "Ascot " + id, StartTime: captured.Add(time.Hour)}
	for _, r := range runners {
		d.Runners = append(d.Runners, markets.RunnerDescriptor{SelectionID: r, Name: "Horse " + r})
	}
	return d
}

func runner(id string, back, lay float64) markets.RunnerBook {
	rb := markets.RunnerBook{SelectionID: id, TotalMatched: markets.Float(50)}
	if back > 0 {
		rb.Back = []markets.PriceLevel{{Price: back, Size: 10}}
	}
	if lay > 0 {
		rb.Lay = []markets.PriceLevel{{Price: lay, Size: 10}}
	}
	return rb
}

func TestAggregateJoinsAgainstCatalogueRunners(t *testing.T) {
	d := descriptor("1.1", "R1", "R2")
	books := map[string]markets.MarketBook{
		"1.1": {
			MarketID: "1.1",
			Tier:     markets.TierHigh,
			Runners: map[string]markets.RunnerBook{
				"R1": runner("R1", 2.0, 2.1),
				"R3": runner("R3", 4.0, 4.2),
			},
		},
	}

	got := Aggregate("run-1", captured, []markets.MarketDescriptor{d}, books, nil)
	require.Len(t, got, 1)
	snap := got[0]

	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, captured, snap.CapturedAt)
	assert.Equal(t, markets.TierHigh, snap.Book.Tier)
	assert.Contains(t, snap.Book.Runners, "R1")
	assert.NotContains(t, snap.Book.Runners, "R3")
	assert.NotContains(t, snap.Analytics.PerRunner, "R3")

	require.Len(t, snap.Runners, 2)
	assert.Equal(t, "R1", snap.Runners[0].Descriptor.SelectionID)
	require.NotNil(t, snap.Runners[0].Book)
	assert.Equal(t, 2.0, snap.Runners[0].Book.Back[0].Price)
	require.NotNil(t, snap.Runners[0].Analytics)
	assert.Equal(t, 2.0, *snap.Runners[0].Analytics.BestBack)

	assert.Equal(t, "R2", snap.Runners[1].Descriptor.SelectionID)
	assert.Nil(t, snap.Runners[1].Book)
	assert.Nil(t, snap.Runners[1].Analytics)

	assert.InDelta(t, 50.0, snap.Analytics.BackOverround, 1e-9, "R3 is excluded from the overround")
}

func TestAggregatePreservesOrderAndLength(t *testing.T) {
	descs := []markets.MarketDescriptor{
		descriptor("1.3", "a"),
		descriptor("1.1", "b"),
		descriptor("1.2", "c"),
	}
	books := map[string]markets.MarketBook{
		"1.1": {MarketID: "1.1", Tier: markets.TierLow, Runners: map[string]markets.RunnerBook{"b": runner("b", 3, 0)}},
		"9.9": {MarketID: "9.9", Tier: markets.TierHigh},
	}

	got := Aggregate("run", captured, descs, books, nil)
	require.Len(t, got, len(descs))
	for i, d := range descs {
		assert.Equal(t, d.MarketID, got[i].Descriptor.MarketID)
	}
}

func TestAggregateMissingBookIsNone(t *testing.T) {
	got := Aggregate("run", captured, []markets.MarketDescriptor{descriptor("1.1", "R1")}, nil, nil)
	require.Len(t, got, 1)

	snap := got[0]
	assert.Equal(t, markets.TierNone, snap.Book.Tier)
	assert.Equal(t, "1.1", snap.Book.MarketID)
	assert.Empty(t, snap.Book.Runners)
	assert.Empty(t, snap.Analytics.PerRunner)
	assert.Zero(t, snap.Analytics.BackOverround)
	assert.Zero(t, snap.Analytics.LayOverround)
	require.Len(t, snap.Runners, 1)
	assert.Nil(t, snap.Runners[0].Book)
}

func TestAggregateNoneBookCarriesNoRunners(t *testing.T) {
	books := map[string]markets.MarketBook{
		"1.1": {MarketID: "1.1", Tier: markets.TierNone, Runners: map[string]markets.RunnerBook{"R1": runner("R1", 2, 2.1)}},
	}
	got := Aggregate("run", captured, []markets.MarketDescriptor{descriptor("1.1", "R1")}, books, nil)
	assert.Empty(t, got[0].Book.Runners)
	assert.Empty(t, got[0].Analytics.PerRunner)
}

func TestAggregateEnrichment(t *testing.T) {
	d := descriptor("1.1", "R1", "R2")
	enrich := map[string]*markets.EnrichmentRecord{
		"1.1": {
			MarketID: "1.1",
			Course:   "Ascot",
			Going:    "Good to Soft",
			Runners: map[string]markets.RunnerEnrichment{
				"R1": {SelectionID: "R1", Jockey: "R. Moore"},
				"R9": {SelectionID: "R9", Jockey: "Nobody"},
			},
		},
	}

	got := Aggregate("run", captured, []markets.MarketDescriptor{d, descriptor("1.2", "R5")}, nil, enrich)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Enrichment)
	assert.Equal(t, "Ascot", got[0].Enrichment.Course)
	assert.NotContains(t, got[0].Enrichment.Runners, "R9")
	require.NotNil(t, got[0].Runners[0].Enrichment)
	assert.Equal(t, "R. Moore", got[0].Runners[0].Enrichment.Jockey)
	assert.Nil(t, got[0].Runners[1].Enrichment)

	assert.Nil(t, got[1].Enrichment, "markets without a race card are not an error")
	assert.Contains(t, enrich["1.1"].Runners, "R9", "input is not mutated")
}

func TestAggregateIsIdempotent(t *testing.T) {
	descs := []markets.MarketDescriptor{descriptor("1.1", "R1", "R2")}
	books := map[string]markets.MarketBook{
		"1.1": {MarketID: "1.1", Tier: markets.TierMedium, Runners: map[string]markets.RunnerBook{
			"R1": runner("R1", 2.2, 2.1),
			"R2": runner("R2", 3.0, 3.5),
		}},
	}

	first := Aggregate("run", captured, descs, books, nil)
	second := Aggregate("run", captured, descs, books, nil)
	assert.Equal(t, first, second)

	require.NotNil(t, first[0].Runners[0].Analytics.ArbitrageMargin)
	assert.Equal(t, 0.1, *first[0].Runners[0].Analytics.ArbitrageMargin)
	assert.Nil(t, first[0].Runners[1].Analytics.ArbitrageMargin)
}
