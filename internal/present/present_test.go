package present

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

func sampleSnapshot(backOverround float64, tier markets.DetailTier) markets.MarketSnapshot {
	margin := markets.Float(0.1)
	return markets.MarketSnapshot{
		RunID: "run-1",
		Descriptor: markets.MarketDescriptor{
			MarketID:   "1.234",
			MarketName: "1m Listed",
			EventName:  "Ascot 17th Oct",
			StartTime:  time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC),
		},
		Book:       markets.MarketBook{MarketID: "1.234", Tier: tier, TotalMatched: markets.Float(1500)},
		Enrichment: &markets.EnrichmentRecord{Course: "Ascot", Going: "Soft"},
		Analytics:  markets.MarketAnalytics{BackOverround: backOverround, LayOverround: 104.2},
		Runners: []markets.RunnerSnapshot{
			{
				Descriptor: markets.RunnerDescriptor{SelectionID: "1", Name: "Alpha"},
				Book:       &markets.RunnerBook{SelectionID: "1", TotalMatched: markets.Float(640)},
				Enrichment: &markets.RunnerEnrichment{Jockey: "R. Moore", Trainer: "A. O'Brien"},
				Analytics:  &markets.RunnerAnalytics{BestBack: markets.Float(2.2), BestLay: markets.Float(2.1), ArbitrageMargin: margin},
			},
			{Descriptor: markets.RunnerDescriptor{SelectionID: "2", Name: "Beta"}},
		},
	}
}

func TestRenderShowsRunnersAndMarker(t *testing.T) {
	out := NewTable(nil, 100).Render(sampleSnapshot(96.5, markets.TierHigh))

	assert.Contains(t, out, "Ascot 17th Oct / 1m Listed")
	assert.Contains(t, out, "tier HIGH")
	assert.Contains(t, out, "back 96.50%")
	assert.Contains(t, out, "BACK BOOK UNDER 100.0%")
	assert.Contains(t, out, "Ascot | Soft")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "2.2")
	assert.Contains(t, out, "0.1")
	assert.Contains(t, out, "R. Moore")
	assert.Contains(t, out, "Beta")
}

func TestRenderWithoutMarker(t *testing.T) {
	assert.NotContains(t, NewTable(nil, 100).Render(sampleSnapshot(103, markets.TierHigh)), "UNDER")
	assert.NotContains(t, NewTable(nil, 0).Render(sampleSnapshot(90, markets.TierHigh)), "UNDER")
	assert.NotContains(t, NewTable(nil, 100).Render(sampleSnapshot(0, markets.TierNone)), "UNDER")
}

func TestRenderDegradedTier(t *testing.T) {
	out := NewTable(nil, 100).Render(sampleSnapshot(0, markets.TierNone))
	assert.Contains(t, out, "tier NONE (no book data)")
}

func TestTablePresentWritesEverySnapshot(t *testing.T) {
	var buf bytes.Buffer
	a := sampleSnapshot(101, markets.TierHigh)
	b := sampleSnapshot(101, markets.TierLow)
	b.Descriptor.MarketID = "1.999"

	require.NoError(t, NewTable(&buf, 100).Present(context.Background(), []markets.MarketSnapshot{a, b}))
	assert.Contains(t, buf.String(), "[1.234]")
	assert.Contains(t, buf.String(), "[1.999]")
}

func TestMultiCallsEveryPresenter(t *testing.T) {
	var calls int
	ok := markets.PresenterFunc(func(context.Context, []markets.MarketSnapshot) error {
		calls++
		return nil
	})
	broken := markets.PresenterFunc(func(context.Context, []markets.MarketSnapshot) error {
		calls++
		return errors.New("kafka down")
	})

	err := Multi{broken, nil, ok}.Present(context.Background(), nil)
	assert.EqualError(t, err, "kafka down")
	assert.Equal(t, 2, calls)
}
