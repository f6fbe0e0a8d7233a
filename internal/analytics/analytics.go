package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

const epsilon = 1e-9

var hundred = decimal.NewFromInt(100)

// Analyze derives overround and per-runner arbitrage margins from a book.
// Only runners present in the book get an entry; a book at TierNone yields an
// empty PerRunner map and zero overrounds.
func Analyze(book markets.MarketBook) markets.MarketAnalytics {
	out := markets.MarketAnalytics{PerRunner: make(map[string]markets.RunnerAnalytics, len(book.Runners))}

	backSum := decimal.Zero
	laySum := decimal.Zero
	for id, rb := range book.Runners {
		ra := AnalyzeRunner(rb)
		if ra.BestBack != nil {
			backSum = backSum.Add(impliedPercent(*ra.BestBack))
		}
		if ra.BestLay != nil {
			laySum = laySum.Add(impliedPercent(*ra.BestLay))
		}
		out.PerRunner[id] = ra
	}

	out.BackOverround = backSum.InexactFloat64()
	out.LayOverround = laySum.InexactFloat64()
	return out
}

// AnalyzeRunner extracts best prices and the back-over-lay margin for one runner.
func AnalyzeRunner(rb markets.RunnerBook) markets.RunnerAnalytics {
	var ra markets.RunnerAnalytics
	if lvl, ok := rb.BestBack(); ok && usable(lvl.Price) {
		ra.BestBack = markets.Float(lvl.Price)
	}
	if lvl, ok := rb.BestLay(); ok && usable(lvl.Price) {
		ra.BestLay = markets.Float(lvl.Price)
	}
	ra.ArbitrageMargin = Margin(ra.BestBack, ra.BestLay)
	return ra
}

// Margin returns back - lay when both prices exist and back is strictly
// greater than lay, nil otherwise.
func Margin(back, lay *float64) *float64 {
	if back == nil || lay == nil {
		return nil
	}
	b := decimal.NewFromFloat(*back)
	l := decimal.NewFromFloat(*lay)
	if !b.GreaterThan(l) {
		return nil
	}
	return markets.Float(b.Sub(l).InexactFloat64())
}

// Overround sums 100/price over the given best prices, skipping absent and
// non-positive ones.
func Overround(prices []*float64) float64 {
	sum := decimal.Zero
	for _, p := range prices {
		if p == nil || !usable(*p) {
			continue
		}
		sum = sum.Add(impliedPercent(*p))
	}
	return sum.InexactFloat64()
}

// BelowThreshold reports whether an overround percentage is under the
// caller's threshold. Zero overround means no prices at all and never counts.
func BelowThreshold(overround, threshold float64) bool {
	return overround > epsilon && overround < threshold
}

func impliedPercent(price float64) decimal.Decimal {
	return hundred.DivRound(decimal.NewFromFloat(price), 8)
}

func usable(price float64) bool {
	return price > epsilon
}
