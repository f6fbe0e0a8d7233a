package markets

import "time"

// MarketSnapshot is the reconciled view of one market for one run.
type MarketSnapshot struct {
	RunID      string            `json:"run_id"`
	CapturedAt time.Time         `json:"captured_at"`
	Descriptor MarketDescriptor  `json:"descriptor"`
	Book       MarketBook        `json:"book"`
	Enrichment *EnrichmentRecord `json:"enrichment,omitempty"`
	Analytics  MarketAnalytics   `json:"analytics"`
	Runners    []RunnerSnapshot  `json:"runners"`
}

// RunnerSnapshot joins one catalogue runner with whatever the other sources had.
type RunnerSnapshot struct {
	Descriptor RunnerDescriptor  `json:"descriptor"`
	Book       *RunnerBook       `json:"book,omitempty"`
	Enrichment *RunnerEnrichment `json:"enrichment,omitempty"`
	Analytics  *RunnerAnalytics  `json:"analytics,omitempty"`
}

// MarketAnalytics holds derived quality signals. Overrounds are percentages.
type MarketAnalytics struct {
	BackOverround float64                    `json:"back_overround"`
	LayOverround  float64                    `json:"lay_overround"`
	PerRunner     map[string]RunnerAnalytics `json:"per_runner"`
}

// RunnerAnalytics is absent-aware: a nil ArbitrageMargin means no detectable
// edge or not enough data, never an edge of zero.
type RunnerAnalytics struct {
	BestBack        *float64 `json:"best_back,omitempty"`
	BestLay         *float64 `json:"best_lay,omitempty"`
	ArbitrageMargin *float64 `json:"arbitrage_margin,omitempty"`
}
