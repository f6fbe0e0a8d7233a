package markets

import (
	"time"
)

// MarketDescriptor is the catalogue view of a market. The runner list is the
// identity backbone every other source is joined against.
type MarketDescriptor struct {
	MarketID     string             `json:"market_id"`
	MarketName   string             `json:"market_name,omitempty"`
	EventID      string             `json:"event_id,omitempty"`
	EventName    string             `json:"event_name"`
	CountryCode  string             `json:"country_code,omitempty"`
	Venue        string             `json:"venue,omitempty"`
	StartTime    time.Time          `json:"start_time"`
	TotalMatched *float64           `json:"total_matched,omitempty"`
	Runners      []RunnerDescriptor `json:"runners"`
}

// RunnerDescriptor identifies a selection within a market.
type RunnerDescriptor struct {
	SelectionID  string  `json:"selection_id"`
	Name         string  `json:"name"`
	SortPriority int     `json:"sort_priority,omitempty"`
	Handicap     float64 `json:"handicap,omitempty"`
}

// HasRunner reports whether selectionID is part of the catalogue runner list.
func (d MarketDescriptor) HasRunner(selectionID string) bool {
	for _, r := range d.Runners {
		if r.SelectionID == selectionID {
			return true
		}
	}
	return false
}

// PriceLevel is a single price/size pair on one side of the ladder.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// RunnerBook holds live prices for one selection. Back and Lay are ordered
// best-to-worst. Fields the successful tier did not request stay empty.
type RunnerBook struct {
	SelectionID     string       `json:"selection_id"`
	Status          string       `json:"status,omitempty"`
	TotalMatched    *float64     `json:"total_matched,omitempty"`
	LastPriceTraded *float64     `json:"last_price_traded,omitempty"`
	Back            []PriceLevel `json:"back,omitempty"`
	Lay             []PriceLevel `json:"lay,omitempty"`
}

// BestBack returns the top back level, if any.
func (r RunnerBook) BestBack() (PriceLevel, bool) {
	if len(r.Back) == 0 {
		return PriceLevel{}, false
	}
	return r.Back[0], true
}

// BestLay returns the top lay level, if any.
func (r RunnerBook) BestLay() (PriceLevel, bool) {
	if len(r.Lay) == 0 {
		return PriceLevel{}, false
	}
	return r.Lay[0], true
}

// MarketBook is the order book for one market at the tier that succeeded.
type MarketBook struct {
	MarketID     string                `json:"market_id"`
	Tier         DetailTier            `json:"detail_tier"`
	Status       string                `json:"status,omitempty"`
	InPlay       bool                  `json:"in_play,omitempty"`
	TotalMatched *float64              `json:"total_matched,omitempty"`
	Runners      map[string]RunnerBook `json:"runners"`
}

// EmptyBook is the degraded result used when no tier produced data.
func EmptyBook(marketID string) MarketBook {
	return MarketBook{
		MarketID: marketID,
		Tier:     TierNone,
		Runners:  map[string]RunnerBook{},
	}
}

// EnrichmentRecord carries optional race-card data for a market.
type EnrichmentRecord struct {
	MarketID string                      `json:"market_id"`
	Course   string                      `json:"course,omitempty"`
	Distance string                      `json:"distance,omitempty"`
	Going    string                      `json:"going,omitempty"`
	RaceType string                      `json:"race_type,omitempty"`
	Fields   map[string]string           `json:"fields,omitempty"`
	Runners  map[string]RunnerEnrichment `json:"runners,omitempty"`
}

// RunnerEnrichment is the race-card entry for a single selection.
type RunnerEnrichment struct {
	SelectionID string            `json:"selection_id"`
	Jockey      string            `json:"jockey,omitempty"`
	Trainer     string            `json:"trainer,omitempty"`
	Form        string            `json:"form,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// MarketFilter narrows catalogue discovery.
type MarketFilter struct {
	EventTypeIDs    []string
	MarketTypeCodes []string
	CountryCodes    []string
	InPlayOnly      bool
	From            time.Time
	To              time.Time
	MaxResults      int
	Sort            string
}

// EventType is a sport as listed by the exchange.
type EventType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MarketCount int    `json:"market_count"`
}

// Event is a fixture as listed by the exchange.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"country_code,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	OpenDate    time.Time `json:"open_date"`
	MarketCount int       `json:"market_count"`
}

// Float returns a pointer to v for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
