package exchange

import (
	"context"
	"errors"
	"strconv"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// FetchBook requests the order book for one market at the given tier. Errors
// are *markets.FetchError values classified for the tier fallback.
func (c *Client) FetchBook(ctx context.Context, marketID string, spec markets.TierSpec) (markets.MarketBook, error) {
	req := bookRequest{
		MarketIDs:       []string{marketID},
		PriceProjection: projectionFor(spec),
	}

	var out []marketBook
	if err := c.call(ctx, "listMarketBook", req, &out); err != nil {
		return markets.MarketBook{}, markets.NewFetchError(classify(err), marketID, spec.Tier, err)
	}

	for _, mb := range out {
		if mb.MarketID == marketID {
			return spec.Clamp(normalizeBook(mb)), nil
		}
	}
	return markets.MarketBook{}, markets.NewFetchError(markets.ErrMalformed, marketID, spec.Tier,
		errors.New("market missing from book response"))
}

func projectionFor(spec markets.TierSpec) priceProjection {
	depth := spec.Depth
	if depth <= 0 {
		depth = 1
	}
	p := priceProjection{
		PriceData:  []string{"EX_BEST_OFFERS"},
		Virtualise: true,
		Overrides:  &bestOffersOverrides{BestPricesDepth: depth},
	}
	if spec.TradedVolume {
		p.PriceData = append(p.PriceData, "EX_TRADED")
	}
	return p
}

func normalizeBook(mb marketBook) markets.MarketBook {
	book := markets.MarketBook{
		MarketID:     mb.MarketID,
		Status:       mb.Status,
		InPlay:       mb.InPlay,
		TotalMatched: mb.TotalMatched,
		Runners:      make(map[string]markets.RunnerBook, len(mb.Runners)),
	}
	for _, r := range mb.Runners {
		id := strconv.FormatInt(r.SelectionID, 10)
		book.Runners[id] = markets.RunnerBook{
			SelectionID:     id,
			Status:          r.Status,
			TotalMatched:    r.TotalMatched,
			LastPriceTraded: r.LastPriceTraded,
			Back:            convertLevels(r.Ex.AvailableToBack),
			Lay:             convertLevels(r.Ex.AvailableToLay),
		}
	}
	return book
}

func convertLevels(levels []priceSize) []markets.PriceLevel {
	if len(levels) == 0 {
		return nil
	}
	out := make([]markets.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Price <= 0 {
			continue
		}
		out = append(out, markets.PriceLevel{Price: lvl.Price, Size: lvl.Size})
	}
	return out
}

type bookRequest struct {
	MarketIDs       []string        `json:"marketIds"`
	PriceProjection priceProjection `json:"priceProjection"`
}

type priceProjection struct {
	PriceData  []string             `json:"priceData"`
	Overrides  *bestOffersOverrides `json:"exBestOffersOverrides,omitempty"`
	Virtualise bool                 `json:"virtualise"`
}

type bestOffersOverrides struct {
	BestPricesDepth int `json:"bestPricesDepth"`
}

type marketBook struct {
	MarketID     string       `json:"marketId"`
	Status       string       `json:"status"`
	InPlay       bool         `json:"inplay"`
	TotalMatched *float64     `json:"totalMatched"`
	Runners      []runnerBook `json:"runners"`
}

type runnerBook struct {
	SelectionID     int64    `json:"selectionId"`
	Status          string   `json:"status"`
	LastPriceTraded *float64 `json:"lastPriceTraded"`
	TotalMatched    *float64 `json:"totalMatched"`
	Ex              struct {
		AvailableToBack []priceSize `json:"availableToBack"`
		AvailableToLay  []priceSize `json:"availableToLay"`
	} `json:"ex"`
}

type priceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}
