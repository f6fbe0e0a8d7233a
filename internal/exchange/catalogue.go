package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

const (
	defaultSort       = "FIRST_TO_START"
	defaultMaxResults = 15
	maxCatalogueLimit = 1000
)

var catalogueProjection = []string{
	"EVENT",
	"MARKET_START_TIME",
	"RUNNER_DESCRIPTION",
	"MARKET_DESCRIPTION",
	"COMPETITION",
}

// Discover lists market catalogues for the filter. Runner order and names are
// kept exactly as returned.
func (c *Client) Discover(ctx context.Context, filter markets.MarketFilter) ([]markets.MarketDescriptor, error) {
	maxResults := filter.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxCatalogueLimit {
		maxResults = maxCatalogueLimit
	}
	sort := filter.Sort
	if sort == "" {
		sort = defaultSort
	}

	req := catalogueRequest{
		Filter:           toMarketFilter(filter),
		MarketProjection: catalogueProjection,
		MaxResults:       maxResults,
		Sort:             sort,
	}
	var out []marketCatalogue
	if err := c.call(ctx, "listMarketCatalogue", req, &out); err != nil {
		return nil, fmt.Errorf("%w: list market catalogue: %w", markets.ErrDiscovery, err)
	}

	descriptors := make([]markets.MarketDescriptor, 0, len(out))
	seen := make(map[string]bool, len(out))
	for _, mc := range out {
		if mc.MarketID == "" || seen[mc.MarketID] {
			continue
		}
		seen[mc.MarketID] = true
		descriptors = append(descriptors, normalizeCatalogue(mc))
	}
	return descriptors, nil
}

// ListEventTypes returns the sports that have markets matching filter.
func (c *Client) ListEventTypes(ctx context.Context, filter markets.MarketFilter) ([]markets.EventType, error) {
	var out []eventTypeResult
	if err := c.call(ctx, "listEventTypes", filterRequest{Filter: toMarketFilter(filter)}, &out); err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	types := make([]markets.EventType, 0, len(out))
	for _, et := range out {
		types = append(types, markets.EventType{
			ID:          et.EventType.ID,
			Name:        et.EventType.Name,
			MarketCount: et.MarketCount,
		})
	}
	return types, nil
}

// ListEvents returns the events that have markets matching filter.
func (c *Client) ListEvents(ctx context.Context, filter markets.MarketFilter) ([]markets.Event, error) {
	var out []eventResult
	if err := c.call(ctx, "listEvents", filterRequest{Filter: toMarketFilter(filter)}, &out); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]markets.Event, 0, len(out))
	for _, er := range out {
		ev := markets.Event{
			ID:          er.Event.ID,
			Name:        er.Event.Name,
			CountryCode: er.Event.CountryCode,
			Timezone:    er.Event.Timezone,
			Venue:       er.Event.Venue,
			MarketCount: er.MarketCount,
		}
		if er.Event.OpenDate != "" {
			if ts, err := time.Parse(time.RFC3339, er.Event.OpenDate); err == nil {
				ev.OpenDate = ts
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

func normalizeCatalogue(mc marketCatalogue) markets.MarketDescriptor {
	var start time.Time
	if mc.MarketStartTime != "" {
		if ts, err := time.Parse(time.RFC3339, mc.MarketStartTime); err == nil {
			start = ts
		}
	}
	if start.IsZero() && mc.Event.OpenDate != "" {
		if ts, err := time.Parse(time.RFC3339, mc.Event.OpenDate); err == nil {
			start = ts
		}
	}

	d := markets.MarketDescriptor{
		MarketID:    mc.MarketID,
		MarketName:  mc.MarketName,
		EventID:     mc.Event.ID,
		EventName:   mc.Event.Name,
		CountryCode: mc.Event.CountryCode,
		Venue:       mc.Event.Venue,
		StartTime:   start,
		Runners:     make([]markets.RunnerDescriptor, 0, len(mc.Runners)),
	}
	if mc.TotalMatched != nil {
		d.TotalMatched = markets.Float(*mc.TotalMatched)
	}
	for _, r := range mc.Runners {
		d.Runners = append(d.Runners, markets.RunnerDescriptor{
			SelectionID:  strconv.FormatInt(r.SelectionID, 10),
			Name:         r.RunnerName,
			SortPriority: r.SortPriority,
			Handicap:     r.Handicap,
		})
	}
	return d
}

func toMarketFilter(f markets.MarketFilter) marketFilter {
	out := marketFilter{
		EventTypeIDs:    f.EventTypeIDs,
		MarketTypeCodes: f.MarketTypeCodes,
		MarketCountries: f.CountryCodes,
	}
	if f.InPlayOnly {
		inPlay := true
		out.InPlayOnly = &inPlay
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		out.MarketStartTime = &timeRange{}
		if !f.From.IsZero() {
			out.MarketStartTime.From = f.From.UTC().Format(time.RFC3339)
		}
		if !f.To.IsZero() {
			out.MarketStartTime.To = f.To.UTC().Format(time.RFC3339)
		}
	}
	return out
}

type marketFilter struct {
	EventTypeIDs    []string   `json:"eventTypeIds,omitempty"`
	MarketTypeCodes []string   `json:"marketTypeCodes,omitempty"`
	MarketCountries []string   `json:"marketCountries,omitempty"`
	InPlayOnly      *bool      `json:"inPlayOnly,omitempty"`
	MarketStartTime *timeRange `json:"marketStartTime,omitempty"`
}

type timeRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type filterRequest struct {
	Filter marketFilter `json:"filter"`
}

type catalogueRequest struct {
	Filter           marketFilter `json:"filter"`
	MarketProjection []string     `json:"marketProjection"`
	MaxResults       int          `json:"maxResults"`
	Sort             string       `json:"sort"`
}

type marketCatalogue struct {
	MarketID        string          `json:"marketId"`
	MarketName      string          `json:"marketName"`
	MarketStartTime string          `json:"marketStartTime"`
	TotalMatched    *float64        `json:"totalMatched"`
	Runners         []runnerCatalog `json:"runners"`
	Event           event           `json:"event"`
}

type runnerCatalog struct {
	SelectionID  int64   `json:"selectionId"`
	RunnerName   string  `json:"runnerName"`
	Handicap     float64 `json:"handicap"`
	SortPriority int     `json:"sortPriority"`
}

type event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	Timezone    string `json:"timezone"`
	Venue       string `json:"venue"`
	OpenDate    string `json:"openDate"`
}

type eventResult struct {
	Event       event `json:"event"`
	MarketCount int   `json:"marketCount"`
}

type eventTypeResult struct {
	EventType struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"eventType"`
	MarketCount int `json:"marketCount"`
}
