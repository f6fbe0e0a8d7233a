package racecard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

const (
	defaultBaseURL = "https://www.betfair.com/rest/v2"
	defaultTimeout = 10 * time.Second
)

// Client fetches race cards for horse-racing markets.
type Client struct {
	baseURL    string
	appKey     string
	httpClient *http.Client
}

// Config provides optional overrides.
type Config struct {
	BaseURL    string
	AppKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient builds a configured race-card client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		appKey:     cfg.AppKey,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string {
	return "racecard-api"
}

// Lookup returns the race card for marketID, or nil when the service has none.
func (c *Client) Lookup(ctx context.Context, marketID string) (*markets.EnrichmentRecord, error) {
	params := url.Values{}
	params.Set("dataType", "RACECARD")
	params.Set("marketId", marketID)
	u := fmt.Sprintf("%s/raceCard?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.appKey != "" {
		req.Header.Set("X-Application", c.appKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("race card %s: status %d: %s", marketID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cards []raceCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decode race card %s: %w", marketID, err)
	}
	for _, card := range cards {
		if card.MarketID == "" || card.MarketID == marketID {
			return card.record(marketID), nil
		}
	}
	return nil, nil
}

type raceCard struct {
	MarketID string `json:"marketId"`
	Race     struct {
		Course struct {
			Name string `json:"name"`
		} `json:"course"`
		Distance  json.Number `json:"distance"`
		Going     string      `json:"going"`
		RaceClass json.Number `json:"raceClass"`
		RaceTitle string      `json:"raceTitle"`
		RaceType  struct {
			Full string `json:"full"`
		} `json:"raceType"`
	} `json:"race"`
	Runners []struct {
		SelectionID int64  `json:"selectionId"`
		Name        string `json:"name"`
		Jockey      struct {
			Name string `json:"name"`
		} `json:"jockey"`
		Trainer struct {
			Name string `json:"name"`
		} `json:"trainer"`
		RecentForm string      `json:"recentForm"`
		Age        json.Number `json:"age"`
		Weight     struct {
			Pounds json.Number `json:"pounds"`
		} `json:"weight"`
		OfficialRating json.Number `json:"officialRating"`
	} `json:"runners"`
}

func (c raceCard) record(marketID string) *markets.EnrichmentRecord {
	rec := &markets.EnrichmentRecord{
		MarketID: marketID,
		Course:   c.Race.Course.Name,
		Distance: c.Race.Distance.String(),
		Going:    c.Race.Going,
		RaceType: c.Race.RaceType.Full,
		Fields:   compact(map[string]string{"race_title": c.Race.RaceTitle, "race_class": c.Race.RaceClass.String()}),
		Runners:  make(map[string]markets.RunnerEnrichment, len(c.Runners)),
	}
	for _, r := range c.Runners {
		id := strconv.FormatInt(r.SelectionID, 10)
		rec.Runners[id] = markets.RunnerEnrichment{
			SelectionID: id,
			Jockey:      r.Jockey.Name,
			Trainer:     r.Trainer.Name,
			Form:        r.RecentForm,
			Fields: compact(map[string]string{
				"age":             r.Age.String(),
				"weight_lbs":      r.Weight.Pounds.String(),
				"official_rating": r.OfficialRating.String(),
			}),
		}
	}
	return rec
}

func compact(fields map[string]string) map[string]string {
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
