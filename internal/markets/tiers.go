package markets

import (
	"fmt"
	"strings"
)

// DetailTier is the richness of a book request. The zero value is TierNone.
type DetailTier int

const (
	TierNone DetailTier = iota
	TierLow
	TierMedium
	TierHigh
)

func (t DetailTier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

func (t DetailTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DetailTier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier accepts the tier name in any case.
func ParseTier(s string) (DetailTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return TierNone, nil
	case "LOW":
		return TierLow, nil
	case "MEDIUM":
		return TierMedium, nil
	case "HIGH":
		return TierHigh, nil
	}
	return TierNone, fmt.Errorf("unknown detail tier %q", s)
}

// MaxHighDepth is the deepest ladder a HIGH request may return.
const MaxHighDepth = 3

// TierSpec describes one book request: how many price levels per side and
// whether traded volume is requested.
type TierSpec struct {
	Tier         DetailTier
	Depth        int
	TradedVolume bool
}

// DefaultTiers returns the fallback ladder from richest to cheapest.
func DefaultTiers() []TierSpec {
	return []TierSpec{
		{Tier: TierHigh, Depth: MaxHighDepth, TradedVolume: true},
		{Tier: TierMedium, Depth: 1, TradedVolume: true},
		{Tier: TierLow, Depth: 1, TradedVolume: false},
	}
}

// SpecFor returns the canonical spec for a tier.
func SpecFor(t DetailTier) (TierSpec, bool) {
	for _, s := range DefaultTiers() {
		if s.Tier == t {
			return s, true
		}
	}
	return TierSpec{}, false
}

// ParseTiers turns "high,medium,low" into specs, keeping the given order.
func ParseTiers(raw string) ([]TierSpec, error) {
	var out []TierSpec
	seen := make(map[DetailTier]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tier, err := ParseTier(part)
		if err != nil {
			return nil, err
		}
		if tier == TierNone {
			return nil, fmt.Errorf("tier NONE cannot be requested")
		}
		if seen[tier] {
			return nil, fmt.Errorf("tier %s listed twice", tier)
		}
		seen[tier] = true
		spec, _ := SpecFor(tier)
		out = append(out, spec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tiers configured")
	}
	return out, nil
}

func (s TierSpec) String() string {
	return fmt.Sprintf("%s(depth=%d,volume=%t)", s.Tier, s.Depth, s.TradedVolume)
}

// Clamp tags book with this tier and strips anything the tier does not
// allow: levels beyond the requested depth and traded volume when it was not
// requested. Upstream sometimes returns more than asked for.
func (s TierSpec) Clamp(book MarketBook) MarketBook {
	out := MarketBook{
		MarketID: book.MarketID,
		Tier:     s.Tier,
		Status:   book.Status,
		InPlay:   book.InPlay,
		Runners:  make(map[string]RunnerBook, len(book.Runners)),
	}
	if s.Tier == TierNone {
		return out
	}
	depth := s.Depth
	if depth <= 0 {
		depth = 1
	}
	if depth > MaxHighDepth {
		depth = MaxHighDepth
	}
	if s.TradedVolume {
		out.TotalMatched = book.TotalMatched
	}
	for id, rb := range book.Runners {
		clamped := RunnerBook{
			SelectionID: rb.SelectionID,
			Status:      rb.Status,
			Back:        truncate(rb.Back, depth),
			Lay:         truncate(rb.Lay, depth),
		}
		if clamped.SelectionID == "" {
			clamped.SelectionID = id
		}
		if s.TradedVolume {
			clamped.TotalMatched = rb.TotalMatched
			clamped.LastPriceTraded = rb.LastPriceTraded
		}
		out.Runners[id] = clamped
	}
	return out
}

func truncate(levels []PriceLevel, depth int) []PriceLevel {
	if len(levels) == 0 {
		return nil
	}
	if len(levels) > depth {
		levels = levels[:depth]
	}
	out := make([]PriceLevel, len(levels))
	copy(out, levels)
	return out
}
