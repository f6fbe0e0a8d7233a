package markets

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscovery marks a catalogue failure. It is the only failure that ends a run.
	ErrDiscovery = errors.New("market discovery failed")

	ErrRateLimited = errors.New("rate limited")
	ErrRejected    = errors.New("request rejected")
	ErrMalformed   = errors.New("malformed response")
	ErrTransport   = errors.New("transport failure")
)

// FetchError is returned by book sources. Kind is one of the Err* sentinels
// above so callers can branch with errors.Is.
type FetchError struct {
	Kind     error
	MarketID string
	Tier     DetailTier
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s at %s: %v", e.MarketID, e.Tier, e.Kind)
	}
	return fmt.Sprintf("fetch %s at %s: %v: %v", e.MarketID, e.Tier, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFetchError builds a classified fetch error.
func NewFetchError(kind error, marketID string, tier DetailTier, err error) *FetchError {
	return &FetchError{Kind: kind, MarketID: marketID, Tier: tier, Err: err}
}

// ShouldFallback reports whether err allows retrying at a cheaper tier.
// Transport failures and anything unclassified do not.
func ShouldFallback(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrRejected) || errors.Is(err, ErrMalformed)
}
