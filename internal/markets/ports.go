package markets

import "context"

// Directory resolves a filter into catalogue descriptors, in exchange order.
type Directory interface {
	Discover(ctx context.Context, filter MarketFilter) ([]MarketDescriptor, error)
}

// BookSource fetches a market's order book at one tier. Failures should be
// *FetchError values so the fetcher can decide whether to fall back.
type BookSource interface {
	FetchBook(ctx context.Context, marketID string, spec TierSpec) (MarketBook, error)
}

// EnrichmentSource looks up race-card data. A nil record with a nil error
// means the source has nothing for the market.
type EnrichmentSource interface {
	Name() string
	Lookup(ctx context.Context, marketID string) (*EnrichmentRecord, error)
}

// Presenter consumes the snapshots of a finished run.
type Presenter interface {
	Present(ctx context.Context, snapshots []MarketSnapshot) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(context.Context, []MarketSnapshot) error

func (f PresenterFunc) Present(ctx context.Context, snapshots []MarketSnapshot) error {
	return f(ctx, snapshots)
}
