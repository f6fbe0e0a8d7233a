package present

import (
	"context"
	"errors"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Multi fans snapshots out to every presenter. One failing presenter does
// not stop the rest.
type Multi []markets.Presenter

func (m Multi) Present(ctx context.Context, snapshots []markets.MarketSnapshot) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Present(ctx, snapshots); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
