package racecard

import (
	"context"
	"errors"
	"strings"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Chain consults sources in order and returns the first record found. Source
// errors are collected; they only surface when no source had a record.
type Chain []markets.EnrichmentSource

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		if s != nil {
			names = append(names, s.Name())
		}
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c Chain) Lookup(ctx context.Context, marketID string) (*markets.EnrichmentRecord, error) {
	var errs []error
	for _, s := range c {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.Lookup(ctx, marketID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, errors.Join(errs...)
}
