package exchange

import (
	"errors"
	"net/http"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// rateLimitCodes are exchange error codes that mean "slow down".
var rateLimitCodes = map[string]bool{
	"TOO_MANY_REQUESTS": true,
	"SERVICE_BUSY":      true,
	"TIMEOUT_ERROR":     true,
}

// classify maps a call error to one of the markets failure kinds.
func classify(err error) error {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusTooManyRequests || rateLimitCodes[apiErr.Code] {
			return markets.ErrRateLimited
		}
		if apiErr.Code != "" || apiErr.StatusCode < 500 {
			return markets.ErrRejected
		}
		return markets.ErrTransport
	case errors.Is(err, errDecode):
		return markets.ErrMalformed
	default:
		return markets.ErrTransport
	}
}
