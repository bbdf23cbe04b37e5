package market

import (
	"context"
	"errors"
)

// ErrExtractionFailed marks any failure to obtain a usable quote set from an
// upstream provider: transport errors, timeouts, non-2xx responses and bodies
// that do not decode.
var ErrExtractionFailed = errors.New("market: extraction failed")

// Provider fetches current quotes for a set of assets.
type Provider interface {
	// Name returns the configured provider name.
	Name() string
	// FetchQuotes returns one entry per asset the upstream knows about, in
	// upstream order. Metric values are quoted in vsCurrency.
	FetchQuotes(ctx context.Context, ids []string, vsCurrency string) (RawQuote, error)
}
