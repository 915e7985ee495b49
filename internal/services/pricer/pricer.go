// Package pricer provides live quote lookups against external market
// data providers. Providers are untrusted: slow, rate limited, or down.
// Implementations map "symbol does not exist" to domain.ErrUnknownSymbol
// and transport failures or timeouts to domain.ErrQuoteUnavailable.
package pricer

import (
	"context"

	"github.com/tintran1995/webtrack/internal/domain"
)

// Pricer resolves a ticker symbol to a live quote.
type Pricer interface {
	Lookup(ctx context.Context, symbol string) (domain.Quote, error)
}
