package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tintran1995/webtrack/internal/domain"
)

// BybitPricer fetches spot ticker prices from the Bybit V5 API.
type BybitPricer struct {
	client *bybit.Client
}

// NewBybitPricer creates a Bybit quote provider.
func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

// Lookup resolves the symbol via the spot tickers endpoint.
func (p *BybitPricer) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, errors.Wrap(domain.ErrUnknownSymbol, "empty symbol")
	}

	sym := bybit.SymbolV5(symbol)
	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "bybit request for %s: %v", symbol, err)
	}
	if len(result.Result.Spot.List) == 0 {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "bybit returned empty prices for %s", symbol)
	}

	price, err := decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "parse bybit price for %s: %v", symbol, err)
	}

	return domain.Quote{Symbol: symbol, Name: symbol, Price: price}, nil
}
