package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tintran1995/webtrack/internal/domain"
)

// BinancePricer fetches last prices from the Binance public API.
// Symbols are exchange pairs such as BTCUSDT; no API key is needed
// for price lookups.
type BinancePricer struct {
	client *binance.Client
}

// NewBinancePricer creates a Binance quote provider.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

// Lookup resolves the symbol via the list-prices endpoint.
func (p *BinancePricer) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, errors.Wrap(domain.ErrUnknownSymbol, "empty symbol")
	}

	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "binance request for %s: %v", symbol, err)
	}
	if len(prices) == 0 {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "binance returned empty prices for %s", symbol)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "parse binance price for %s: %v", symbol, err)
	}

	return domain.Quote{Symbol: symbol, Name: symbol, Price: price}, nil
}
