package pricer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tintran1995/webtrack/internal/domain"
)

// StaticPricer serves quotes from a fixed in-memory table. It backs the
// offline/simulation mode and tests, where real market data is not wanted.
type StaticPricer struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

// NewStaticPricer creates a pricer over the given symbol->price table.
func NewStaticPricer(prices map[string]decimal.Decimal) *StaticPricer {
	quotes := make(map[string]domain.Quote, len(prices))
	for symbol, price := range prices {
		symbol = domain.NormalizeSymbol(symbol)
		quotes[symbol] = domain.Quote{Symbol: symbol, Name: symbol, Price: price}
	}
	return &StaticPricer{quotes: quotes}
}

// Lookup returns the table entry for the symbol.
func (p *StaticPricer) Lookup(_ context.Context, symbol string) (domain.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q, ok := p.quotes[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "symbol %s", symbol)
	}
	return q, nil
}

// SetPrice updates (or adds) one symbol, simulating market drift.
func (p *StaticPricer) SetPrice(symbol string, price decimal.Decimal) {
	symbol = domain.NormalizeSymbol(symbol)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = domain.Quote{Symbol: symbol, Name: symbol, Price: price}
}

// Delist removes a symbol, simulating a delisted but still-held stock.
func (p *StaticPricer) Delist(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.quotes, domain.NormalizeSymbol(symbol))
}
