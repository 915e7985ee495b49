package domain

import "github.com/shopspring/decimal"

// Position is the derived net holding of one symbol for one user:
// the signed sum of all transaction share deltas. It is never stored.
type Position struct {
	Symbol string
	Shares decimal.Decimal
}

// IsOpen reports whether the position counts as held (net > 0).
func (p Position) IsOpen() bool {
	return p.Shares.IsPositive()
}

// MarketValue returns the position value at the given per-share price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Shares.Mul(price)
}
