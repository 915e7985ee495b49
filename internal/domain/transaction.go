// Package domain defines the core data structures of the paper-trading ledger.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger row. Shares are signed: positive
// means acquired, negative means disposed. Price is the per-share price
// at execution time and is never refreshed afterwards.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"ts"`
}

// NewTransaction builds a ledger row, normalizing the symbol to upper case.
func NewTransaction(userID, symbol string, shares, price decimal.Decimal, ts time.Time) (Transaction, error) {
	symbol = NormalizeSymbol(symbol)
	if userID == "" {
		return Transaction{}, errors.New("transaction user id is required")
	}
	if symbol == "" {
		return Transaction{}, errors.New("transaction symbol is required")
	}
	if shares.IsZero() {
		return Transaction{}, errors.Wrap(ErrInvalidQuantity, "transaction shares must be non-zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, errors.New("transaction price must be positive")
	}

	return Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Timestamp: ts,
	}, nil
}

// Cost returns the absolute cash amount the row moved (|shares| * price).
func (t Transaction) Cost() decimal.Decimal {
	return t.Shares.Abs().Mul(t.Price)
}

// IsBuy reports whether the row acquired shares.
func (t Transaction) IsBuy() bool {
	return t.Shares.IsPositive()
}

// NormalizeSymbol trims whitespace and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
