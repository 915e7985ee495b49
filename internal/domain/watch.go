package domain

import "github.com/shopspring/decimal"

// WatchEntry is one watchlist row: a symbol the user monitors and the
// last price observed for it. Watch entries have no ledger coupling.
type WatchEntry struct {
	UserID string          `json:"user_id"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}
