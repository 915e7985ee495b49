package domain

import "github.com/shopspring/decimal"

// Account holds a user's cash balance. Cash never goes negative; only
// the trade executor mutates it.
type Account struct {
	ID   string          `json:"id"`
	Cash decimal.Decimal `json:"cash"`
}
