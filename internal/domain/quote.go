package domain

import "github.com/shopspring/decimal"

// Quote is a live price fetched from an external provider. It has no
// stored lifecycle; every valuation or trade decision fetches fresh.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}
