package domain

import "github.com/shopspring/decimal"

// PositionValue is one row of a portfolio valuation. When the quote
// provider cannot price a held symbol the row is kept with
// Available=false instead of being silently zeroed, and its value is
// excluded from the grand total.
type PositionValue struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name,omitempty"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Value     decimal.Decimal `json:"value"`
	Available bool            `json:"available"`
}

// Valuation is the full portfolio view: cash plus one row per open
// position and the grand total over cash and all available rows.
type Valuation struct {
	Cash       decimal.Decimal `json:"cash"`
	Rows       []PositionValue `json:"rows"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}
