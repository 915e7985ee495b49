// Package clients builds API clients for external market data providers.
package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient builds a Binance API client. Price lookups work
// without credentials, so both keys may be empty.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
