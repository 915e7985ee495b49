package clients

import (
	"github.com/hirokisan/bybit/v2"
)

// NewBybitClient builds a Bybit V5 API client. Spot ticker lookups are
// public, so credentials are optional.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	if apiKey == "" && apiSecret == "" {
		return bybit.NewClient()
	}
	return bybit.NewClient().WithAuth(apiKey, apiSecret)
}
