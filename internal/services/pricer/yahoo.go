package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tintran1995/webtrack/internal/domain"
)

const (
	yahooBaseURL  = "https://query2.finance.yahoo.com"
	yahooCacheTTL = 60 * time.Second
	yahooTimeout  = 8 * time.Second
)

type cachedQuote struct {
	quote   domain.Quote
	fetched time.Time
}

// YahooPricer fetches quotes from the Yahoo Finance v8 chart API with a
// short TTL cache to stay under rate limits.
type YahooPricer struct {
	baseURL string
	cli     *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cachedQuote
}

// NewYahooPricer creates a Yahoo Finance quote provider.
func NewYahooPricer() *YahooPricer {
	return &YahooPricer{
		baseURL: yahooBaseURL,
		cli:     &http.Client{Timeout: yahooTimeout},
		ttl:     yahooCacheTTL,
		cache:   make(map[string]cachedQuote),
	}
}

// NewYahooPricerWithBaseURL creates a provider against a custom endpoint.
func NewYahooPricerWithBaseURL(baseURL string) *YahooPricer {
	p := NewYahooPricer()
	p.baseURL = baseURL
	return p
}

// Lookup resolves the symbol via the chart endpoint.
func (p *YahooPricer) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, errors.Wrap(domain.ErrUnknownSymbol, "empty symbol")
	}

	p.mu.RLock()
	if c, ok := p.cache[symbol]; ok && time.Since(c.fetched) < p.ttl {
		p.mu.RUnlock()
		return c.quote, nil
	}
	p.mu.RUnlock()

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", p.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "build yahoo request")
	}
	req.Header.Set("User-Agent", "webtrack/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "yahoo request for %s: %v", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "symbol %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "yahoo http %d for %s", resp.StatusCode, symbol)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					ShortName          string  `json:"shortName"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error any `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "decode yahoo response for %s: %v", symbol, err)
	}
	if len(raw.Chart.Result) == 0 {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "symbol %s", symbol)
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice

	// fall back to the last non-zero close when meta is missing
	if price <= 0 && len(r.Timestamp) > 0 && len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				price = closes[i]
				break
			}
		}
	}
	if price <= 0 {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "yahoo returned no price for %s", symbol)
	}

	name := r.Meta.ShortName
	if name == "" {
		name = symbol
	}

	quote := domain.Quote{Symbol: symbol, Name: name, Price: decimal.NewFromFloat(price)}

	p.mu.Lock()
	p.cache[symbol] = cachedQuote{quote: quote, fetched: time.Now()}
	p.mu.Unlock()

	return quote, nil
}
