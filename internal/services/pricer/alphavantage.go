package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tintran1995/webtrack/internal/domain"
)

const (
	alphaVantageBaseURL = "https://www.alphavantage.co"
	alphaVantageTTL     = 60 * time.Second
	alphaVantageTimeout = 8 * time.Second
)

// ErrAPIKeyMissing is returned when the Alpha Vantage key env is not set.
var ErrAPIKeyMissing = errors.New("ALPHAVANTAGE_API_KEY not set")

// AlphaVantagePricer fetches quotes from the Alpha Vantage GLOBAL_QUOTE
// endpoint. Responses are cached briefly because the free tier is
// heavily rate limited.
type AlphaVantagePricer struct {
	apiKey  string
	baseURL string
	cli     *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cachedQuote
}

// NewAlphaVantagePricerFromEnv reads the API key from the environment.
func NewAlphaVantagePricerFromEnv() (*AlphaVantagePricer, error) {
	key := strings.TrimSpace(os.Getenv("ALPHAVANTAGE_API_KEY"))
	if key == "" {
		return nil, ErrAPIKeyMissing
	}
	return &AlphaVantagePricer{
		apiKey:  key,
		baseURL: alphaVantageBaseURL,
		cli:     &http.Client{Timeout: alphaVantageTimeout},
		ttl:     alphaVantageTTL,
		cache:   make(map[string]cachedQuote),
	}, nil
}

// Lookup resolves the symbol via GLOBAL_QUOTE.
func (p *AlphaVantagePricer) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
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

	url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", p.baseURL, symbol, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, errors.Wrap(err, "build alphavantage request")
	}
	req.Header.Set("User-Agent", "webtrack/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "alphavantage request for %s: %v", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "alphavantage http %d for %s", resp.StatusCode, symbol)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "decode alphavantage response for %s: %v", symbol, err)
	}
	// the free tier signals throttling with Note/Information payloads
	if _, ok := raw["Note"]; ok {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "alphavantage rate limited for %s", symbol)
	}
	if _, ok := raw["Information"]; ok {
		return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "alphavantage rate limited for %s", symbol)
	}

	gq, ok := raw["Global Quote"].(map[string]any)
	if !ok || len(gq) == 0 {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "symbol %s", symbol)
	}

	priceStr, _ := gq["05. price"].(string)
	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return domain.Quote{}, errors.Wrapf(domain.ErrUnknownSymbol, "alphavantage returned no price for %s", symbol)
	}

	quote := domain.Quote{Symbol: symbol, Name: symbol, Price: price}

	p.mu.Lock()
	p.cache[symbol] = cachedQuote{quote: quote, fetched: time.Now()}
	p.mu.Unlock()

	return quote, nil
}
