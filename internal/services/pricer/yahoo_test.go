package pricer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tintran1995/webtrack/internal/domain"
)

func yahooBody(symbol, name string, price float64) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q,"shortName":%q,"regularMarketPrice":%g}}],"error":null}}`,
		symbol, name, price)
}

func TestYahooPricer_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		fmt.Fprint(w, yahooBody("AAPL", "Apple Inc.", 182.5))
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	q, err := p.Lookup(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.True(t, q.Price.Equal(decimal.NewFromFloat(182.5)))
}

func TestYahooPricer_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	_, err := p.Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
}

func TestYahooPricer_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	_, err := p.Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
}

func TestYahooPricer_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	_, err := p.Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestYahooPricer_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, yahooBody("AAPL", "Apple Inc.", 182.5))
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	_, err := p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second lookup should hit the cache")
}

func TestYahooPricer_FallsBackToLastClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1,2,3],"indicators":{"quote":[{"close":[10.5,11.25,0]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	p := NewYahooPricerWithBaseURL(srv.URL)

	q, err := p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromFloat(11.25)), "last non-zero close, got %s", q.Price.String())
}
