package watchlist

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/services/pricer"
	watchstore "github.com/tintran1995/webtrack/internal/storage/watchlist"
)

func newTestService(t *testing.T, quotes pricer.Pricer) *Service {
	t.Helper()
	store, err := watchstore.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewService(store, quotes, zap.NewNop())
}

func TestService_Add(t *testing.T) {
	quotes := pricer.NewStaticPricer(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(180)})
	svc := newTestService(t, quotes)

	entry, err := svc.Add(context.Background(), "alice", " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", entry.Symbol)
	assert.True(t, entry.Price.Equal(decimal.NewFromInt(180)))

	_, err = svc.Add(context.Background(), "alice", "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
}

func TestService_List_RefreshesPrices(t *testing.T) {
	quotes := pricer.NewStaticPricer(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(180),
		"MSFT": decimal.NewFromInt(410),
	})
	svc := newTestService(t, quotes)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "MSFT")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "alice", "AAPL")
	require.NoError(t, err)

	quotes.SetPrice("AAPL", decimal.NewFromInt(200))

	entries, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAPL", entries[0].Symbol, "sorted by symbol")
	assert.True(t, entries[0].Price.Equal(decimal.NewFromInt(200)), "price refreshed")
	assert.Equal(t, "MSFT", entries[1].Symbol)
}

func TestService_List_KeepsLastPriceWhenProviderFails(t *testing.T) {
	quotes := pricer.NewStaticPricer(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(180)})
	svc := newTestService(t, quotes)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "AAPL")
	require.NoError(t, err)

	quotes.Delist("AAPL")

	entries, err := svc.List(ctx, "alice")
	require.NoError(t, err, "a failed refresh must not fail the listing")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Price.Equal(decimal.NewFromInt(180)), "last observed price retained")
}
