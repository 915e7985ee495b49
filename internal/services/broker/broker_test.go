package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/services/portfolio"
	"github.com/tintran1995/webtrack/internal/services/pricer"
	"github.com/tintran1995/webtrack/internal/storage/ledger"
)

type fixture struct {
	store  *ledger.Store
	quotes *pricer.StaticPricer
	broker *Service
}

func newFixture(t *testing.T, cash float64, prices map[string]decimal.Decimal) *fixture {
	t.Helper()

	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateAccount("alice", decimal.NewFromFloat(cash)))

	quotes := pricer.NewStaticPricer(prices)
	positions := portfolio.NewService(store, quotes, zap.NewNop())
	return &fixture{
		store:  store,
		quotes: quotes,
		broker: NewService(store, positions, quotes, time.Second, zap.NewNop()),
	}
}

func (f *fixture) cash(t *testing.T) decimal.Decimal {
	t.Helper()
	cash, err := f.store.Cash("alice")
	require.NoError(t, err)
	return cash
}

func TestService_BuyThenSell(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})
	ctx := context.Background()

	tx, err := f.broker.Buy(ctx, "alice", "aapl", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.True(t, tx.Shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(50)))
	assert.True(t, f.cash(t).Equal(decimal.NewFromInt(9500)), "cash after buy is %s", f.cash(t).String())

	f.quotes.SetPrice("AAPL", decimal.NewFromInt(60))

	tx, err = f.broker.Sell(ctx, "alice", "AAPL", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, tx.Shares.Equal(decimal.NewFromInt(-10)))
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(60)))
	assert.True(t, f.cash(t).Equal(decimal.NewFromInt(10100)), "cash after sell is %s", f.cash(t).String())

	// net is now zero, any further sell is refused
	_, err = f.broker.Sell(ctx, "alice", "AAPL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestService_Buy_InvalidQuantity(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})

	_, err := f.broker.Buy(context.Background(), "alice", "AAPL", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.broker.Sell(context.Background(), "alice", "AAPL", decimal.NewFromInt(-3))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestService_Buy_UnknownSymbol(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})

	_, err := f.broker.Buy(context.Background(), "alice", "ZZZZ", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	txns, lerr := f.store.Transactions("alice", ledger.Filter{})
	require.NoError(t, lerr)
	assert.Empty(t, txns, "rejected trade must not touch the ledger")
}

func TestService_Buy_InsufficientFunds(t *testing.T) {
	f := newFixture(t, 100, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})

	_, err := f.broker.Buy(context.Background(), "alice", "AAPL", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.True(t, f.cash(t).Equal(decimal.NewFromInt(100)), "cash unchanged after rejection")
	txns, lerr := f.store.Transactions("alice", ledger.Filter{})
	require.NoError(t, lerr)
	assert.Empty(t, txns)
}

func TestService_Sell_MoreThanHeld(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})
	ctx := context.Background()

	_, err := f.broker.Buy(ctx, "alice", "AAPL", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = f.broker.Sell(ctx, "alice", "AAPL", decimal.NewFromInt(6))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestService_Sell_NothingHeld(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})

	_, err := f.broker.Sell(context.Background(), "alice", "AAPL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestService_Buy_UnknownUser(t *testing.T) {
	f := newFixture(t, 10000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(50)})

	_, err := f.broker.Buy(context.Background(), "nobody", "AAPL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_FractionalShares(t *testing.T) {
	f := newFixture(t, 1000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(100)})

	_, err := f.broker.Buy(context.Background(), "alice", "AAPL", decimal.NewFromFloat(2.5))
	require.NoError(t, err)
	assert.True(t, f.cash(t).Equal(decimal.NewFromInt(750)))
}

// Two concurrent buys, each affordable alone but not together, must end
// with exactly one success: the per-user lock closes the check-then-act
// window between the cash read and the commit.
func TestService_ConcurrentBuys_OnlyOneSucceeds(t *testing.T) {
	f := newFixture(t, 100, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(60)})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.broker.Buy(ctx, "alice", "AAPL", decimal.NewFromInt(1))
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)

	assert.True(t, f.cash(t).Equal(decimal.NewFromInt(40)), "no double spend, cash is %s", f.cash(t).String())
	assert.False(t, f.cash(t).IsNegative())
}

// flakyPricer fails with a transient error a fixed number of times
// before succeeding.
type flakyPricer struct {
	mu        sync.Mutex
	failures  int
	succeedAt domain.Quote
}

func (p *flakyPricer) Lookup(_ context.Context, symbol string) (domain.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return domain.Quote{}, errors.Wrap(domain.ErrQuoteUnavailable, "provider down")
	}
	return p.succeedAt, nil
}

func TestService_Buy_RetriesTransientQuoteFailures(t *testing.T) {
	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateAccount("alice", decimal.NewFromInt(1000)))

	quotes := &flakyPricer{failures: 2, succeedAt: domain.Quote{Symbol: "AAPL", Name: "AAPL", Price: decimal.NewFromInt(50)}}
	positions := portfolio.NewService(store, quotes, zap.NewNop())
	b := NewService(store, positions, quotes, 5*time.Second, zap.NewNop())

	_, err = b.Buy(context.Background(), "alice", "AAPL", decimal.NewFromInt(1))
	require.NoError(t, err, "transient provider failures should be retried")
}

// stuckPricer blocks until its context is done.
type stuckPricer struct{}

func (stuckPricer) Lookup(ctx context.Context, _ string) (domain.Quote, error) {
	<-ctx.Done()
	return domain.Quote{}, ctx.Err()
}

func TestService_Buy_QuoteTimeout(t *testing.T) {
	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateAccount("alice", decimal.NewFromInt(1000)))

	positions := portfolio.NewService(store, stuckPricer{}, zap.NewNop())
	b := NewService(store, positions, stuckPricer{}, 50*time.Millisecond, zap.NewNop())

	_, err = b.Buy(context.Background(), "alice", "AAPL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)

	txns, lerr := store.Transactions("alice", ledger.Filter{})
	require.NoError(t, lerr)
	assert.Empty(t, txns, "no partial mutation on timeout")
}
