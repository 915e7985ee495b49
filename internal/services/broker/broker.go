// Package broker validates and executes buy/sell requests against the
// ledger. It owns the only code path that mutates cash and positions.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/services/pricer"
	"github.com/tintran1995/webtrack/pkg/retrier"
)

const defaultQuoteTimeout = 10 * time.Second

// ledgerWriter is the slice of the ledger store the broker needs.
type ledgerWriter interface {
	Cash(userID string) (decimal.Decimal, error)
	CommitTrade(tx domain.Transaction, newCash decimal.Decimal) error
}

// positionReader supplies current net holdings at execution time.
type positionReader interface {
	NetShares(userID, symbol string) (decimal.Decimal, error)
}

// Service is the trade executor. Per-user trades are serialized with a
// striped mutex held only for the read-validate-commit sequence; the
// quote is fetched before entering the critical section, so a slow
// provider never blocks other requests for the same user.
type Service struct {
	store        ledgerWriter
	positions    positionReader
	pricer       pricer.Pricer
	retrier      *retrier.Retrier
	logger       *zap.Logger
	quoteTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates the trade executor. A zero quoteTimeout falls back
// to the default.
func NewService(store ledgerWriter, positions positionReader, quotes pricer.Pricer, quoteTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	return &Service{
		store:     store,
		positions: positions,
		pricer:    quotes,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(150*time.Millisecond),
			retrier.WithRetryIf(func(err error) bool {
				return errors.Is(err, domain.ErrQuoteUnavailable)
			}),
		),
		logger:       logger,
		quoteTimeout: quoteTimeout,
	}
}

// Buy purchases shares of symbol at the current live price. The same
// fetched price is used for the affordability check and stored in the
// ledger row, so validation and commit can never disagree.
func (s *Service) Buy(ctx context.Context, userID, symbol string, shares decimal.Decimal) (domain.Transaction, error) {
	if shares.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInvalidQuantity, "buy %s shares", shares.String())
	}

	quote, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		return domain.Transaction{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cash, err := s.store.Cash(userID)
	if err != nil {
		return domain.Transaction{}, err
	}

	cost := shares.Mul(quote.Price)
	if cost.GreaterThan(cash) {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientFunds,
			"buy %s %s costs %s, cash is %s", shares.String(), quote.Symbol, cost.String(), cash.String())
	}

	tx, err := domain.NewTransaction(userID, quote.Symbol, shares, quote.Price, time.Now())
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := s.store.CommitTrade(tx, cash.Sub(cost)); err != nil {
		return domain.Transaction{}, errors.Wrap(err, "commit buy")
	}

	s.logger.Info("buy executed",
		zap.String("user", userID),
		zap.String("symbol", quote.Symbol),
		zap.String("shares", shares.String()),
		zap.String("price", quote.Price.String()),
		zap.String("cost", cost.String()))
	return tx, nil
}

// Sell disposes shares of symbol at the current live price. A sell is
// admissible only when the requested amount does not exceed the net
// held amount at execution time; selling the exact net amount is
// allowed and drives the position to zero.
func (s *Service) Sell(ctx context.Context, userID, symbol string, shares decimal.Decimal) (domain.Transaction, error) {
	if shares.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInvalidQuantity, "sell %s shares", shares.String())
	}

	quote, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		return domain.Transaction{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cash, err := s.store.Cash(userID)
	if err != nil {
		return domain.Transaction{}, err
	}

	held, err := s.positions.NetShares(userID, quote.Symbol)
	if err != nil {
		return domain.Transaction{}, err
	}
	if shares.GreaterThan(held) {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientShares,
			"sell %s %s, net held is %s", shares.String(), quote.Symbol, held.String())
	}

	tx, err := domain.NewTransaction(userID, quote.Symbol, shares.Neg(), quote.Price, time.Now())
	if err != nil {
		return domain.Transaction{}, err
	}
	proceeds := shares.Mul(quote.Price)
	if err := s.store.CommitTrade(tx, cash.Add(proceeds)); err != nil {
		return domain.Transaction{}, errors.Wrap(err, "commit sell")
	}

	s.logger.Info("sell executed",
		zap.String("user", userID),
		zap.String("symbol", quote.Symbol),
		zap.String("shares", shares.String()),
		zap.String("price", quote.Price.String()),
		zap.String("proceeds", proceeds.String()))
	return tx, nil
}

// Quote resolves a symbol without trading, for quote display.
func (s *Service) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	return s.fetchQuote(ctx, symbol)
}

// fetchQuote resolves the symbol with a bounded timeout, retrying
// transient provider failures. Unknown symbols fail immediately.
func (s *Service) fetchQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, errors.Wrap(domain.ErrUnknownSymbol, "empty symbol")
	}

	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()

	quote, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) (domain.Quote, error) {
		return s.pricer.Lookup(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Quote{}, errors.Wrapf(domain.ErrQuoteUnavailable, "quote for %s timed out", symbol)
		}
		return domain.Quote{}, err
	}
	return quote, nil
}

// lockUser acquires the per-user mutex. Different users never contend.
func (s *Service) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		if s.locks == nil {
			s.locks = make(map[string]*sync.Mutex)
		}
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
