// Package portfolio derives current holdings from the transaction
// ledger and values them against live quotes.
package portfolio

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/services/pricer"
	"github.com/tintran1995/webtrack/internal/storage/ledger"
)

// quoteConcurrency bounds parallel provider calls per valuation.
const quoteConcurrency = 4

// ledgerReader is the slice of the ledger store the service needs.
type ledgerReader interface {
	Cash(userID string) (decimal.Decimal, error)
	Transactions(userID string, filter ledger.Filter) ([]domain.Transaction, error)
}

// Service aggregates positions and computes portfolio valuations.
type Service struct {
	store  ledgerReader
	pricer pricer.Pricer
	logger *zap.Logger
}

// NewService creates the portfolio service.
func NewService(store ledgerReader, pricer pricer.Pricer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, pricer: pricer, logger: logger}
}

// Positions returns the user's open positions: net shares per symbol
// summed over the whole ledger, restricted to net > 0, sorted by
// symbol. Only the final net matters, not the sign history.
func (s *Service) Positions(userID string) ([]domain.Position, error) {
	txns, err := s.store.Transactions(userID, ledger.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "read ledger")
	}

	net := make(map[string]decimal.Decimal)
	for _, tx := range txns {
		net[tx.Symbol] = net[tx.Symbol].Add(tx.Shares)
	}

	positions := make([]domain.Position, 0, len(net))
	for symbol, shares := range net {
		if !shares.IsPositive() {
			continue
		}
		positions = append(positions, domain.Position{Symbol: symbol, Shares: shares})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	return positions, nil
}

// NetShares returns the current net holding of one symbol.
func (s *Service) NetShares(userID, symbol string) (decimal.Decimal, error) {
	txns, err := s.store.Transactions(userID, ledger.Filter{Symbol: symbol})
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "read ledger")
	}

	net := decimal.Zero
	for _, tx := range txns {
		net = net.Add(tx.Shares)
	}
	return net, nil
}

// Value computes the full portfolio view: cash, one priced row per open
// position, and the grand total over cash plus all available rows.
// A failed quote for a held symbol marks that row unavailable instead
// of failing the whole request; unavailable rows do not count towards
// the total.
func (s *Service) Value(ctx context.Context, userID string) (domain.Valuation, error) {
	cash, err := s.store.Cash(userID)
	if err != nil {
		return domain.Valuation{}, err
	}

	positions, err := s.Positions(userID)
	if err != nil {
		return domain.Valuation{}, err
	}

	rows := make([]domain.PositionValue, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quoteConcurrency)
	for i, pos := range positions {
		g.Go(func() error {
			quote, err := s.pricer.Lookup(gctx, pos.Symbol)
			if err != nil {
				// delisted or provider down: surface the row, flag it
				s.logger.Warn("quote unavailable during valuation",
					zap.String("user", userID),
					zap.String("symbol", pos.Symbol),
					zap.Error(err))
				rows[i] = domain.PositionValue{
					Symbol: pos.Symbol,
					Shares: pos.Shares,
				}
				return nil
			}
			rows[i] = domain.PositionValue{
				Symbol:    pos.Symbol,
				Name:      quote.Name,
				Shares:    pos.Shares,
				Price:     quote.Price,
				Value:     pos.MarketValue(quote.Price),
				Available: true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Valuation{}, err
	}

	total := cash
	for _, row := range rows {
		if row.Available {
			total = total.Add(row.Value)
		}
	}

	return domain.Valuation{Cash: cash, Rows: rows, GrandTotal: total}, nil
}
