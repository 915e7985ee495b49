// Package watchlist tracks symbols a user wants to monitor,
// independent of holdings.
package watchlist

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/services/pricer"
)

// store is the persistence slice the service needs.
type store interface {
	Entries(userID string) []domain.WatchEntry
	Upsert(entry domain.WatchEntry) error
}

// Service manages watchlists and refreshes their prices opportunistically.
type Service struct {
	store  store
	pricer pricer.Pricer
	logger *zap.Logger
}

// NewService creates the watchlist service.
func NewService(store store, quotes pricer.Pricer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, pricer: quotes, logger: logger}
}

// Add puts the symbol on the user's watchlist at its current price.
// Unknown symbols are rejected.
func (s *Service) Add(ctx context.Context, userID, symbol string) (domain.WatchEntry, error) {
	quote, err := s.pricer.Lookup(ctx, symbol)
	if err != nil {
		return domain.WatchEntry{}, err
	}

	entry := domain.WatchEntry{UserID: userID, Symbol: quote.Symbol, Price: quote.Price}
	if err := s.store.Upsert(entry); err != nil {
		return domain.WatchEntry{}, errors.Wrap(err, "store watch entry")
	}
	return entry, nil
}

// List returns the user's watchlist sorted by symbol, refreshing each
// entry's price. A failed lookup keeps the last observed price.
func (s *Service) List(ctx context.Context, userID string) ([]domain.WatchEntry, error) {
	entries := s.store.Entries(userID)
	for i := range entries {
		quote, err := s.pricer.Lookup(ctx, entries[i].Symbol)
		if err != nil {
			s.logger.Warn("watchlist refresh failed",
				zap.String("user", userID),
				zap.String("symbol", entries[i].Symbol),
				zap.Error(err))
			continue
		}
		entries[i].Price = quote.Price
		if err := s.store.Upsert(entries[i]); err != nil {
			return nil, errors.Wrap(err, "store refreshed watch entry")
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries, nil
}
