// Package ledger persists the append-only transaction log and per-user
// cash balances in a WAL. Current state is held in memory and rebuilt
// from the log on startup, so committed writes survive restarts.
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"

	"github.com/tintran1995/webtrack/internal/domain"
)

const (
	DefaultDir   = "./wal/ledger"
	segmentLimit = 1000
	maxSegments  = 100

	accountKeyPrefix = "account_"
	tradeKeyPrefix   = "trade_"
	cashKeyPrefix    = "cash_"
	txnKeyPrefix     = "txn_"
)

// Filter narrows a transaction query. The zero value matches everything.
type Filter struct {
	// Symbol restricts rows to one ticker when non-empty.
	Symbol string
}

// accountRecord is the WAL payload for account creation.
type accountRecord struct {
	UserID string          `json:"user_id"`
	Cash   decimal.Decimal `json:"cash"`
}

// tradeRecord is the WAL payload for one committed trade: the ledger
// row and the resulting cash balance written as a single entry, so the
// two effects are never visible separately.
type tradeRecord struct {
	Tx      domain.Transaction `json:"tx"`
	NewCash decimal.Decimal    `json:"new_cash"`
}

// Store is the WAL-backed system of record.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex

	cash map[string]decimal.Decimal
	txns map[string][]domain.Transaction
}

// NewStore opens (or creates) the ledger WAL in dir and replays it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	s := &Store{
		wal:  wal,
		cash: make(map[string]decimal.Decimal),
		txns: make(map[string][]domain.Transaction),
	}
	if err := s.replay(); err != nil {
		_ = wal.Close()
		return nil, errors.Wrap(err, "replay ledger WAL")
	}

	return s, nil
}

// replay rebuilds in-memory state from the log in index order.
func (s *Store) replay() error {
	for m := range s.wal.Iterator() {
		switch {
		case strings.HasPrefix(m.Key, accountKeyPrefix):
			var rec accountRecord
			if err := json.Unmarshal(m.Value, &rec); err != nil {
				return errors.Wrap(err, "decode account record")
			}
			s.cash[rec.UserID] = rec.Cash
		case strings.HasPrefix(m.Key, tradeKeyPrefix):
			var rec tradeRecord
			if err := json.Unmarshal(m.Value, &rec); err != nil {
				return errors.Wrap(err, "decode trade record")
			}
			s.cash[rec.Tx.UserID] = rec.NewCash
			s.txns[rec.Tx.UserID] = append(s.txns[rec.Tx.UserID], rec.Tx)
		case strings.HasPrefix(m.Key, cashKeyPrefix):
			var rec accountRecord
			if err := json.Unmarshal(m.Value, &rec); err != nil {
				return errors.Wrap(err, "decode cash record")
			}
			s.cash[rec.UserID] = rec.Cash
		case strings.HasPrefix(m.Key, txnKeyPrefix):
			var tx domain.Transaction
			if err := json.Unmarshal(m.Value, &tx); err != nil {
				return errors.Wrap(err, "decode transaction record")
			}
			s.txns[tx.UserID] = append(s.txns[tx.UserID], tx)
		}
	}
	return nil
}

// CreateAccount registers a user with a starting cash balance.
func (s *Store) CreateAccount(userID string, startingCash decimal.Decimal) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if startingCash.IsNegative() {
		return errors.Wrap(domain.ErrInvalidState, "starting cash must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cash[userID]; ok {
		return errors.Wrapf(domain.ErrConflict, "account %s already exists", userID)
	}

	if err := s.write(accountKeyPrefix+userID, accountRecord{UserID: userID, Cash: startingCash}); err != nil {
		return err
	}
	s.cash[userID] = startingCash
	return nil
}

// Cash returns the current balance for the user.
func (s *Store) Cash(userID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cash, ok := s.cash[userID]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}
	return cash, nil
}

// SetCash overwrites the balance. Business validation belongs to the
// trade executor; the store only refuses negative balances outright.
func (s *Store) SetCash(userID string, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidState, "negative cash %s for user %s", cash.String(), userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cash[userID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}

	if err := s.write(cashKeyPrefix+userID, accountRecord{UserID: userID, Cash: cash}); err != nil {
		return err
	}
	s.cash[userID] = cash
	return nil
}

// Append inserts one immutable ledger row without touching cash.
func (s *Store) Append(tx domain.Transaction) error {
	if tx.UserID == "" || tx.Symbol == "" {
		return errors.New("transaction user id and symbol are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cash[tx.UserID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "user %s", tx.UserID)
	}

	if err := s.write(txnKeyPrefix+tx.UserID, tx); err != nil {
		return err
	}
	s.txns[tx.UserID] = append(s.txns[tx.UserID], tx)
	return nil
}

// CommitTrade applies one trade atomically: the new ledger row and the
// resulting cash balance land in a single WAL entry, so either both
// effects are durable and visible or neither is.
func (s *Store) CommitTrade(tx domain.Transaction, newCash decimal.Decimal) error {
	if newCash.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidState, "trade would leave negative cash %s", newCash.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cash[tx.UserID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "user %s", tx.UserID)
	}

	if err := s.write(tradeKeyPrefix+tx.UserID, tradeRecord{Tx: tx, NewCash: newCash}); err != nil {
		return err
	}
	s.cash[tx.UserID] = newCash
	s.txns[tx.UserID] = append(s.txns[tx.UserID], tx)
	return nil
}

// Transactions returns the user's ledger rows in chronological order
// (commit order). An empty ledger yields an empty slice, not an error.
func (s *Store) Transactions(userID string, filter Filter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.cash[userID]; !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}

	symbol := domain.NormalizeSymbol(filter.Symbol)
	rows := s.txns[userID]
	out := make([]domain.Transaction, 0, len(rows))
	for _, tx := range rows {
		if symbol != "" && tx.Symbol != symbol {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// write marshals the payload and appends it at the next WAL index.
// Callers must hold the write lock.
func (s *Store) write(key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal ledger record")
	}
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, b); err != nil {
		return errors.Wrap(err, fmt.Sprintf("write ledger record %s", key))
	}
	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
