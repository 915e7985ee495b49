// Package watchlist persists per-user watchlists as a json file,
// rewritten atomically on every change. Watch entries carry no ledger
// semantics, so the WAL machinery would be overkill here.
package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/tintran1995/webtrack/internal/domain"
)

const fileName = "watchlist.json"

// Store keeps watch entries in memory and mirrors them to disk.
type Store struct {
	path string

	mu      sync.RWMutex
	entries map[string][]domain.WatchEntry
}

// NewStore opens the watchlist file in dir, creating dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create watchlist dir")
	}

	s := &Store{
		path:    filepath.Join(dir, fileName),
		entries: make(map[string][]domain.WatchEntry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, "read watchlist file")
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, &s.entries); err != nil {
		return errors.Wrap(err, "decode watchlist file")
	}
	return nil
}

// Entries returns the user's watch entries. Unknown users get an empty
// slice; watching requires no account.
func (s *Store) Entries(userID string) []domain.WatchEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WatchEntry, len(s.entries[userID]))
	copy(out, s.entries[userID])
	return out
}

// Upsert adds the entry or updates the stored price of an existing one.
func (s *Store) Upsert(entry domain.WatchEntry) error {
	if entry.UserID == "" || entry.Symbol == "" {
		return errors.New("watch entry user id and symbol are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[entry.UserID]
	replaced := false
	for i := range list {
		if list[i].Symbol == entry.Symbol {
			list[i].Price = entry.Price
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, entry)
	}
	s.entries[entry.UserID] = list

	return s.persist()
}

// persist writes the whole table via temp file + rename. Callers must
// hold the write lock.
func (s *Store) persist() error {
	payload, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode watchlist")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write watchlist temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist watchlist")
	}
	return nil
}
