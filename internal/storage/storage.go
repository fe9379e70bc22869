package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/skewer-chess/skewer/internal/engine"
)

const (
	keyPreferences = "preferences"
	keyTTSnapshot  = "tt_snapshot"
)

// MaxSnapshotEntries bounds the persisted transposition entries. The table
// is a pure performance cache, so persisting a slice of it is strictly a
// warm-start optimization.
const MaxSnapshotEntries = 1 << 16

// Preferences stores the engine settings the user last ran with.
type Preferences struct {
	HashMB   int       `json:"hash_mb"`
	Threads  int       `json:"threads"`
	UseCache bool      `json:"use_cache"`
	LastUsed time.Time `json:"last_used"`
}

// DefaultPreferences returns the stock settings.
func DefaultPreferences() *Preferences {
	return &Preferences{
		HashMB:   64,
		Threads:  1,
		UseCache: true,
	}
}

// ttSnapshot is the persisted form of a transposition-table slice. The
// snapshot records the Zobrist scheme implicitly through the module version;
// entries that no longer verify simply miss on probe.
type ttSnapshot struct {
	SavedAt time.Time        `json:"saved_at"`
	Entries []engine.TTEntry `json:"entries"`
}

// Storage wraps BadgerDB for the engine's persistent state.
type Storage struct {
	db *badger.DB
}

// Open opens the store in the platform data directory.
func Open() (*Storage, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dbDir)
}

// OpenAt opens the store in an explicit directory, used by tests.
func OpenAt(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences persists the engine settings.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastUsed = time.Now()
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences returns the stored settings, or defaults if none exist.
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})
	return prefs, err
}

// SaveTableSnapshot persists up to MaxSnapshotEntries of the transposition
// table so the next session starts with a warm cache.
func (s *Storage) SaveTableSnapshot(tt *engine.TranspositionTable) error {
	if tt == nil {
		return nil
	}
	snap := ttSnapshot{
		SavedAt: time.Now(),
		Entries: tt.Export(MaxSnapshotEntries),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyTTSnapshot), data)
	})
}

// LoadTableSnapshot seeds the table from the stored snapshot, if any.
// Returns the number of entries restored.
func (s *Storage) LoadTableSnapshot(tt *engine.TranspositionTable) (int, error) {
	if tt == nil {
		return 0, nil
	}
	var snap ttSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyTTSnapshot))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return 0, err
	}
	tt.Import(snap.Entries)
	return len(snap.Entries), nil
}
