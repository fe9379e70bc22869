package storage

import (
	"testing"

	"github.com/skewer-chess/skewer/internal/board"
	"github.com/skewer-chess/skewer/internal/engine"
)

func openTestStore(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	prefs := &Preferences{HashMB: 256, Threads: 4, UseCache: false}
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got.HashMB != 256 || got.Threads != 4 || got.UseCache {
		t.Errorf("loaded %+v", got)
	}
	if got.LastUsed.IsZero() {
		t.Error("LastUsed was not stamped on save")
	}
}

func TestLoadPreferencesDefaultsWhenEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	want := DefaultPreferences()
	if got.HashMB != want.HashMB || got.Threads != want.Threads || got.UseCache != want.UseCache {
		t.Errorf("loaded %+v, want defaults %+v", got, want)
	}
}

func TestTableSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	src := engine.NewTranspositionTable(1)
	keys := []uint64{0x1A2B, 0x3C4D3C4D, 0x5E6F5E6F5E6F}
	for i, k := range keys {
		src.Store(k, 6, 40+i, engine.BoundExact, board.NewMove(board.D2, board.D4))
	}

	if err := s.SaveTableSnapshot(src); err != nil {
		t.Fatalf("SaveTableSnapshot: %v", err)
	}

	dst := engine.NewTranspositionTable(1)
	n, err := s.LoadTableSnapshot(dst)
	if err != nil {
		t.Fatalf("LoadTableSnapshot: %v", err)
	}
	if n < len(keys) {
		t.Fatalf("restored %d entries, want at least %d", n, len(keys))
	}
	for i, k := range keys {
		entry, ok := dst.Probe(k)
		if !ok {
			t.Errorf("key %#x missing after restore", k)
			continue
		}
		if int(entry.Score) != 40+i {
			t.Errorf("key %#x: score %d, want %d", k, entry.Score, 40+i)
		}
	}
}

func TestLoadSnapshotWhenEmpty(t *testing.T) {
	s := openTestStore(t)

	tt := engine.NewTranspositionTable(1)
	n, err := s.LoadTableSnapshot(tt)
	if err != nil {
		t.Fatalf("LoadTableSnapshot: %v", err)
	}
	if n != 0 {
		t.Errorf("restored %d entries from an empty store", n)
	}
}

func TestNilTableIsIgnored(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveTableSnapshot(nil); err != nil {
		t.Errorf("SaveTableSnapshot(nil): %v", err)
	}
	if n, err := s.LoadTableSnapshot(nil); err != nil || n != 0 {
		t.Errorf("LoadTableSnapshot(nil) = (%d, %v)", n, err)
	}
}
