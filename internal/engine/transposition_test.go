package engine

import (
	"testing"

	"github.com/skewer-chess/skewer/internal/board"
)

func TestTableStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)

	key := uint64(0xDEADBEEFCAFE1234)
	move := board.NewMove(board.E2, board.E4)
	tt.Store(key, 5, 42, BoundExact, move)

	entry, ok := tt.Probe(key)
	if !ok {
		t.Fatal("expected hit after store")
	}
	if entry.Move != move || entry.Score != 42 || entry.Depth != 5 || entry.Bound != BoundExact {
		t.Errorf("entry = %+v", entry)
	}

	// A different key hashing to any slot must never report a hit.
	if _, ok := tt.Probe(key + 1); ok {
		t.Error("probe of unknown key reported a hit")
	}
}

func TestTableReplacementPrefersDepth(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x1111222233334444)

	tt.Store(key, 8, 10, BoundExact, board.NoMove)
	// A shallower result for the same slot must not evict the deeper one
	// within the same search generation.
	tt.Store(key, 3, -5, BoundUpper, board.NoMove)

	entry, ok := tt.Probe(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Depth != 8 || entry.Score != 10 {
		t.Errorf("shallow store evicted deeper entry: %+v", entry)
	}

	// After a new search generation the stale entry yields.
	tt.NewSearch()
	tt.Store(key, 3, -5, BoundUpper, board.NoMove)
	entry, ok = tt.Probe(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Depth != 3 {
		t.Errorf("stale entry survived a new generation: %+v", entry)
	}
}

func TestTableClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x5555666677778888)
	tt.Store(key, 4, 7, BoundLower, board.NoMove)
	tt.Clear()
	if _, ok := tt.Probe(key); ok {
		t.Error("probe after clear reported a hit")
	}
}

func TestTableExportImport(t *testing.T) {
	src := NewTranspositionTable(1)
	keys := []uint64{0xA1, 0xB2B2B2B2, 0xC3C3C3C3C3, 0xD4D4D4D4D4D4}
	for i, k := range keys {
		src.Store(k, 4+i, 100+i, BoundExact, board.NewMove(board.E2, board.E4))
	}

	snapshot := src.Export(1024)
	if len(snapshot) < len(keys) {
		t.Fatalf("exported %d entries, want at least %d", len(snapshot), len(keys))
	}

	dst := NewTranspositionTable(1)
	dst.Import(snapshot)
	for i, k := range keys {
		entry, ok := dst.Probe(k)
		if !ok {
			t.Errorf("key %#x missing after import", k)
			continue
		}
		if int(entry.Score) != 100+i || int(entry.Depth) != 4+i {
			t.Errorf("key %#x: entry %+v", k, entry)
		}
	}
}

// Mate scores are stored relative to the node so a cached mate stays the
// right distance when found again at a different ply.
func TestMateScorePlyAdjustment(t *testing.T) {
	rootRelative := MateScore - 7 // mate at ply 7
	stored := scoreToTT(rootRelative, 3)
	restored := scoreFromTT(stored, 5)

	// From ply 3 the mate was 4 plies away; seen again at ply 5 it is
	// 4 plies from there, i.e. ply 9 from the root.
	if want := MateScore - 9; restored != want {
		t.Errorf("restored = %d, want %d", restored, want)
	}

	// Non-mate scores pass through untouched.
	if got := scoreFromTT(scoreToTT(123, 9), 2); got != 123 {
		t.Errorf("ordinary score changed: %d", got)
	}

	// Negative mates adjust in the other direction.
	stored = scoreToTT(-MateScore+6, 2)
	if got := scoreFromTT(stored, 2); got != -MateScore+6 {
		t.Errorf("negative mate round trip = %d, want %d", got, -MateScore+6)
	}
}

func TestHashFullAndHitRate(t *testing.T) {
	tt := NewTranspositionTable(1)
	if tt.HashFull() != 0 {
		t.Errorf("fresh table reports hashfull %d", tt.HashFull())
	}
	tt.Store(0x42, 3, 1, BoundExact, board.NoMove)
	tt.Probe(0x42)
	tt.Probe(0x43)
	if rate := tt.HitRate(); rate <= 0 || rate > 100 {
		t.Errorf("hit rate = %f", rate)
	}
}
