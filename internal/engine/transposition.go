package engine

import (
	"sync"
	"sync/atomic"

	"github.com/skewer-chess/skewer/internal/board"
)

// Bound classifies a stored or returned score relative to the alpha-beta
// window that produced it.
type Bound uint8

const (
	BoundExact Bound = iota // score is the true value within the window
	BoundLower              // score caused a beta cutoff (at least this good)
	BoundUpper              // score never raised alpha (at most this good)
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lowerbound"
	default:
		return "upperbound"
	}
}

// TTEntry is one transposition table slot. The full 64-bit key is kept so a
// probe can reject index collisions outright; the caller still re-verifies
// that the stored bound applies to its current window before trusting it.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int16
	Depth int8
	Bound Bound
	Age   uint8
}

// Sharded locking: slot index modulo shard picks the lock, so concurrent
// helpers rarely contend. A lost or stale write costs a re-search, never
// correctness.
const (
	ttShardCount = 256
	ttShardMask  = ttShardCount - 1
)

// TranspositionTable caches search results by position key. Fixed capacity;
// replacement prefers deeper entries from the current generation, since those
// are the most expensive to recompute.
type TranspositionTable struct {
	entries []TTEntry
	shards  [ttShardCount]sync.RWMutex
	mask    uint64
	age     atomic.Uint32

	probes atomic.Uint64
	hits   atomic.Uint64
}

// NewTranspositionTable allocates a table of roughly sizeMB megabytes,
// rounded down to a power-of-two entry count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const entrySize = 16
	n := uint64(sizeMB) * 1024 * 1024 / entrySize
	n = roundDownPowerOf2(n)
	if n == 0 {
		n = 1
	}
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
}

func roundDownPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up the entry for key. A hit guarantees the full key matched,
// nothing more: depth sufficiency and bound applicability are the caller's
// checks.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	idx := key & tt.mask
	shard := idx & ttShardMask

	tt.shards[shard].RLock()
	entry := tt.entries[idx]
	tt.shards[shard].RUnlock()

	if entry.Key == key && entry.Depth > 0 {
		tt.hits.Add(1)
		return entry, true
	}
	return TTEntry{}, false
}

// Store writes a search result. Depth-preferred replacement: an entry from
// the current generation survives unless the new result searched at least as
// deep; entries from older generations are always fair game.
func (tt *TranspositionTable) Store(key uint64, depth int, score int, bound Bound, move board.Move) {
	idx := key & tt.mask
	shard := idx & ttShardMask

	tt.shards[shard].Lock()
	entry := &tt.entries[idx]
	currentAge := uint8(tt.age.Load())
	if entry.Age != currentAge || depth >= int(entry.Depth) {
		entry.Key = key
		entry.Move = move
		entry.Score = int16(score)
		entry.Depth = int8(depth)
		entry.Bound = bound
		entry.Age = currentAge
	}
	tt.shards[shard].Unlock()
}

// NewSearch bumps the generation counter; subsequent stores outrank entries
// left over from previous searches.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear wipes the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.age.Store(0)
	tt.probes.Store(0)
	tt.hits.Store(0)
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.entries))
}

// HashFull estimates table occupancy in permille by sampling.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if uint64(sample) > tt.Size() {
		sample = int(tt.Size())
	}
	currentAge := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].Depth > 0 && tt.entries[i].Age == currentAge {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns probe hit rate in percent, for diagnostics.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Export snapshots up to max populated entries for persistence across
// sessions. The table is a pure performance cache, so a partial or stale
// snapshot is harmless.
func (tt *TranspositionTable) Export(max int) []TTEntry {
	out := make([]TTEntry, 0, max)
	for i := range tt.entries {
		if len(out) >= max {
			break
		}
		if tt.entries[i].Depth > 0 {
			out = append(out, tt.entries[i])
		}
	}
	return out
}

// Import seeds the table from a snapshot, respecting the usual replacement
// policy. Entries land under the current generation.
func (tt *TranspositionTable) Import(entries []TTEntry) {
	for _, e := range entries {
		if e.Depth > 0 {
			tt.Store(e.Key, int(e.Depth), int(e.Score), e.Bound, e.Move)
		}
	}
}

// Mate scores are stored relative to the node, not the root, so distance to
// mate stays meaningful when a cached entry is used at a different ply.

// scoreFromTT converts a stored score back to root-relative form.
func scoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// scoreToTT converts a root-relative score to node-relative form for storage.
func scoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
