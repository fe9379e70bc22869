package engine

import (
	"github.com/skewer-chess/skewer/internal/board"
)

// Ordering score bands. Good ordering is what makes alpha-beta pruning pay:
// most nodes should fail high on the first move tried.
const (
	ttMoveScore  = 10000000
	captureBase  = 1000000
	killerScore1 = 900000
	killerScore2 = 800000
)

// MVV-LVA: most valuable victim first, least valuable attacker as the
// tiebreak. Indexed [victim][attacker].
var mvvLva = [6][6]int{
	{15, 14, 14, 13, 12, 11}, // pawn victim
	{25, 24, 24, 23, 22, 21}, // knight victim
	{35, 34, 34, 33, 32, 31}, // bishop victim
	{45, 44, 44, 43, 42, 41}, // rook victim
	{55, 54, 54, 53, 52, 51}, // queen victim
	{0, 0, 0, 0, 0, 0},
}

// MoveOrderer ranks moves: transposition-table move, then captures by
// MVV-LVA, then killer moves, then quiet moves by history.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [64][64]int
}

// NewMoveOrderer returns an empty orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and ages history between searches.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// ScoreMoves fills scores (parallel to ml) for ordering. The scores slice is
// caller-owned scratch so the hot path allocates nothing.
func (mo *MoveOrderer) ScoreMoves(b *board.Board, ml *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i := 0; i < ml.Len(); i++ {
		scores[i] = mo.scoreMove(b, ml.Get(i), ply, ttMove)
	}
}

func (mo *MoveOrderer) scoreMove(b *board.Board, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return ttMoveScore
	}

	if m.IsCapture(b) {
		attacker := b.PieceAt(m.From()).Type()
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = b.PieceAt(m.To()).Type()
		}
		if victim >= board.King || attacker > board.King {
			return captureBase
		}
		return captureBase + mvvLva[victim][attacker]*1000
	}

	if m.IsPromotion() {
		return captureBase - 1000 + int(m.Promotion())*100
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return killerScore1
		}
		if m == mo.killers[ply][1] {
			return killerScore2
		}
	}

	return mo.history[m.From()][m.To()]
}

// PickMove selects the best remaining move into position index: lazy
// selection sort, so only as much ordering work is done as cutoffs require.
func PickMove(ml *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < ml.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		ml.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a quiet cutoff move, scaling everything down when a
// counter runs hot to keep scores comparable.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	from, to := m.From(), m.To()
	mo.history[from][to] += depth * depth
	if mo.history[from][to] > 400000 {
		for i := range mo.history {
			for j := range mo.history[i] {
				mo.history[i][j] /= 2
			}
		}
	}
}
