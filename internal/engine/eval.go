// Package engine implements the iterative-deepening alpha-beta search that
// picks a move within a depth, node or wall-clock budget.
package engine

import (
	"github.com/skewer-chess/skewer/internal/board"
)

// Material values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Positional term weights.
const (
	bishopPairBonus    = 30
	rookOpenFile       = 20
	rookSemiOpenFile   = 10
	pawnShieldBonus    = 8
	doubledPawnPenalty = 12
)

// Game phase weights per piece type, used to blend the two king tables.
var phaseWeight = [7]int{0, 1, 1, 2, 4, 0, 0}

const maxPhase = 24 // 4 minors + 4 rooks + 2 queens

// Piece-square tables from White's perspective; mirrored for Black.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 5, 5, 0, 0, 0,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	5, 10, 10, 10, 10, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-10, 5, 5, 5, 5, 5, 0, -10,
	0, 0, 5, 5, 5, 5, 0, -5,
	-5, 0, 5, 5, 5, 5, 0, -5,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	20, 30, 10, 0, 0, 10, 30, 20,
	20, 20, 0, 0, 0, 0, 20, 20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
}

var kingEndgamePST = [64]int{
	-50, -30, -30, -30, -30, -30, -30, -50,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-50, -40, -30, -20, -20, -30, -40, -50,
}

var pstByType = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// EvalConfig carries the tunable evaluation parameters. Passing it explicitly
// keeps search sessions independently testable instead of leaning on global
// state.
type EvalConfig struct {
	BishopPair   int
	RookOpenFile int
	RookSemiOpen int
	PawnShield   int
	DoubledPawn  int
}

// DefaultEvalConfig returns the stock weights.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		BishopPair:   bishopPairBonus,
		RookOpenFile: rookOpenFile,
		RookSemiOpen: rookSemiOpenFile,
		PawnShield:   pawnShieldBonus,
		DoubledPawn:  doubledPawnPenalty,
	}
}

// Evaluator scores quiet positions. It is a pure function of the board: mate
// and stalemate are the search's business, never the evaluator's.
type Evaluator struct {
	cfg EvalConfig
}

// NewEvaluator builds an evaluator with the given weights.
func NewEvaluator(cfg EvalConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate returns the static score in centipawns from the side to move's
// perspective. Every term is color-symmetric, so evaluating a mirrored
// position yields the negated score.
func (e *Evaluator) Evaluate(b *board.Board) int {
	var material, positional [2]int
	var bishops [2]int
	var pawnFiles, rookFiles [2][8]int
	var kingSq [2]board.Square

	phase := 0
	for sq := board.A1; sq <= board.H8; sq++ {
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		c := p.Color()
		pt := p.Type()
		phase += phaseWeight[pt]

		// View the square from the piece owner's side for table lookups.
		rel := sq
		if c == board.Black {
			rel = sq.Mirror()
		}

		switch pt {
		case board.King:
			kingSq[c] = sq
		case board.Pawn:
			material[c] += PawnValue
			positional[c] += pawnPST[rel]
			pawnFiles[c][sq.File()]++
		default:
			material[c] += pieceValues[pt]
			positional[c] += pstByType[pt][rel]
			if pt == board.Bishop {
				bishops[c]++
			}
			if pt == board.Rook {
				rookFiles[c][sq.File()]++
			}
		}
	}

	for c := board.White; c <= board.Black; c++ {
		them := c.Other()
		// The king table is blended by phase, which is only known after the
		// full scan.
		rel := kingSq[c]
		if c == board.Black {
			rel = rel.Mirror()
		}
		positional[c] += taper(kingMidgamePST[rel], kingEndgamePST[rel], phase)
		if bishops[c] >= 2 {
			positional[c] += e.cfg.BishopPair
		}
		for f := 0; f < 8; f++ {
			if rookFiles[c][f] > 0 {
				switch {
				case pawnFiles[c][f] == 0 && pawnFiles[them][f] == 0:
					positional[c] += e.cfg.RookOpenFile * rookFiles[c][f]
				case pawnFiles[c][f] == 0:
					positional[c] += e.cfg.RookSemiOpen * rookFiles[c][f]
				}
			}
			if pawnFiles[c][f] > 1 {
				positional[c] -= e.cfg.DoubledPawn * (pawnFiles[c][f] - 1)
			}
		}
		positional[c] += e.pawnShield(b, c, kingSq[c])
	}

	score := material[board.White] - material[board.Black] +
		positional[board.White] - positional[board.Black]

	if b.SideToMove() == board.Black {
		return -score
	}
	return score
}

// taper blends midgame and endgame values by remaining material.
func taper(mg, eg, phase int) int {
	if phase > maxPhase {
		phase = maxPhase
	}
	return (mg*phase + eg*(maxPhase-phase)) / maxPhase
}

// pawnShield rewards own pawns on the three squares directly in front of the
// king, a cheap king-safety proxy.
func (e *Evaluator) pawnShield(b *board.Board, c board.Color, kingSq board.Square) int {
	forward := 1
	if c == board.Black {
		forward = -1
	}
	rank := kingSq.Rank() + forward
	if rank < 0 || rank > 7 {
		return 0
	}
	pawn := board.NewPiece(board.Pawn, c)
	bonus := 0
	for df := -1; df <= 1; df++ {
		f := kingSq.File() + df
		if f < 0 || f > 7 {
			continue
		}
		if b.PieceAt(board.NewSquare(f, rank)) == pawn {
			bonus += e.cfg.PawnShield
		}
	}
	return bonus
}

// EvaluateMaterial returns the bare material balance from the side to move's
// perspective. The analysis shell reports it next to the full evaluation to
// separate material from the positional terms.
func EvaluateMaterial(b *board.Board) int {
	score := 0
	for sq := board.A1; sq <= board.H8; sq++ {
		p := b.PieceAt(sq)
		if p == board.NoPiece || p.Type() == board.King {
			continue
		}
		if p.Color() == board.White {
			score += pieceValues[p.Type()]
		} else {
			score -= pieceValues[p.Type()]
		}
	}
	if b.SideToMove() == board.Black {
		return -score
	}
	return score
}
