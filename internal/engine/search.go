package engine

import (
	"sync/atomic"
	"time"

	"github.com/skewer-chess/skewer/internal/board"
)

// Search score bounds. Mate scores stay clear of Infinity so bound arithmetic
// never overflows, and static evaluation stays clear of the mate band.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateDistance returns the number of full moves to mate for a mate score.
func MateDistance(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return (MateScore + score + 1) / 2
}

// PVTable holds the principal variation per ply, triangular layout.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher runs a fail-soft alpha-beta search over one Board. It owns its
// board copy and move-list scratch; only the transposition table is shared
// between concurrent searchers.
//
// The search uses only sound pruning (alpha-beta itself plus PVS re-search),
// so its result at a fixed depth matches an unpruned minimax of the same
// tree. Speed comes from move ordering and the table, not from speculation.
type Searcher struct {
	b       *board.Board
	tt      *TranspositionTable // nil disables the table
	eval    *Evaluator
	orderer *MoveOrderer

	stop      *atomic.Bool
	deadline  time.Time
	nodeLimit uint64

	nodes uint64
	pv    PVTable

	// Per-ply scratch, reused across calls to keep the tree allocation-free.
	lists  [MaxPly]board.MoveList
	scores [MaxPly][256]int

	// Position keys on the path from the game start through the current
	// search line, for repetition detection.
	keyHistory []uint64
	rootKeys   []uint64
}

// NewSearcher builds a searcher sharing tt and the stop flag.
func NewSearcher(tt *TranspositionTable, eval *Evaluator, stop *atomic.Bool) *Searcher {
	return &Searcher{
		tt:      tt,
		eval:    eval,
		orderer: NewMoveOrderer(),
		stop:    stop,
	}
}

// Reset clears per-search state.
func (s *Searcher) Reset() {
	s.nodes = 0
	s.orderer.Clear()
}

// Nodes returns the number of nodes visited.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// SetRootKeys installs the game's position keys for repetition detection.
func (s *Searcher) SetRootKeys(keys []uint64) {
	s.rootKeys = append(s.rootKeys[:0], keys...)
}

// SetBudget installs the wall-clock deadline and node limit the searcher
// polls while inside the tree. Zero values disable the respective check.
func (s *Searcher) SetBudget(deadline time.Time, nodeLimit uint64) {
	s.deadline = deadline
	s.nodeLimit = nodeLimit
}

// Prepare points the searcher at its own copy of the position.
func (s *Searcher) Prepare(b *board.Board) {
	s.b = b.Copy()
	s.keyHistory = s.keyHistory[:0]
	s.keyHistory = append(s.keyHistory, s.rootKeys...)
	// Game histories usually already end with the root position; appending
	// it again would double-count it for repetition purposes.
	if n := len(s.keyHistory); n == 0 || s.keyHistory[n-1] != s.b.Key() {
		s.keyHistory = append(s.keyHistory, s.b.Key())
	}
}

// PV returns the principal variation of the last completed search.
func (s *Searcher) PV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// SearchDepth searches the prepared position to the given depth inside
// (alpha, beta) and returns the best move with its fail-soft score.
func (s *Searcher) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	score := s.negamax(depth, 0, alpha, beta)

	var best board.Move
	if s.pv.length[0] > 0 {
		best = s.pv.moves[0][0]
	}
	if best == board.NoMove && !s.stop.Load() {
		// Fail-low at the root leaves no PV; any legal move carries the bound.
		ml := &s.lists[0]
		s.b.LegalMovesInto(ml)
		if ml.Len() > 0 {
			best = ml.Get(0)
		}
	}
	return best, score
}

// checkBudget polls the stop flag, deadline and node limit. Polling happens
// every few thousand nodes so an expired deadline aborts promptly; the
// unwind restores the board through the same undo discipline as a normal
// return.
func (s *Searcher) checkBudget() bool {
	if s.stop.Load() {
		return true
	}
	if s.nodes&2047 == 0 {
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			s.stop.Store(true)
			return true
		}
		if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
			s.stop.Store(true)
			return true
		}
	}
	return false
}

// isDraw detects fifty-move, insufficient material and repetition draws on
// the current search path.
func (s *Searcher) isDraw() bool {
	if s.b.IsFiftyMoveDraw() || s.b.IsInsufficientMaterial() {
		return true
	}
	key := s.b.Key()
	count := 0
	for _, k := range s.keyHistory[:len(s.keyHistory)-1] {
		if k == key {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// negamax is the recursive alpha-beta search.
func (s *Searcher) negamax(depth, ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return s.eval.Evaluate(s.b)
	}
	if s.checkBudget() {
		return 0
	}
	s.nodes++
	s.pv.length[ply] = ply

	if ply > 0 && s.isDraw() {
		return 0
	}

	// Transposition table: the stored bound is only trusted after
	// re-verifying it against the current window, and cached cutoffs are
	// never taken at the root so the PV stays complete.
	var ttMove board.Move
	if s.tt != nil {
		if entry, ok := s.tt.Probe(s.b.Key()); ok {
			ttMove = entry.Move
			if ttMove != board.NoMove {
				p := s.b.PieceAt(ttMove.From())
				if p == board.NoPiece || p.Color() != s.b.SideToMove() {
					ttMove = board.NoMove
				}
			}
			if ply > 0 && int(entry.Depth) >= depth {
				score := scoreFromTT(int(entry.Score), ply)
				switch entry.Bound {
				case BoundExact:
					return score
				case BoundLower:
					if score > alpha {
						alpha = score
					}
				case BoundUpper:
					if score < beta {
						beta = score
					}
				}
				if alpha >= beta {
					return score
				}
			}
		}
	}

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	ml := &s.lists[ply]
	s.b.LegalMovesInto(ml)

	// Terminal nodes are classified here, never by the evaluator: no legal
	// moves means mate when in check, stalemate otherwise.
	if ml.Len() == 0 {
		if s.b.InCheck(s.b.SideToMove()) {
			return -MateScore + ply
		}
		return 0
	}

	scores := s.scores[ply][:ml.Len()]
	s.orderer.ScoreMoves(s.b, ml, scores, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	bound := BoundUpper

	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		move := ml.Get(i)
		isQuiet := !move.IsCapture(s.b) && !move.IsPromotion()

		undo, err := s.b.Apply(move)
		if err != nil {
			continue
		}
		s.keyHistory = append(s.keyHistory, s.b.Key())

		var score int
		if i == 0 {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha)
		} else {
			// PVS: assume the first move is best and prove the rest worse
			// with a null window, re-searching on surprise. Re-search keeps
			// the result identical to a full-window search.
			score = -s.negamax(depth-1, ply+1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha)
			}
		}

		s.keyHistory = s.keyHistory[:len(s.keyHistory)-1]
		s.b.Undo(undo)

		if s.stop.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				bound = BoundExact

				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			if s.tt != nil {
				s.tt.Store(s.b.Key(), depth, scoreToTT(score, ply), BoundLower, move)
			}
			if isQuiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth)
			}
			return score
		}
	}

	if s.tt != nil {
		s.tt.Store(s.b.Key(), depth, scoreToTT(bestScore, ply), bound, bestMove)
	}
	return bestScore
}

// quiescence extends capture (and promotion) sequences past the nominal
// horizon so the evaluator is only consulted at quiet positions.
func (s *Searcher) quiescence(ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return s.eval.Evaluate(s.b)
	}
	if s.checkBudget() {
		return 0
	}
	s.nodes++

	standPat := s.eval.Evaluate(s.b)
	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	ml := &s.lists[ply]
	s.b.CapturesInto(ml)
	scores := s.scores[ply][:ml.Len()]
	s.orderer.ScoreMoves(s.b, ml, scores, ply, board.NoMove)

	bestScore := standPat
	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		move := ml.Get(i)

		undo, err := s.b.Apply(move)
		if err != nil {
			continue
		}
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.b.Undo(undo)

		if score > bestScore {
			bestScore = score
		}
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
		}
	}
	return bestScore
}
