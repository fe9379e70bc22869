package board

// Step offsets as (file delta, rank delta) pairs. The mailbox representation
// checks board edges with file/rank arithmetic rather than padding.
type step struct {
	df, dr int
}

var (
	knightSteps = [8]step{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8]step{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	bishopSteps = [4]step{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	rookSteps   = [4]step{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
)

// Precomputed leaper destinations per square.
var (
	knightDests [64][]Square
	kingDests   [64][]Square
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		for _, s := range knightSteps {
			if to, ok := offset(sq, s); ok {
				knightDests[sq] = append(knightDests[sq], to)
			}
		}
		for _, s := range kingSteps {
			if to, ok := offset(sq, s); ok {
				kingDests[sq] = append(kingDests[sq], to)
			}
		}
	}
}

// offset returns the square one step away, or ok=false off the board.
func offset(sq Square, s step) (Square, bool) {
	f := sq.File() + s.df
	r := sq.Rank() + s.dr
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return NoSquare, false
	}
	return NewSquare(f, r), true
}

// pawnCaptureSteps returns the two capture directions for a pawn of color c.
func pawnCaptureSteps(c Color) [2]step {
	if c == White {
		return [2]step{{-1, 1}, {1, 1}}
	}
	return [2]step{{-1, -1}, {1, -1}}
}

// IsSquareAttacked reports whether any piece of the given color attacks sq.
// Sliders are traced outward from sq; the first piece on a ray decides.
func (b *Board) IsSquareAttacked(sq Square, by Color) bool {
	// Pawns: an enemy pawn attacks sq from the squares sq would capture
	// toward if it were a pawn of the defending side.
	pawn := NewPiece(Pawn, by)
	for _, s := range pawnCaptureSteps(by.Other()) {
		if from, ok := offset(sq, s); ok && b.squares[from] == pawn {
			return true
		}
	}

	knight := NewPiece(Knight, by)
	for _, from := range knightDests[sq] {
		if b.squares[from] == knight {
			return true
		}
	}

	king := NewPiece(King, by)
	for _, from := range kingDests[sq] {
		if b.squares[from] == king {
			return true
		}
	}

	if b.slidingAttacker(sq, by, bishopSteps[:], Bishop) {
		return true
	}
	return b.slidingAttacker(sq, by, rookSteps[:], Rook)
}

// slidingAttacker walks each ray from sq and reports whether the first piece
// met is an enemy slider of the given kind (or a queen).
func (b *Board) slidingAttacker(sq Square, by Color, dirs []step, kind PieceType) bool {
	slider := NewPiece(kind, by)
	queen := NewPiece(Queen, by)
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := offset(cur, d)
			if !ok {
				break
			}
			p := b.squares[next]
			if p == NoPiece {
				cur = next
				continue
			}
			if p == slider || p == queen {
				return true
			}
			break
		}
	}
	return false
}
