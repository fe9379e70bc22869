package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5   from square
// bits 6-11  to square
// bits 12-13 promotion piece (0=Knight .. 3=Queen)
// bits 14-15 flag (normal, promotion, en passant, castling)
type Move uint16

const (
	flagNormal    uint16 = 0 << 14
	flagPromotion uint16 = 1 << 14
	flagEnPassant uint16 = 2 << 14
	flagCastling  uint16 = 3 << 14
)

// NoMove is the zero move, used as a sentinel.
const NoMove Move = 0

// NewMove builds a plain move from one square to another.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion builds a pawn promotion to the given piece type.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(flagPromotion)
}

// NewEnPassant builds an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagEnPassant)
}

// NewCastling builds a castling move, given the king's from/to squares.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Promotion returns the promotion piece type. Only meaningful when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return uint16(m)&0xC000 == flagPromotion
}

// IsEnPassant reports whether the move is an en passant capture.
func (m Move) IsEnPassant() bool {
	return uint16(m)&0xC000 == flagEnPassant
}

// IsCastling reports whether the move castles.
func (m Move) IsCastling() bool {
	return uint16(m)&0xC000 == flagCastling
}

// String returns the move in coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseMove parses coordinate notation against the given board, classifying
// castling and en passant from the position. The result is not checked for
// legality; callers validate against generated legal moves.
func ParseMove(s string, b *Board) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece %q", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := b.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece on %s", from)
	}
	switch {
	case piece.Type() == King && abs(int(to)-int(from)) == 2:
		return NewCastling(from, to), nil
	case piece.Type() == Pawn && to == b.epSquare && to != NoSquare:
		return NewEnPassant(from, to), nil
	}
	return NewMove(from, to), nil
}

// IsCapture reports whether the move captures a piece on the given board.
func (m Move) IsCapture(b *Board) bool {
	return m.IsEnPassant() || b.PieceAt(m.To()) != NoPiece
}

// maxMoves bounds the number of legal moves in any chess position (218 is the
// known maximum; 256 leaves headroom for pseudo-legal lists).
const maxMoves = 256

// MoveList is a fixed-capacity move list reused across generation calls to
// keep the search free of per-node allocations.
type MoveList struct {
	moves [maxMoves]Move
	count int
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves held.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap exchanges two moves.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list without releasing storage.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether the list holds the given move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the held moves as a slice backed by the list's storage.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
