package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove reports that Apply was handed a move that does not fit the
// current position. The engine only applies generated moves, so hitting this
// from inside the search is a programming error; external callers validate
// user moves against LegalMoves before applying them.
var ErrIllegalMove = errors.New("illegal move")

// CastlingRights is a bitmask of the castling options still available.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide
	NoCastling  CastlingRights = 0
	AllCastling CastlingRights = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// CanCastle reports whether the given side may still castle to the given wing.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	switch {
	case c == White && kingSide:
		return cr&WhiteKingSide != 0
	case c == White:
		return cr&WhiteQueenSide != 0
	case kingSide:
		return cr&BlackKingSide != 0
	default:
		return cr&BlackQueenSide != 0
	}
}

// String returns the FEN castling field, "-" when no rights remain.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			s += string(ch)
		}
	}
	return s
}

// castlingMask[sq] holds the rights that are lost when a move touches sq.
// Covers king moves, rook moves and rook captures in one lookup.
var castlingMask [64]CastlingRights

func init() {
	castlingMask[A1] = WhiteQueenSide
	castlingMask[E1] = WhiteKingSide | WhiteQueenSide
	castlingMask[H1] = WhiteKingSide
	castlingMask[A8] = BlackQueenSide
	castlingMask[E8] = BlackKingSide | BlackQueenSide
	castlingMask[H8] = BlackKingSide
}

// Board is a mutable chess position. All mutation goes through Apply/Undo;
// the search mutates a single Board in place and unwinds with strict stack
// discipline instead of copying a position per node.
type Board struct {
	squares [64]Piece
	kings   [2]Square

	side           Color
	castling       CastlingRights
	epSquare       Square
	halfMoveClock  int
	fullMoveNumber int

	key uint64
}

// New returns the standard starting position.
func New() *Board {
	b, _ := FromFEN(StartFEN)
	return b
}

// Copy returns an independent deep copy. Parallel root workers each search
// their own copy while sharing the transposition table.
func (b *Board) Copy() *Board {
	dup := *b
	return &dup
}

// PieceAt returns the piece on sq, NoPiece when empty.
func (b *Board) PieceAt(sq Square) Piece {
	return b.squares[sq]
}

// SideToMove returns the color to move.
func (b *Board) SideToMove() Color {
	return b.side
}

// Key returns the Zobrist key of the position, covering piece placement,
// side to move, castling rights and the en passant file.
func (b *Board) Key() uint64 {
	return b.key
}

// Castling returns the remaining castling rights.
func (b *Board) Castling() CastlingRights {
	return b.castling
}

// EnPassant returns the en passant target square, NoSquare if none.
func (b *Board) EnPassant() Square {
	return b.epSquare
}

// HalfMoveClock returns the number of half-moves since the last pawn move or
// capture, for the fifty-move rule.
func (b *Board) HalfMoveClock() int {
	return b.halfMoveClock
}

// FullMoveNumber returns the full move counter, starting at 1.
func (b *Board) FullMoveNumber() int {
	return b.fullMoveNumber
}

// KingSquare returns the square of the given side's king.
func (b *Board) KingSquare(c Color) Square {
	return b.kings[c]
}

// InCheck reports whether the given side's king is attacked.
func (b *Board) InCheck(c Color) bool {
	return b.IsSquareAttacked(b.kings[c], c.Other())
}

// Undo captures exactly the state a move destroys. It is opaque to callers
// and must be handed back to Board.Undo in strict reverse order of Apply.
type Undo struct {
	move          Move
	captured      Piece
	castling      CastlingRights
	epSquare      Square
	halfMoveClock int
	key           uint64
}

// Move returns the move this token undoes.
func (u Undo) Move() Move {
	return u.move
}

// Captured returns the piece the move removed, NoPiece for quiet moves.
func (u Undo) Captured() Piece {
	return u.captured
}

func (b *Board) putPiece(p Piece, sq Square) {
	b.squares[sq] = p
	b.key ^= zobristPiece[p][sq]
	if p.Type() == King {
		b.kings[p.Color()] = sq
	}
}

func (b *Board) removePiece(sq Square) {
	p := b.squares[sq]
	b.key ^= zobristPiece[p][sq]
	b.squares[sq] = NoPiece
}

func (b *Board) shiftPiece(from, to Square) {
	p := b.squares[from]
	b.key ^= zobristPiece[p][from] ^ zobristPiece[p][to]
	b.squares[from] = NoPiece
	b.squares[to] = p
	if p.Type() == King {
		b.kings[p.Color()] = to
	}
}

// rookCastlingSquares maps the king's destination square to the rook's
// from/to squares for that castle.
func rookCastlingSquares(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default: // C8
		return A8, D8
	}
}

// Apply plays the move on the board and returns the token that inverts it.
// It fails with ErrIllegalMove only on contract violations (a move that was
// not generated for this exact position); it does not re-validate legality.
func (b *Board) Apply(m Move) (Undo, error) {
	from, to := m.From(), m.To()
	piece := b.squares[from]

	// Contract checks only: the mover must own the piece and must not land
	// on its own material. Full legality is the generator's job.
	if piece == NoPiece || piece.Color() != b.side {
		return Undo{}, fmt.Errorf("%w: no %s piece on %s", ErrIllegalMove, b.side, from)
	}
	if dst := b.squares[to]; dst != NoPiece && dst.Color() == b.side {
		return Undo{}, fmt.Errorf("%w: %s lands on own piece", ErrIllegalMove, m)
	}

	u := Undo{
		move:          m,
		captured:      NoPiece,
		castling:      b.castling,
		epSquare:      b.epSquare,
		halfMoveClock: b.halfMoveClock,
		key:           b.key,
	}

	us := b.side
	if b.epSquare != NoSquare {
		b.key ^= zobristEnPassant[b.epSquare.File()]
	}
	b.epSquare = NoSquare
	b.halfMoveClock++

	switch {
	case m.IsCastling():
		rookFrom, rookTo := rookCastlingSquares(to)
		b.shiftPiece(from, to)
		b.shiftPiece(rookFrom, rookTo)

	case m.IsEnPassant():
		capSq := to
		if us == White {
			capSq -= 8
		} else {
			capSq += 8
		}
		u.captured = b.squares[capSq]
		b.removePiece(capSq)
		b.shiftPiece(from, to)
		b.halfMoveClock = 0

	default:
		if b.squares[to] != NoPiece {
			u.captured = b.squares[to]
			b.removePiece(to)
			b.halfMoveClock = 0
		}
		if m.IsPromotion() {
			b.removePiece(from)
			b.putPiece(NewPiece(m.Promotion(), us), to)
			b.halfMoveClock = 0
		} else {
			b.shiftPiece(from, to)
			if piece.Type() == Pawn {
				b.halfMoveClock = 0
				if abs(int(to)-int(from)) == 16 {
					b.epSquare = Square((int(from) + int(to)) / 2)
					b.key ^= zobristEnPassant[b.epSquare.File()]
				}
			}
		}
	}

	if mask := castlingMask[from] | castlingMask[to]; b.castling&mask != 0 {
		b.key ^= zobristCastling[b.castling]
		b.castling &^= mask
		b.key ^= zobristCastling[b.castling]
	}

	if us == Black {
		b.fullMoveNumber++
	}
	b.side = us.Other()
	b.key ^= zobristSideToMove

	return u, nil
}

// Undo restores the exact state before the Apply that produced u, including
// castling rights, en passant target, clocks and the Zobrist key. Tokens must
// be replayed in strict reverse order of their Apply calls.
func (b *Board) Undo(u Undo) {
	m := u.move
	from, to := m.From(), m.To()

	b.side = b.side.Other()
	us := b.side
	if us == Black {
		b.fullMoveNumber--
	}

	switch {
	case m.IsCastling():
		rookFrom, rookTo := rookCastlingSquares(to)
		b.unshift(to, from)
		b.unshift(rookTo, rookFrom)

	case m.IsEnPassant():
		capSq := to
		if us == White {
			capSq -= 8
		} else {
			capSq += 8
		}
		b.unshift(to, from)
		b.squares[capSq] = u.captured

	case m.IsPromotion():
		b.squares[to] = NoPiece
		b.squares[from] = NewPiece(Pawn, us)
		if u.captured != NoPiece {
			b.squares[to] = u.captured
		}

	default:
		b.unshift(to, from)
		if u.captured != NoPiece {
			b.squares[to] = u.captured
		}
	}

	b.castling = u.castling
	b.epSquare = u.epSquare
	b.halfMoveClock = u.halfMoveClock
	b.key = u.key
}

// unshift moves a piece back without touching the key; Undo restores the key
// wholesale from the token.
func (b *Board) unshift(from, to Square) {
	p := b.squares[from]
	b.squares[from] = NoPiece
	b.squares[to] = p
	if p.Type() == King {
		b.kings[p.Color()] = to
	}
}

// IsFiftyMoveDraw reports whether the fifty-move rule applies.
func (b *Board) IsFiftyMoveDraw() bool {
	return b.halfMoveClock >= 100
}

// IsInsufficientMaterial reports draws by bare kings, king+minor vs king and
// king+bishop vs king+bishop with both bishops on same-colored squares.
func (b *Board) IsInsufficientMaterial() bool {
	knights, bishops := 0, 0
	var bishopColors [2]int // squares colors seen: [dark, light]
	for sq := A1; sq <= H8; sq++ {
		p := b.squares[sq]
		if p == NoPiece {
			continue
		}
		switch p.Type() {
		case King:
		case Knight:
			knights++
		case Bishop:
			bishops++
			bishopColors[(sq.File()+sq.Rank())%2]++
		default:
			return false
		}
	}
	if knights+bishops <= 1 {
		return true
	}
	// Bishops only, all on one square color: no mate is possible.
	if knights == 0 && (bishopColors[0] == 0 || bishopColors[1] == 0) {
		return true
	}
	return false
}

// String renders the board with coordinates, for debug output.
func (b *Board) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			p := b.squares[NewSquare(file, rank)]
			if p == NoPiece {
				s += ". "
			} else {
				s += p.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("Side to move: %s\n", b.side)
	s += fmt.Sprintf("Castling: %s  En passant: %s\n", b.castling, b.epSquare)
	s += fmt.Sprintf("Half-move clock: %d  Full move: %d\n", b.halfMoveClock, b.fullMoveNumber)
	s += fmt.Sprintf("Key: %016x\n", b.key)
	return s
}
