package board

// Polyglot-style hashing for opening-book lookups. The keys are kept
// separate from the search Zobrist keys so book files stay valid even when
// the search hashing changes. Same per-file en-passant and KQkq castling
// structure as the Polyglot format; the random table comes from a fixed-seed
// PRNG, so books must be built against this engine's key generator.
var (
	polyglotPiece      [12][64]uint64
	polyglotCastling   [4]uint64 // KQkq order
	polyglotEnPassant  [8]uint64 // keyed by file
	polyglotSideToMove uint64
)

func init() {
	rng := zobristRNG{state: 0x37B4A4B3F0D1C0D0}

	for p := WhitePawn; p < NoPiece; p++ {
		for sq := A1; sq <= H8; sq++ {
			polyglotPiece[p][sq] = rng.next()
		}
	}
	for i := range polyglotCastling {
		polyglotCastling[i] = rng.next()
	}
	for f := range polyglotEnPassant {
		polyglotEnPassant[f] = rng.next()
	}
	polyglotSideToMove = rng.next()
}

// PolyglotKey computes the book hash of the position. Unlike the search key,
// the en-passant file only contributes when a pawn can actually make the
// capture, so transpositions that differ only in an unusable en-passant
// square hash identically.
func (b *Board) PolyglotKey() uint64 {
	var key uint64
	for sq := A1; sq <= H8; sq++ {
		if p := b.squares[sq]; p != NoPiece {
			key ^= polyglotPiece[p][sq]
		}
	}

	for i := 0; i < 4; i++ {
		if b.castling&(1<<i) != 0 {
			key ^= polyglotCastling[i]
		}
	}

	if b.epSquare != NoSquare && b.epCapturable() {
		key ^= polyglotEnPassant[b.epSquare.File()]
	}

	if b.side == White {
		key ^= polyglotSideToMove
	}
	return key
}

// epCapturable reports whether a pawn of the side to move stands next to the
// en-passant square, ready to capture onto it.
func (b *Board) epCapturable() bool {
	// The capturing pawn sits on the rank the captured pawn landed on, one
	// file to either side.
	rank := 4
	if b.side == Black {
		rank = 3
	}
	pawn := NewPiece(Pawn, b.side)
	file := b.epSquare.File()
	if file > 0 && b.squares[NewSquare(file-1, rank)] == pawn {
		return true
	}
	if file < 7 && b.squares[NewSquare(file+1, rank)] == pawn {
		return true
	}
	return false
}
