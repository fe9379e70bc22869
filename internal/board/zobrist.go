package board

// Zobrist keys for position hashing. A fixed-seed PRNG keeps keys
// reproducible across runs, which the persistent table cache relies on.
var (
	zobristPiece      [12][64]uint64
	zobristCastling   [16]uint64
	zobristEnPassant  [8]uint64 // keyed by file
	zobristSideToMove uint64
)

// xorshift64* with a fixed seed.
type zobristRNG struct {
	state uint64
}

func (r *zobristRNG) next() uint64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return r.state * 0x2545F4914F6CDD1D
}

func init() {
	rng := zobristRNG{state: 0xD1CE5BADC0FFEE07}

	for p := WhitePawn; p < NoPiece; p++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[p][sq] = rng.next()
		}
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	for f := range zobristEnPassant {
		zobristEnPassant[f] = rng.next()
	}
	zobristSideToMove = rng.next()
}

// computeKey rebuilds the Zobrist key from scratch. Apply/Undo maintain the
// key incrementally; this is the reference used after FEN parsing and in tests.
func (b *Board) computeKey() uint64 {
	var key uint64
	for sq := A1; sq <= H8; sq++ {
		if p := b.squares[sq]; p != NoPiece {
			key ^= zobristPiece[p][sq]
		}
	}
	key ^= zobristCastling[b.castling]
	if b.epSquare != NoSquare {
		key ^= zobristEnPassant[b.epSquare.File()]
	}
	if b.side == Black {
		key ^= zobristSideToMove
	}
	return key
}
