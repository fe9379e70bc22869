package board

import "testing"

func mustParse(t *testing.T, fen string) *Board {
	t.Helper()
	b, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return b
}

// TestApplyUndoRoundTrip walks every legal move to depth 2 and verifies the
// board state (including the incremental hash key) is restored exactly.
func TestApplyUndoRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
		"n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	}

	for _, fen := range fens {
		b := mustParse(t, fen)
		roundTrip(t, b, 2)
	}
}

func roundTrip(t *testing.T, b *Board, depth int) {
	if depth == 0 {
		return
	}
	saved := *b
	moves := b.LegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo, err := b.Apply(m)
		if err != nil {
			t.Fatalf("Apply(%v) on %s: %v", m, saved.FEN(), err)
		}
		roundTrip(t, b, depth-1)
		b.Undo(undo)
		if *b != saved {
			t.Fatalf("undo of %v did not restore board:\n got %s key=%016x\nwant %s key=%016x",
				m, b.FEN(), b.Key(), saved.FEN(), saved.Key())
		}
	}
}

// The incremental key after a move must equal the key computed from scratch.
func TestIncrementalKeyMatchesRecompute(t *testing.T) {
	b := New()
	moves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "g8f6", "e1g1", "f6e4"}
	for _, ms := range moves {
		m, err := ParseMove(ms, b)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", ms, err)
		}
		if _, err := b.Apply(m); err != nil {
			t.Fatalf("Apply(%s): %v", ms, err)
		}
		fresh := mustParse(t, b.FEN())
		if b.Key() != fresh.Key() {
			t.Errorf("after %s: incremental key %016x != recomputed %016x", ms, b.Key(), fresh.Key())
		}
	}
}

func TestApplyRejectsContractViolations(t *testing.T) {
	b := New()

	// No piece of the side to move on the from square.
	if _, err := b.Apply(NewMove(E5, E6)); err == nil {
		t.Error("expected error for empty from square")
	}
	// Opponent piece on the from square.
	if _, err := b.Apply(NewMove(E7, E5)); err == nil {
		t.Error("expected error for opponent piece on from square")
	}
	// Capturing an own piece.
	if _, err := b.Apply(NewMove(D1, D2)); err == nil {
		t.Error("expected error for capturing own piece")
	}
	// A rejected move must leave the board untouched.
	if b.FEN() != StartFEN {
		t.Errorf("board mutated by rejected move: %s", b.FEN())
	}
}

func TestCastlingRightsUpdates(t *testing.T) {
	b := mustParse(t, "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")

	// Moving the king forfeits both rights.
	undo, err := b.Apply(NewMove(E1, D1))
	if err != nil {
		t.Fatal(err)
	}
	if b.Castling().CanCastle(White, true) || b.Castling().CanCastle(White, false) {
		t.Errorf("king move should forfeit both castling rights, got %v", b.Castling())
	}
	b.Undo(undo)

	// Moving the h-rook forfeits only king side.
	if _, err := b.Apply(NewMove(H1, G1)); err != nil {
		t.Fatal(err)
	}
	if b.Castling().CanCastle(White, true) {
		t.Error("h-rook move should forfeit king side castling")
	}
	if !b.Castling().CanCastle(White, false) {
		t.Error("h-rook move should keep queen side castling")
	}
}

func TestCastlingMovesRook(t *testing.T) {
	b := mustParse(t, "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")
	if _, err := b.Apply(NewCastling(E1, G1)); err != nil {
		t.Fatal(err)
	}
	if b.PieceAt(F1) != NewPiece(Rook, White) {
		t.Errorf("rook should be on f1 after O-O, got %v", b.PieceAt(F1))
	}
	if b.PieceAt(H1) != NoPiece {
		t.Errorf("h1 should be empty after O-O, got %v", b.PieceAt(H1))
	}
	if b.PieceAt(G1) != NewPiece(King, White) {
		t.Errorf("king should be on g1 after O-O, got %v", b.PieceAt(G1))
	}
}

func TestEnPassantCaptureRemovesPawn(t *testing.T) {
	b := mustParse(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	if _, err := b.Apply(NewEnPassant(E5, F6)); err != nil {
		t.Fatal(err)
	}
	if b.PieceAt(F5) != NoPiece {
		t.Errorf("captured pawn should be removed from f5, got %v", b.PieceAt(F5))
	}
	if b.PieceAt(F6) != NewPiece(Pawn, White) {
		t.Errorf("capturing pawn should be on f6, got %v", b.PieceAt(F6))
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"4k3/8/8/8/8/8/8/4K2R w K - 37 92",
	}
	for _, fen := range fens {
		b := mustParse(t, fen)
		if got := b.FEN(); got != fen {
			t.Errorf("FEN round trip:\n got %s\nwant %s", got, fen)
		}
	}
}

func TestFromFENRejectsInvalid(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP", // too few fields
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", // bad side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNZ w KQkq - 0 1", // bad piece
		"rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", // missing black king
	}
	for _, fen := range bad {
		if _, err := FromFEN(fen); err == nil {
			t.Errorf("FromFEN(%q) should fail", fen)
		}
	}
}

func TestFiftyMoveDraw(t *testing.T) {
	b := mustParse(t, "4k3/8/8/8/8/8/8/4K2R w K - 99 92")
	if b.IsFiftyMoveDraw() {
		t.Error("99 half moves is not yet a draw")
	}
	if _, err := b.Apply(NewMove(E1, D1)); err != nil {
		t.Fatal(err)
	}
	if !b.IsFiftyMoveDraw() {
		t.Error("100 half moves should be a draw")
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},     // K vs K
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},    // K+N vs K
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},    // K+B vs K
		{"4k3/8/8/8/8/8/8/2B1KB2 w - - 0 1", false}, // two bishops, opposite colors
		{"2b1k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},  // same-color bishops
		{"4k3/8/8/8/8/8/8/4KP2 w - - 0 1", false},   // pawn mates are possible
		{"4k3/8/8/8/8/8/8/4KR2 w - - 0 1", false},   // rook
		{"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},  // two knights kept as not-draw
		{StartFEN, false},
	}
	for _, tc := range tests {
		b := mustParse(t, tc.fen)
		if got := b.IsInsufficientMaterial(); got != tc.want {
			t.Errorf("IsInsufficientMaterial(%s) = %v, want %v", tc.fen, got, tc.want)
		}
	}
}

func TestParseMoveClassifies(t *testing.T) {
	b := mustParse(t, "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")
	m, err := ParseMove("e1g1", b)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsCastling() {
		t.Error("e1g1 from the home square should parse as castling")
	}

	b = mustParse(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	m, err = ParseMove("e5f6", b)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEnPassant() {
		t.Error("e5f6 to the en passant square should parse as en passant")
	}

	b = mustParse(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	m, err = ParseMove("a7a8q", b)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsPromotion() || m.Promotion() != Queen {
		t.Errorf("a7a8q should parse as queen promotion, got %v", m)
	}

	if _, err := ParseMove("e9e4", b); err == nil {
		t.Error("ParseMove should reject malformed squares")
	}
}
