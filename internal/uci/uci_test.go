package uci

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/skewer-chess/skewer/internal/board"
	"github.com/skewer-chess/skewer/internal/book"
	"github.com/skewer-chess/skewer/internal/engine"
)

func newTestHandler(t *testing.T) *UCI {
	t.Helper()
	u, err := New(engine.Options{HashMB: 16, Threads: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return u
}

func TestPositionStartposWithMoves(t *testing.T) {
	u := newTestHandler(t)

	u.handlePosition([]string{"startpos", "moves", "e2e4", "e7e5", "g1f3"})

	want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	if got := u.pos.FEN(); got != want {
		t.Errorf("position after moves:\n got %s\nwant %s", got, want)
	}
	if len(u.keys) != 4 {
		t.Errorf("key history has %d entries, want 4", len(u.keys))
	}
}

func TestPositionFromFEN(t *testing.T) {
	u := newTestHandler(t)

	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	args := append([]string{"fen"}, strings.Fields(fen)...)
	u.handlePosition(args)

	if got := u.pos.FEN(); got != fen {
		t.Errorf("position fen:\n got %s\nwant %s", got, fen)
	}
}

func TestPositionFENWithMoves(t *testing.T) {
	u := newTestHandler(t)

	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	args := append([]string{"fen"}, strings.Fields(fen)...)
	args = append(args, "moves", "e2e4")
	u.handlePosition(args)

	if u.pos.PieceAt(board.E4) != board.NewPiece(board.Pawn, board.White) {
		t.Errorf("pawn not on e4 after move: %s", u.pos.FEN())
	}
	if u.pos.SideToMove() != board.Black {
		t.Error("side to move should be black after e2e4")
	}
}

func TestIllegalMoveStopsProcessing(t *testing.T) {
	u := newTestHandler(t)

	// e2e5 is not a legal move; everything after it must be ignored and the
	// position left at the last good state.
	u.handlePosition([]string{"startpos", "moves", "e2e4", "e2e5", "d7d5"})

	if u.pos.PieceAt(board.E4) != board.NewPiece(board.Pawn, board.White) {
		t.Errorf("legal prefix not applied: %s", u.pos.FEN())
	}
	if u.pos.PieceAt(board.D5) != board.NoPiece {
		t.Errorf("moves after the illegal one were applied: %s", u.pos.FEN())
	}
}

func TestPlayMoveRejectsIllegal(t *testing.T) {
	u := newTestHandler(t)

	if err := u.playMove("e2e5"); err == nil {
		t.Error("expected error for illegal move")
	}
	if err := u.playMove("zz99"); err == nil {
		t.Error("expected error for malformed move")
	}
	if err := u.playMove("e2e4"); err != nil {
		t.Errorf("legal move rejected: %v", err)
	}
}

func TestSetOptionRebuildsEngine(t *testing.T) {
	u := newTestHandler(t)
	before := u.engine

	u.handleSetOption([]string{"name", "Hash", "value", "32"})
	if u.engine == before {
		t.Error("Hash change should rebuild the engine")
	}
	if u.opts.HashMB != 32 {
		t.Errorf("HashMB = %d, want 32", u.opts.HashMB)
	}

	// Out-of-range values are rejected and the engine kept.
	current := u.engine
	u.handleSetOption([]string{"name", "Threads", "value", "9999"})
	if u.engine != current {
		t.Error("invalid option value should keep the current engine")
	}
}

func TestSetOptionPreservesEvalWeights(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.HashMB = 16
	u, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	u.handleSetOption([]string{"name", "Hash", "value", "32"})

	if u.opts.Eval != engine.DefaultEvalConfig() {
		t.Errorf("rebuilt engine lost the evaluation weights: %+v", u.opts.Eval)
	}
}

func TestGoWithoutArgumentsIsUnbounded(t *testing.T) {
	u := newTestHandler(t)

	limits := u.parseGoLimits(nil)
	if !limits.Infinite {
		t.Error("a bare go must search until stopped, not run a zero-ply budget")
	}
}

func TestParseGoLimits(t *testing.T) {
	u := newTestHandler(t)

	limits := u.parseGoLimits([]string{"depth", "5"})
	if limits.Depth != 5 || limits.Infinite {
		t.Errorf("depth 5 parsed as %+v", limits)
	}

	limits = u.parseGoLimits([]string{"movetime", "250"})
	if limits.MoveTime != 250*time.Millisecond || limits.Infinite {
		t.Errorf("movetime 250 parsed as %+v", limits)
	}

	// A clock allocates a positive move time rather than falling through to
	// an unbounded search.
	limits = u.parseGoLimits([]string{"wtime", "60000", "btime", "60000", "winc", "1000", "binc", "1000"})
	if limits.MoveTime <= 0 || limits.Infinite {
		t.Errorf("clock parsed as %+v", limits)
	}
}

func TestBookMoveAnswersGoWithoutSearching(t *testing.T) {
	u := newTestHandler(t)

	// e2e4 in the book's move encoding for the starting position.
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, board.New().PolyglotKey())
	binary.Write(&buf, binary.BigEndian, uint16(4|3<<3|4<<6|1<<9))
	binary.Write(&buf, binary.BigEndian, uint16(100))
	binary.Write(&buf, binary.BigEndian, uint32(0))
	bk, err := book.LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}
	u.SetBook(bk)

	u.handleGo([]string{"depth", "3"})
	if u.searchDone != nil {
		t.Error("a book hit must answer directly instead of starting a search")
	}

	m, ok := u.book.Probe(u.pos)
	if !ok || m.From() != board.E2 || m.To() != board.E4 {
		t.Errorf("book probe = %s (%v), want e2e4", m, ok)
	}
}
