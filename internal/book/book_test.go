package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/skewer-chess/skewer/internal/board"
)

// encodeMove packs a move in the Polyglot bit layout.
func encodeMove(from, to board.Square) uint16 {
	return uint16(to.File()) | uint16(to.Rank())<<3 |
		uint16(from.File())<<6 | uint16(from.Rank())<<9
}

// writeEntry appends one 16-byte book entry to buf.
func writeEntry(buf *bytes.Buffer, key uint64, move uint16, weight uint16) {
	binary.Write(buf, binary.BigEndian, key)
	binary.Write(buf, binary.BigEndian, move)
	binary.Write(buf, binary.BigEndian, weight)
	binary.Write(buf, binary.BigEndian, uint32(0)) // learn data
}

func TestLoadAndProbe(t *testing.T) {
	b := board.New()

	var buf bytes.Buffer
	writeEntry(&buf, b.PolyglotKey(), encodeMove(board.E2, board.E4), 100)

	bk, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}
	if bk.Size() != 1 {
		t.Errorf("Size = %d, want 1", bk.Size())
	}

	m, found := bk.Probe(b)
	if !found {
		t.Fatal("expected a book hit for the starting position")
	}
	if m.From() != board.E2 || m.To() != board.E4 {
		t.Errorf("book move = %s, want e2e4", m)
	}
}

func TestProbeMiss(t *testing.T) {
	bk := New()
	b := board.New()

	m, found := bk.Probe(b)
	if found {
		t.Error("empty book should miss")
	}
	if m != board.NoMove {
		t.Errorf("miss returned %s, want 0000", m)
	}
}

func TestProbeRejectsIllegalBookMove(t *testing.T) {
	// The key matches but the stored move (e2e5) is not legal; the probe must
	// report a miss rather than hand out a move the position cannot play.
	b := board.New()

	var buf bytes.Buffer
	writeEntry(&buf, b.PolyglotKey(), encodeMove(board.E2, board.E5), 50)

	bk, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}
	if _, found := bk.Probe(b); found {
		t.Error("illegal book move must not be returned")
	}
}

func TestCastlingDecoding(t *testing.T) {
	// Polyglot stores castling as king-takes-rook (e1h1); the probed move
	// must come back as the generated castling move e1g1.
	b, err := board.FromFEN("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	writeEntry(&buf, b.PolyglotKey(), encodeMove(board.E1, board.H1), 10)

	bk, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}
	m, found := bk.Probe(b)
	if !found {
		t.Fatal("expected a book hit")
	}
	if !m.IsCastling() || m.From() != board.E1 || m.To() != board.G1 {
		t.Errorf("book move = %s, want castling e1g1", m)
	}
}

func TestPromotionDecoding(t *testing.T) {
	// Polyglot promotion codes: 1=knight .. 4=queen.
	b, err := board.FromFEN("8/4P1k1/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	writeEntry(&buf, b.PolyglotKey(), encodeMove(board.E7, board.E8)|4<<12, 10)

	bk, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}
	m, found := bk.Probe(b)
	if !found {
		t.Fatal("expected a book hit")
	}
	if !m.IsPromotion() || m.Promotion() != board.Queen {
		t.Errorf("book move = %s, want e7e8q", m)
	}
}

func TestProbeAllSortsByWeight(t *testing.T) {
	b := board.New()
	key := b.PolyglotKey()

	var buf bytes.Buffer
	writeEntry(&buf, key, encodeMove(board.E2, board.E4), 30)
	writeEntry(&buf, key, encodeMove(board.D2, board.D4), 90)
	writeEntry(&buf, key, encodeMove(board.G1, board.F3), 60)

	bk, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}

	entries := bk.ProbeAll(b)
	if len(entries) != 3 {
		t.Fatalf("ProbeAll returned %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Weight > entries[i-1].Weight {
			t.Errorf("entries not sorted by weight: %d before %d",
				entries[i-1].Weight, entries[i].Weight)
		}
	}
	if got := entries[0].Move; got.From() != board.D2 || got.To() != board.D4 {
		t.Errorf("heaviest move = %s, want d2d4", got)
	}
}

func TestTruncatedBookFails(t *testing.T) {
	buf := bytes.NewReader([]byte{0x01, 0x02, 0x03})
	if _, err := LoadPolyglotReader(buf); err == nil {
		t.Error("expected an error for a truncated book")
	}
}
