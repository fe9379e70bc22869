// Package book loads Polyglot-format opening books and probes them by
// position key. Book moves are validated against the generated legal moves
// before they are handed out, so a stale or corrupt book can never inject an
// illegal move.
package book

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/skewer-chess/skewer/internal/board"
)

// Entry is one book move with its selection weight.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book maps position keys to their known moves.
type Book struct {
	entries map[uint64][]Entry
}

// New returns an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// LoadPolyglot reads a Polyglot book file.
func LoadPolyglot(filename string) (*Book, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bk, err := LoadPolyglotReader(f)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", filename, err)
	}
	return bk, nil
}

// LoadPolyglotReader reads Polyglot entries from r until EOF. Each entry is
// 16 bytes big-endian: position key (8), move (2), weight (2), learn
// data (4, ignored).
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	bk := New()

	var raw [16]byte
	for {
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			if err == io.EOF {
				return bk, nil
			}
			return nil, err
		}

		key := binary.BigEndian.Uint64(raw[0:8])
		move := decodeMove(binary.BigEndian.Uint16(raw[8:10]))
		weight := binary.BigEndian.Uint16(raw[10:12])

		if move != board.NoMove {
			bk.entries[key] = append(bk.entries[key], Entry{Move: move, Weight: weight})
		}
	}
}

// decodeMove unpacks the Polyglot move encoding:
// bits 0-2 to file, 3-5 to rank, 6-8 from file, 9-11 from rank,
// 12-14 promotion (0=none, 1=knight .. 4=queen).
func decodeMove(data uint16) board.Move {
	to := board.NewSquare(int(data&7), int(data>>3)&7)
	from := board.NewSquare(int(data>>6)&7, int(data>>9)&7)
	promo := (data >> 12) & 7

	// Polyglot encodes castling as king-takes-rook; convert to the king's
	// actual destination.
	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 && promo < 5 {
		return board.NewPromotion(from, to, board.Knight+board.PieceType(promo-1))
	}
	return board.NewMove(from, to)
}

// Probe returns a book move for the position, picked by weighted random
// selection among the known moves, or false when the position is out of book.
func (bk *Book) Probe(b *board.Board) (board.Move, bool) {
	if bk == nil {
		return board.NoMove, false
	}
	entries, ok := bk.entries[b.PolyglotKey()]
	if !ok || len(entries) == 0 {
		return board.NoMove, false
	}

	total := uint32(0)
	for _, e := range entries {
		total += uint32(e.Weight)
	}
	if total == 0 {
		return legalize(b, entries[0].Move)
	}

	r := rand.Uint32() % total
	acc := uint32(0)
	for _, e := range entries {
		acc += uint32(e.Weight)
		if r < acc {
			return legalize(b, e.Move)
		}
	}
	return legalize(b, entries[0].Move)
}

// ProbeAll returns every book move for the position, heaviest first.
func (bk *Book) ProbeAll(b *board.Board) []Entry {
	if bk == nil {
		return nil
	}
	entries := bk.entries[b.PolyglotKey()]
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// Size returns the number of positions the book knows.
func (bk *Book) Size() int {
	if bk == nil {
		return 0
	}
	return len(bk.entries)
}

// legalize matches a decoded book move against the generated legal moves so
// the returned move carries the right castling/en-passant flags, and drops
// moves the position cannot actually play.
func legalize(b *board.Board, m board.Move) (board.Move, bool) {
	legal := b.LegalMoves()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Get(i)
		if lm.From() != m.From() || lm.To() != m.To() {
			continue
		}
		if lm.IsPromotion() != m.IsPromotion() {
			continue
		}
		if lm.IsPromotion() && lm.Promotion() != m.Promotion() {
			continue
		}
		return lm, true
	}
	return board.NoMove, false
}
