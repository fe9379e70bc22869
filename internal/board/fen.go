package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FromFEN parses a FEN string into a Board. The half-move clock and full-move
// number fields are optional, as in many GUIs and test suites.
func FromFEN(fen string) (*Board, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	b := &Board{
		epSquare:       NoSquare,
		fullMoveNumber: 1,
	}
	for sq := range b.squares {
		b.squares[sq] = NoPiece
	}
	b.kings[White] = NoSquare
	b.kings[Black] = NoSquare

	if err := b.parsePlacement(parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		b.side = White
	case "b":
		b.side = Black
	default:
		return nil, fmt.Errorf("invalid side to move %q", parts[1])
	}

	if err := b.parseCastling(parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square %q", parts[3])
		}
		b.epSquare = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock %q", parts[4])
		}
		b.halfMoveClock = hmc
	}
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number %q", parts[5])
		}
		b.fullMoveNumber = fmn
	}

	if b.kings[White] == NoSquare || b.kings[Black] == NoSquare {
		return nil, fmt.Errorf("invalid FEN: each side needs exactly one king")
	}

	b.key = b.computeKey()
	return b, nil
}

func (b *Board) parsePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}
			ch := rankStr[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			p := PieceFromChar(ch)
			if p == NoPiece {
				return fmt.Errorf("invalid piece character %q", ch)
			}
			sq := NewSquare(file, rank)
			if p.Type() == King {
				if b.kings[p.Color()] != NoSquare {
					return fmt.Errorf("invalid FEN: duplicate %s king", p.Color())
				}
				b.kings[p.Color()] = sq
			}
			b.squares[sq] = p
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d covers %d squares, want 8", rank+1, file)
		}
	}
	return nil
}

func (b *Board) parseCastling(castling string) error {
	if castling == "-" {
		b.castling = NoCastling
		return nil
	}
	for _, ch := range castling {
		switch ch {
		case 'K':
			b.castling |= WhiteKingSide
		case 'Q':
			b.castling |= WhiteQueenSide
		case 'k':
			b.castling |= BlackKingSide
		case 'q':
			b.castling |= BlackQueenSide
		default:
			return fmt.Errorf("invalid castling character %q", ch)
		}
	}
	return nil
}

// FEN serializes the position back to FEN.
func (b *Board) FEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.squares[NewSquare(file, rank)]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if b.side == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(b.castling.String())
	sb.WriteByte(' ')
	sb.WriteString(b.epSquare.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.halfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.fullMoveNumber))

	return sb.String()
}
