package board

// LegalMoves returns the complete set of legal moves for the side to move.
// The order is unspecified, except that captures and promotions come out
// grouped ahead of quiet moves, which keeps downstream ordering cheap.
func (b *Board) LegalMoves() *MoveList {
	ml := &MoveList{}
	b.LegalMovesInto(ml)
	return ml
}

// LegalMovesInto fills ml with all legal moves, reusing its storage. Search
// code keeps a per-ply scratch list to avoid allocating inside the tree.
func (b *Board) LegalMovesInto(ml *MoveList) {
	ml.Clear()
	b.generateCaptures(ml)
	b.generateQuiets(ml)
	b.filterLegal(ml)
}

// CapturesInto fills ml with legal captures and promotions, the move set
// quiescence search extends.
func (b *Board) CapturesInto(ml *MoveList) {
	ml.Clear()
	b.generateCaptures(ml)
	b.filterLegal(ml)
}

// HasLegalMoves reports whether the side to move has any legal move.
func (b *Board) HasLegalMoves() bool {
	var ml MoveList
	b.LegalMovesInto(&ml)
	return ml.Len() > 0
}

// IsCheckmate reports whether the side to move is checkmated.
func (b *Board) IsCheckmate() bool {
	return b.InCheck(b.side) && !b.HasLegalMoves()
}

// IsStalemate reports whether the side to move is stalemated.
func (b *Board) IsStalemate() bool {
	return !b.InCheck(b.side) && !b.HasLegalMoves()
}

// pawnPush returns the single-push direction for color c.
func pawnPush(c Color) int {
	if c == White {
		return 8
	}
	return -8
}

// generateCaptures emits pseudo-legal captures, en passant and promotions.
func (b *Board) generateCaptures(ml *MoveList) {
	us := b.side
	them := us.Other()
	push := pawnPush(us)

	for sq := A1; sq <= H8; sq++ {
		p := b.squares[sq]
		if p == NoPiece || p.Color() != us {
			continue
		}

		switch p.Type() {
		case Pawn:
			promoRank := 7
			if us == Black {
				promoRank = 0
			}
			for _, s := range pawnCaptureSteps(us) {
				to, ok := offset(sq, s)
				if !ok {
					continue
				}
				if to == b.epSquare {
					ml.Add(NewEnPassant(sq, to))
					continue
				}
				dst := b.squares[to]
				if dst == NoPiece || dst.Color() != them {
					continue
				}
				if to.Rank() == promoRank {
					addPromotions(ml, sq, to)
				} else {
					ml.Add(NewMove(sq, to))
				}
			}
			// Quiet promotions count as "loud": a new queen changes the
			// material balance as much as most captures do.
			if to := Square(int(sq) + push); to.IsValid() && to.Rank() == promoRank && b.squares[to] == NoPiece {
				addPromotions(ml, sq, to)
			}

		case Knight:
			for _, to := range knightDests[sq] {
				if dst := b.squares[to]; dst != NoPiece && dst.Color() == them {
					ml.Add(NewMove(sq, to))
				}
			}

		case King:
			for _, to := range kingDests[sq] {
				if dst := b.squares[to]; dst != NoPiece && dst.Color() == them {
					ml.Add(NewMove(sq, to))
				}
			}

		case Bishop:
			b.slideCaptures(ml, sq, bishopSteps[:])
		case Rook:
			b.slideCaptures(ml, sq, rookSteps[:])
		case Queen:
			b.slideCaptures(ml, sq, bishopSteps[:])
			b.slideCaptures(ml, sq, rookSteps[:])
		}
	}
}

// generateQuiets emits pseudo-legal non-captures except promotions, which
// generateCaptures already covered.
func (b *Board) generateQuiets(ml *MoveList) {
	us := b.side
	push := pawnPush(us)

	for sq := A1; sq <= H8; sq++ {
		p := b.squares[sq]
		if p == NoPiece || p.Color() != us {
			continue
		}

		switch p.Type() {
		case Pawn:
			promoRank := 7
			startRank := 1
			if us == Black {
				promoRank = 0
				startRank = 6
			}
			to := Square(int(sq) + push)
			if to.IsValid() && b.squares[to] == NoPiece && to.Rank() != promoRank {
				ml.Add(NewMove(sq, to))
				if sq.Rank() == startRank {
					to2 := Square(int(to) + push)
					if b.squares[to2] == NoPiece {
						ml.Add(NewMove(sq, to2))
					}
				}
			}

		case Knight:
			for _, to := range knightDests[sq] {
				if b.squares[to] == NoPiece {
					ml.Add(NewMove(sq, to))
				}
			}

		case King:
			for _, to := range kingDests[sq] {
				if b.squares[to] == NoPiece {
					ml.Add(NewMove(sq, to))
				}
			}
			b.generateCastling(ml, sq)

		case Bishop:
			b.slideQuiets(ml, sq, bishopSteps[:])
		case Rook:
			b.slideQuiets(ml, sq, rookSteps[:])
		case Queen:
			b.slideQuiets(ml, sq, bishopSteps[:])
			b.slideQuiets(ml, sq, rookSteps[:])
		}
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

func (b *Board) slideCaptures(ml *MoveList, sq Square, dirs []step) {
	them := b.side.Other()
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := offset(cur, d)
			if !ok {
				break
			}
			dst := b.squares[next]
			if dst == NoPiece {
				cur = next
				continue
			}
			if dst.Color() == them {
				ml.Add(NewMove(sq, next))
			}
			break
		}
	}
}

func (b *Board) slideQuiets(ml *MoveList, sq Square, dirs []step) {
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := offset(cur, d)
			if !ok || b.squares[next] != NoPiece {
				break
			}
			ml.Add(NewMove(sq, next))
			cur = next
		}
	}
}

// generateCastling emits castling moves whose path is clear and whose king
// does not castle out of or through check. The destination square is covered
// by the generic legality filter like any other king move.
func (b *Board) generateCastling(ml *MoveList, kingSq Square) {
	us := b.side
	them := us.Other()

	homeKing := E1
	if us == Black {
		homeKing = E8
	}
	if kingSq != homeKing || b.IsSquareAttacked(kingSq, them) {
		return
	}

	if b.castling.CanCastle(us, true) {
		f, g := homeKing+1, homeKing+2
		if b.squares[f] == NoPiece && b.squares[g] == NoPiece &&
			!b.IsSquareAttacked(f, them) {
			ml.Add(NewCastling(kingSq, g))
		}
	}
	if b.castling.CanCastle(us, false) {
		d, c, bSq := homeKing-1, homeKing-2, homeKing-3
		if b.squares[d] == NoPiece && b.squares[c] == NoPiece && b.squares[bSq] == NoPiece &&
			!b.IsSquareAttacked(d, them) {
			ml.Add(NewCastling(kingSq, c))
		}
	}
}

// filterLegal removes every pseudo-legal move that leaves the mover's own
// king attacked, by playing it and unwinding. This also handles the awkward
// en passant discovered-check cases for free.
func (b *Board) filterLegal(ml *MoveList) {
	us := b.side
	kept := 0
	for i := 0; i < ml.count; i++ {
		m := ml.moves[i]
		u, err := b.Apply(m)
		if err != nil {
			continue
		}
		legal := !b.InCheck(us)
		b.Undo(u)
		if legal {
			ml.moves[kept] = m
			kept++
		}
	}
	ml.count = kept
}

// Perft counts leaf nodes of the legal move tree to the given depth, the
// standard correctness check for move generation.
func (b *Board) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	b.LegalMovesInto(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		u, err := b.Apply(ml.Get(i))
		if err != nil {
			continue
		}
		nodes += b.Perft(depth - 1)
		b.Undo(u)
	}
	return nodes
}
