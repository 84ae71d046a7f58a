package chess

// Direction tables, ordered n, e, s, w then ne, se, nw, sw.
var (
	orthogonalDirs = [4]Position{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}
	diagonalDirs   = [4]Position{{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: -1}, {X: -1, Y: 1}}
	knightOffsets  = [8]Position{
		{X: -1, Y: -2}, {X: 1, Y: -2}, {X: 2, Y: -1}, {X: 2, Y: 1},
		{X: 1, Y: 2}, {X: -1, Y: 2}, {X: -2, Y: 1}, {X: -2, Y: -1},
	}
	kingOffsets = [8]Position{
		{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0},
		{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: -1}, {X: -1, Y: 1},
	}
)

// GeneratePseudoLegalMoves returns every move obeying the movement rules of c's pieces,
// without regard to the safety of c's king. Squares are scanned file by file from the a-file,
// each file from rank 8 down; the engine keeps the first of equally scored moves, so this
// order decides ties.
func GeneratePseudoLegalMoves(b *Board, c Color) []Move {
	moves := make([]Move, 0, 48)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			s := b.Squares[y][x]
			if s.Color != c || s.IsEmpty() {
				continue
			}
			from := Position{X: x, Y: y}
			switch s.Type {
			case Pawn:
				moves = appendPawnMoves(moves, b, from, s)
			case Knight:
				moves = appendStepMoves(moves, b, from, c, knightOffsets[:])
			case Bishop:
				moves = appendSlidingMoves(moves, b, from, c, diagonalDirs[:])
			case Rook:
				moves = appendSlidingMoves(moves, b, from, c, orthogonalDirs[:])
			case Queen:
				moves = appendSlidingMoves(moves, b, from, c, orthogonalDirs[:])
				moves = appendSlidingMoves(moves, b, from, c, diagonalDirs[:])
			case King:
				moves = appendStepMoves(moves, b, from, c, kingOffsets[:])
			}
		}
	}
	return moves
}

func appendSlidingMoves(moves []Move, b *Board, from Position, c Color, dirs []Position) []Move {
	for _, dir := range dirs {
		for to := from.add(dir.X, dir.Y); to.InBounds(); to = to.add(dir.X, dir.Y) {
			target := b.At(to)
			if target.Color == c {
				break
			}
			moves = append(moves, Move{From: from, To: to})
			if !target.IsEmpty() {
				break
			}
		}
	}
	return moves
}

func appendStepMoves(moves []Move, b *Board, from Position, c Color, offsets []Position) []Move {
	for _, d := range offsets {
		to := from.add(d.X, d.Y)
		if to.InBounds() && b.At(to).Color != c {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func appendPawnMoves(moves []Move, b *Board, from Position, pawn Square) []Move {
	fwd := pawn.Color.forward()

	one := from.add(0, fwd)
	if one.InBounds() && b.At(one).IsEmpty() {
		moves = append(moves, Move{From: from, To: one})
		two := from.add(0, 2*fwd)
		if pawn.CanDoubleMove && two.InBounds() && b.At(two).IsEmpty() {
			moves = append(moves, Move{From: from, To: two})
		}
	}

	for _, side := range [2]int{-1, 1} {
		to := from.add(side, fwd)
		if !to.InBounds() {
			continue
		}
		target := b.At(to)
		if !target.IsEmpty() {
			if target.Color != pawn.Color {
				moves = append(moves, Move{From: from, To: to})
			}
			continue
		}
		adjacent := b.At(from.add(side, 0))
		if adjacent.Type == Pawn && adjacent.Color != pawn.Color && adjacent.JustDoubleMoved {
			moves = append(moves, Move{From: from, To: to, IsEnPassant: true})
		}
	}
	return moves
}

// GenerateLegalMoves filters the pseudo-legal moves of c down to those after which no
// opponent reply lands on c's king.
func GenerateLegalMoves(b *Board, c Color) []Move {
	pseudo := GeneratePseudoLegalMoves(b, c)
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		if !leavesKingExposed(b, m, c) {
			legal = append(legal, m)
		}
	}
	return legal
}

func leavesKingExposed(b *Board, m Move, c Color) bool {
	next := SimulateMove(m, b)
	king := next.KingPosition(c)
	for _, reply := range GeneratePseudoLegalMoves(next, c.Opposite()) {
		if reply.To == king {
			return true
		}
	}
	return false
}

// GenerateCastleMoves returns the castles available to c, kingside first.
func GenerateCastleMoves(b *Board, c Color) []Move {
	var moves []Move
	row := homeRow(c)
	king := Position{X: 4, Y: row}
	enemy := c.Opposite()
	for _, kingside := range [2]bool{true, false} {
		if !b.castleEligible(c, kingside) {
			continue
		}
		dir, rookFile := 1, 7
		if !kingside {
			dir, rookFile = -1, 0
		}
		empty := true
		for x := king.X + dir; x != rookFile; x += dir {
			if !b.Squares[row][x].IsEmpty() {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		landing := king.add(2*dir, 0)
		if b.IsSquareAttacked(king, enemy) ||
			b.IsSquareAttacked(king.add(dir, 0), enemy) ||
			b.IsSquareAttacked(landing, enemy) {
			continue
		}
		moves = append(moves, Move{From: king, To: landing, IsCastle: true})
	}
	return moves
}

// AllLegalMoves returns the legal moves followed by the castles for the side to move.
func AllLegalMoves(b *Board) []Move {
	return append(GenerateLegalMoves(b, b.ToMove), GenerateCastleMoves(b, b.ToMove)...)
}

// FindLegalMove returns the generated move matching m for the side to move. A plain king
// move onto a castle's landing square selects the castle. The promotion choice carried by
// m is kept.
func FindLegalMove(b *Board, m Move) (Move, bool) {
	for _, legal := range AllLegalMoves(b) {
		if legal.Matches(m) || (legal.IsCastle && legal.From == m.From && legal.To == m.To) {
			legal.Promotion = m.Promotion
			return legal, true
		}
	}
	return Move{}, false
}

// IsPromotion reports whether m moves a pawn onto its last rank.
func IsPromotion(b *Board, m Move) bool {
	return !m.IsCastle && b.At(m.From).Type == Pawn && (m.To.Y == 0 || m.To.Y == 7)
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func Perft(b *Board, depth int) int {
	if depth == 0 {
		return 1
	}
	moves := AllLegalMoves(b)
	if depth == 1 {
		return len(moves)
	}
	nodes := 0
	for _, m := range moves {
		nodes += Perft(SimulateMove(m, b), depth-1)
	}
	return nodes
}
