package chess

import (
	"fmt"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type CastlingRights struct {
	WhiteKingside  bool `json:"whiteKingside"`
	WhiteQueenside bool `json:"whiteQueenside"`
	BlackKingside  bool `json:"blackKingside"`
	BlackQueenside bool `json:"blackQueenside"`
}

// Board is a plain value: copying it (or calling Clone) yields a fully independent position.
type Board struct {
	Squares        [8][8]Square   `json:"squares"` // [row][file]
	ToMove         Color          `json:"toMove"`
	Castling       CastlingRights `json:"castling"`
	WhiteKing      Position       `json:"whiteKing"`
	BlackKing      Position       `json:"blackKing"`
	HalfmoveClock  int            `json:"halfmoveClock"`
	FullmoveNumber int            `json:"fullmoveNumber"`
}

// PromotionPrompter is asked for a promotion piece when a pawn reaches the last rank and
// the move does not carry one. rejected is nil on the first call and holds the reason the
// previous answer was refused on every retry.
type PromotionPrompter interface {
	PromptPromotion(rejected error) (string, error)
}

// PromptFunc adapts a function to PromotionPrompter.
type PromptFunc func(rejected error) (string, error)

func (f PromptFunc) PromptPromotion(rejected error) (string, error) {
	return f(rejected)
}

type MoveOptions struct {
	// KeepSideToMove suppresses the side-to-move flip.
	KeepSideToMove bool
	// Prompter supplies the promotion piece when the move has none.
	Prompter PromotionPrompter

	autoQueen bool
}

// NewBoard returns the standard starting position.
func NewBoard() *Board {
	b, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Board) Clone() *Board {
	c := *b
	return &c
}

func (b *Board) At(p Position) Square {
	return b.Squares[p.Y][p.X]
}

func (b *Board) set(p Position, s Square) {
	b.Squares[p.Y][p.X] = s
}

// KingPosition returns the cached king square for c. A board without that king is a
// programming error.
func (b *Board) KingPosition(c Color) Position {
	p := b.WhiteKing
	if c == Black {
		p = b.BlackKing
	}
	if s := b.At(p); s.Type != King || s.Color != c {
		panic(fmt.Sprintf("chess: no %s king on board (expected at %s)", c, p))
	}
	return p
}

func (b *Board) setKingPosition(c Color, p Position) {
	if c == White {
		b.WhiteKing = p
	} else {
		b.BlackKing = p
	}
}

// ApplyMove mutates the board in place. All validation, including resolving the promotion
// piece, happens before the first square is written, so a returned error means the board
// is unchanged.
func (b *Board) ApplyMove(m Move, opts MoveOptions) error {
	mover := b.At(m.From)
	if mover.IsEmpty() {
		return fmt.Errorf("%w: no piece on %s", ErrIllegalMove, m.From)
	}

	resetsClock := mover.Type == Pawn || !b.At(m.To).IsEmpty()
	if m.IsCastle {
		rookFrom, rookTo := CastleRookSquares(m)
		rook := b.At(rookFrom)
		if mover.Type != King || rook.Type != Rook || rook.Color != mover.Color {
			return fmt.Errorf("%w: cannot castle %s", ErrIllegalMove, m)
		}
		b.movePiece(Move{From: rookFrom, To: rookTo}, None)
		b.movePiece(Move{From: m.From, To: m.To}, None)
	} else {
		promotion := None
		if mover.Type == Pawn && (m.To.Y == 0 || m.To.Y == 7) {
			p, err := resolvePromotion(m, opts)
			if err != nil {
				return err
			}
			promotion = p
		}
		b.movePiece(m, promotion)
	}

	if resetsClock {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}
	if mover.Color == Black {
		b.FullmoveNumber++
	}
	b.refreshCastlingRights()
	if !opts.KeepSideToMove {
		b.switchTurn()
	}
	return nil
}

// CastleRookSquares returns the rook relocation implied by a castle's king move.
func CastleRookSquares(m Move) (from, to Position) {
	if m.To.X > m.From.X {
		return Position{X: 7, Y: m.From.Y}, Position{X: m.To.X - 1, Y: m.From.Y}
	}
	return Position{X: 0, Y: m.From.Y}, Position{X: m.To.X + 1, Y: m.From.Y}
}

func resolvePromotion(m Move, opts MoveOptions) (PieceType, error) {
	if m.Promotion != None {
		if !canPromoteTo(m.Promotion) {
			return None, fmt.Errorf("%w: %s", ErrInvalidPromotion, m.Promotion)
		}
		return m.Promotion, nil
	}
	if opts.Prompter == nil {
		if opts.autoQueen {
			return Queen, nil
		}
		return None, ErrPromotionRequired
	}
	var rejected error
	for {
		answer, err := opts.Prompter.PromptPromotion(rejected)
		if err != nil {
			return None, fmt.Errorf("promotion prompt: %w", err)
		}
		p, err := ParsePromotion(answer)
		if err == nil {
			return p, nil
		}
		rejected = err
	}
}

// movePiece relocates one piece, handling the double-step flag and en passant removal.
func (b *Board) movePiece(m Move, promotion PieceType) {
	piece := b.At(m.From)
	doubleStep := piece.Type == Pawn && abs(m.To.Y-m.From.Y) == 2

	if piece.Type == Pawn && m.From.X != m.To.X && b.At(m.To).IsEmpty() {
		behind := m.To.add(0, -piece.Color.forward())
		if victim := b.At(behind); victim.Type == Pawn && victim.Color != piece.Color && victim.JustDoubleMoved {
			b.set(behind, Square{})
		}
	}

	// Only the pawn that has just double-stepped may carry the flag.
	for y := range b.Squares {
		for x := range b.Squares[y] {
			b.Squares[y][x].JustDoubleMoved = false
		}
	}

	piece.HasMoved = true
	piece.CanDoubleMove = false
	piece.JustDoubleMoved = doubleStep
	if promotion != None {
		piece.Type = promotion
	}
	b.set(m.To, piece)
	b.set(m.From, Square{})

	if piece.Type == King {
		b.setKingPosition(piece.Color, m.To)
	}
}

func (b *Board) switchTurn() {
	b.ToMove = b.ToMove.Opposite()
}

func (b *Board) refreshCastlingRights() {
	b.Castling = CastlingRights{
		WhiteKingside:  b.castleEligible(White, true),
		WhiteQueenside: b.castleEligible(White, false),
		BlackKingside:  b.castleEligible(Black, true),
		BlackQueenside: b.castleEligible(Black, false),
	}
}

func homeRow(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// castleEligible reports whether c's king and the rook on the given wing are on their home
// squares and have never moved.
func (b *Board) castleEligible(c Color, kingside bool) bool {
	row := homeRow(c)
	king := b.Squares[row][4]
	rookFile := 0
	if kingside {
		rookFile = 7
	}
	rook := b.Squares[row][rookFile]
	return king.Type == King && king.Color == c && !king.HasMoved &&
		rook.Type == Rook && rook.Color == c && !rook.HasMoved
}

// SimulateMove returns a new board equal to b with m applied. Promotions without a chosen
// piece become queens. b is never modified.
func SimulateMove(m Move, b *Board) *Board {
	next := b.Clone()
	if err := next.ApplyMove(m, MoveOptions{autoQueen: true}); err != nil {
		panic(fmt.Sprintf("chess: simulate %s: %v", m, err))
	}
	return next
}

// IsSquareAttacked reports whether a piece of colour by attacks p. This counts squares a
// piece covers, not just squares it could move to: pawns attack their forward diagonals
// whether or not p is occupied, and pawn pushes never attack. Castling through a square a
// pawn covers is therefore refused even though no pawn move lands there.
func (b *Board) IsSquareAttacked(p Position, by Color) bool {
	for _, dir := range orthogonalDirs {
		if b.rayHits(p, dir, by, Rook) {
			return true
		}
	}
	for _, dir := range diagonalDirs {
		if b.rayHits(p, dir, by, Bishop) {
			return true
		}
	}
	for _, d := range knightOffsets {
		if b.holds(p.add(d.X, d.Y), by, Knight) {
			return true
		}
	}
	for _, d := range kingOffsets {
		if b.holds(p.add(d.X, d.Y), by, King) {
			return true
		}
	}
	back := -by.forward()
	return b.holds(p.add(-1, back), by, Pawn) || b.holds(p.add(1, back), by, Pawn)
}

// rayHits walks from p along dir and reports whether the first piece met is a slider of
// colour by moving like kind (or a queen).
func (b *Board) rayHits(p, dir Position, by Color, kind PieceType) bool {
	for t := p.add(dir.X, dir.Y); t.InBounds(); t = t.add(dir.X, dir.Y) {
		s := b.At(t)
		if s.IsEmpty() {
			continue
		}
		return s.Color == by && (s.Type == kind || s.Type == Queen)
	}
	return false
}

func (b *Board) holds(p Position, c Color, kind PieceType) bool {
	if !p.InBounds() {
		return false
	}
	s := b.At(p)
	return s.Type == kind && s.Color == c
}

// InCheck reports whether c's king is attacked.
func (b *Board) InCheck(c Color) bool {
	return b.IsSquareAttacked(b.KingPosition(c), c.Opposite())
}

// Material returns the summed piece values of c, kings excluded.
func (b *Board) Material(c Color) int {
	total := 0
	for y := range b.Squares {
		for _, s := range b.Squares[y] {
			if s.Color == c {
				total += s.Type.Value()
			}
		}
	}
	return total
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// String draws the board as text, rank 8 first, uppercase for white and '.' for empty.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		fmt.Fprintf(&sb, "%d ", 8-y)
		for x := 0; x < 8; x++ {
			c := b.Squares[y][x].Char()
			if c == ' ' {
				c = '.'
			}
			sb.WriteByte(c)
			if x < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
