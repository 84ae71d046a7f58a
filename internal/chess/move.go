package chess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidNotation   = errors.New("invalid move notation")
	ErrIllegalMove       = errors.New("illegal move")
	ErrPromotionRequired = errors.New("promotion piece required")
	ErrInvalidPromotion  = errors.New("invalid promotion piece")
	ErrInvalidFEN        = errors.New("invalid FEN")
)

const (
	CastleKingside  = "0-0"
	CastleQueenside = "0-0-0"
)

// Position addresses a square; X is the file (0 = a) and Y the row, where row 0 is rank 8.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

func (p Position) add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// String returns the algebraic name of the square, e.g. "e4".
func (p Position) String() string {
	return fmt.Sprintf("%c%d", p.X+'a', 8-p.Y)
}

func (p Position) File() string {
	return string(rune(p.X + 'a'))
}

// ParseSquare converts an algebraic square name into a Position.
func ParseSquare(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: square %q", ErrInvalidNotation, s)
	}
	f, r := s[0]|0x20, s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return Position{}, fmt.Errorf("%w: square %q", ErrInvalidNotation, s)
	}
	return Position{X: int(f - 'a'), Y: 8 - int(r-'0')}, nil
}

// Move describes a single half-move. For castles From and To are the king's squares and
// the rook relocation is implied by the direction.
type Move struct {
	From        Position  `json:"from"`
	To          Position  `json:"to"`
	IsCastle    bool      `json:"isCastle"`
	IsEnPassant bool      `json:"isEnPassant"`
	Promotion   PieceType `json:"promotion,omitempty"`
}

// Matches reports whether two moves are the same move, ignoring the promotion choice.
func (m Move) Matches(o Move) bool {
	return m.From == o.From && m.To == o.To && m.IsCastle == o.IsCastle
}

func (m Move) String() string {
	if m.IsCastle {
		if m.To.X > m.From.X {
			return CastleKingside
		}
		return CastleQueenside
	}
	s := m.From.String() + " " + m.To.String()
	if m.Promotion != None {
		s += " " + string(m.Promotion.Char())
	}
	return s
}

// UCI returns the long algebraic form used by UCI engines, e.g. "e1g1" or "a7a8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != None {
		s += string(m.Promotion.Char())
	}
	return s
}

var moveNotation = regexp.MustCompile(`(?i)^([a-h])([1-8]) ([a-h])([1-8])(?: ([qrbn]))?$`)

// ParseMove reads "<file><rank> <file><rank>" with an optional trailing promotion letter,
// or the castling tokens "0-0" and "0-0-0" for the side to move on b. It checks syntax
// only; legality is decided against the generated move set.
func ParseMove(b *Board, notation string) (Move, error) {
	notation = strings.TrimSpace(notation)
	switch notation {
	case CastleKingside, CastleQueenside:
		king := b.KingPosition(b.ToMove)
		dx := 2
		if notation == CastleQueenside {
			dx = -2
		}
		return Move{From: king, To: king.add(dx, 0), IsCastle: true}, nil
	}

	match := moveNotation.FindStringSubmatch(notation)
	if match == nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	from, err := ParseSquare(match[1] + match[2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(match[3] + match[4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if match[5] != "" {
		p, err := ParsePromotion(match[5])
		if err != nil {
			return Move{}, err
		}
		m.Promotion = p
	}
	return m, nil
}

// ParsePromotion accepts a single q, r, b or n in either case.
func ParsePromotion(s string) (PieceType, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return None, fmt.Errorf("%w: %q", ErrInvalidPromotion, s)
	}
	p, ok := pieceTypeFromChar(s[0])
	if !ok || !canPromoteTo(p) {
		return None, fmt.Errorf("%w: %q", ErrInvalidPromotion, s)
	}
	return p, nil
}

func canPromoteTo(p PieceType) bool {
	switch p {
	case Bishop, Knight, Rook, Queen:
		return true
	}
	return false
}
