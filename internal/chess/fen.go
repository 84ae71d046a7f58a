package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFEN builds a board from a FEN record. The placement, side-to-move, castling and en
// passant fields are required; the move counters default to 0 and 1.
func ParseFEN(fen string) (*Board, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: expected 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	b := &Board{FullmoveNumber: 1}
	if err := b.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		b.ToMove = White
	case "b":
		b.ToMove = Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if err := b.parseCastling(fields[2]); err != nil {
		return nil, err
	}

	if fields[3] != "-" {
		target, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, fields[3])
		}
		mover := b.ToMove.Opposite()
		pawnAt := target.add(0, mover.forward())
		if !pawnAt.InBounds() || !b.holds(pawnAt, mover, Pawn) {
			return nil, fmt.Errorf("%w: no pawn behind en passant square %s", ErrInvalidFEN, target)
		}
		b.Squares[pawnAt.Y][pawnAt.X].JustDoubleMoved = true
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		b.HalfmoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
		}
		b.FullmoveNumber = n
	}

	b.refreshCastlingRights()
	return b, nil
}

func (b *Board) parsePlacement(placement string) error {
	rows := strings.Split(placement, "/")
	if len(rows) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(rows))
	}
	kings := map[Color]int{}
	for y, row := range rows {
		x := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '8' {
				x += int(ch - '0')
				continue
			}
			kind, ok := pieceTypeFromChar(ch)
			if !ok {
				return fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			if x > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, 8-y)
			}
			color := Black
			if ch >= 'A' && ch <= 'Z' {
				color = White
			}
			s := Square{Type: kind, Color: color}
			switch kind {
			case Pawn:
				if y == 0 || y == 7 {
					return fmt.Errorf("%w: pawn on rank %d", ErrInvalidFEN, 8-y)
				}
				s.CanDoubleMove = y == homeRow(color)+color.forward()
				s.HasMoved = !s.CanDoubleMove
			case King:
				kings[color]++
				b.setKingPosition(color, Position{X: x, Y: y})
				s.HasMoved = true
			case Rook:
				s.HasMoved = true
			}
			b.Squares[y][x] = s
			x++
		}
		if x != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-y, x)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: need exactly one king per side", ErrInvalidFEN)
	}
	return nil
}

// parseCastling seeds the has-moved flags of kings and rooks from the castling field;
// the flags are what castling legality is decided on.
func (b *Board) parseCastling(field string) error {
	if field == "-" {
		return nil
	}
	for i := 0; i < len(field); i++ {
		var c Color
		var rookFile int
		switch field[i] {
		case 'K':
			c, rookFile = White, 7
		case 'Q':
			c, rookFile = White, 0
		case 'k':
			c, rookFile = Black, 7
		case 'q':
			c, rookFile = Black, 0
		default:
			return fmt.Errorf("%w: castling field %q", ErrInvalidFEN, field)
		}
		row := homeRow(c)
		king, rook := &b.Squares[row][4], &b.Squares[row][rookFile]
		if king.Type == King && king.Color == c && rook.Type == Rook && rook.Color == c {
			king.HasMoved = false
			rook.HasMoved = false
		}
	}
	return nil
}

// FEN serializes the board as a six-field FEN record.
func (b *Board) FEN() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		if y > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for x := 0; x < 8; x++ {
			s := b.Squares[y][x]
			if s.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(s.Char())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}

	if b.ToMove == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}
	sb.WriteString(b.Castling.String())
	sb.WriteByte(' ')
	sb.WriteString(b.enPassantTarget())
	fmt.Fprintf(&sb, " %d %d", b.HalfmoveClock, b.FullmoveNumber)
	return sb.String()
}

func (b *Board) enPassantTarget() string {
	mover := b.ToMove.Opposite()
	for y := range b.Squares {
		for x, s := range b.Squares[y] {
			if s.Type == Pawn && s.Color == mover && s.JustDoubleMoved {
				return Position{X: x, Y: y}.add(0, -mover.forward()).String()
			}
		}
	}
	return "-"
}

func (r CastlingRights) String() string {
	var sb strings.Builder
	if r.WhiteKingside {
		sb.WriteByte('K')
	}
	if r.WhiteQueenside {
		sb.WriteByte('Q')
	}
	if r.BlackKingside {
		sb.WriteByte('k')
	}
	if r.BlackQueenside {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
