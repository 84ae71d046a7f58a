package chess

import "fmt"

type PieceType int

const (
	None PieceType = iota
	King
	Pawn
	Knight
	Bishop
	Rook
	Queen
)

type Color int

const (
	NoColor Color = iota
	White
	Black
)

// pieceChars is indexed by PieceType; lowercase is black in FEN.
var pieceChars = [...]byte{
	None:   ' ',
	King:   'k',
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
}

var pieceNames = [...]string{
	None:   "none",
	King:   "king",
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
}

// materialValues in centipawns; the king carries no material.
var materialValues = [...]int{
	None:   0,
	King:   0,
	Pawn:   100,
	Knight: 300,
	Bishop: 350,
	Rook:   500,
	Queen:  900,
}

func pieceTypeFromChar(c byte) (PieceType, bool) {
	switch c | 0x20 {
	case 'k':
		return King, true
	case 'p':
		return Pawn, true
	case 'n':
		return Knight, true
	case 'b':
		return Bishop, true
	case 'r':
		return Rook, true
	case 'q':
		return Queen, true
	}
	return None, false
}

func (p PieceType) Char() byte {
	return pieceChars[p]
}

func (p PieceType) String() string {
	if p < None || p > Queen {
		return fmt.Sprintf("PieceType(%d)", int(p))
	}
	return pieceNames[p]
}

// Value is the material weight of the piece type.
func (p PieceType) Value() int {
	return materialValues[p]
}

func (p PieceType) IsSliding() bool {
	return p == Bishop || p == Rook || p == Queen
}

func (p PieceType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseColor accepts "white"/"black" and the FEN letters "w"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color %q", s)
}

// forward is the row delta of a pawn advance; row 0 is rank 8.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

// Square holds the piece standing on one board square and its move-history flags.
type Square struct {
	Type            PieceType `json:"type"`
	Color           Color     `json:"color"`
	HasMoved        bool      `json:"hasMoved"`
	CanDoubleMove   bool      `json:"canDoubleMove"`
	JustDoubleMoved bool      `json:"justDoubleMoved"`
}

func (s Square) IsEmpty() bool {
	return s.Type == None
}

// Char returns the FEN letter for the occupant, uppercase for white.
func (s Square) Char() byte {
	c := s.Type.Char()
	if s.Color == White && s.Type != None {
		c -= 0x20
	}
	return c
}
