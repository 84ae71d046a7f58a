// Package render draws positions as SVG images.
package render

import (
	"fmt"
	"io"

	"github.com/benbeisheim/chess-backend/internal/chess"
	svg "github.com/ajstarks/svgo"
)

const DefaultSquareSize = 45

type Options struct {
	// SquareSize is the edge length of one square in pixels.
	SquareSize int
	// Flip draws the board from black's side.
	Flip bool
	// Highlight marks squares, typically the last move.
	Highlight []chess.Position
}

var glyphs = map[chess.Color]map[chess.PieceType]string{
	chess.White: {
		chess.King: "♔", chess.Queen: "♕", chess.Rook: "♖",
		chess.Bishop: "♗", chess.Knight: "♘", chess.Pawn: "♙",
	},
	chess.Black: {
		chess.King: "♚", chess.Queen: "♛", chess.Rook: "♜",
		chess.Bishop: "♝", chess.Knight: "♞", chess.Pawn: "♟",
	},
}

const (
	lightFill     = "fill:#f0d9b5"
	darkFill      = "fill:#b58863"
	highlightFill = "fill:#cdd26a;fill-opacity:0.8"
)

// Board writes an SVG image of b to w.
func Board(w io.Writer, b *chess.Board, opts Options) {
	size := opts.SquareSize
	if size <= 0 {
		size = DefaultSquareSize
	}
	marked := make(map[chess.Position]bool, len(opts.Highlight))
	for _, p := range opts.Highlight {
		marked[p] = true
	}

	canvas := svg.New(w)
	canvas.Start(8*size, 8*size)
	canvas.Gid("squares")
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px, py := screen(x, y, size, opts.Flip)
			fill := lightFill
			if (x+y)%2 == 1 {
				fill = darkFill
			}
			canvas.Rect(px, py, size, size, fill)
			if marked[chess.Position{X: x, Y: y}] {
				canvas.Rect(px, py, size, size, highlightFill)
			}
		}
	}
	canvas.Gend()

	canvas.Gid("pieces")
	font := fmt.Sprintf("text-anchor:middle;font-size:%dpx;font-family:serif", size*4/5)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			s := b.Squares[y][x]
			if s.IsEmpty() {
				continue
			}
			px, py := screen(x, y, size, opts.Flip)
			canvas.Text(px+size/2, py+size*4/5, glyphs[s.Color][s.Type], font)
		}
	}
	canvas.Gend()
	canvas.End()
}

// screen maps a board square to the pixel origin of its cell.
func screen(x, y, size int, flip bool) (int, int) {
	if flip {
		x, y = 7-x, 7-y
	}
	return x * size, y * size
}
