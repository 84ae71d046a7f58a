package engine

import "github.com/benbeisheim/chess-backend/internal/chess"

// Evaluate scores the material balance from the side to move's point of view.
func Evaluate(b *chess.Board) int {
	score := b.Material(chess.White) - b.Material(chess.Black)
	if b.ToMove == chess.Black {
		return -score
	}
	return score
}
