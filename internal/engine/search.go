package engine

import (
	"errors"
	"sync"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultDepth = 3
	// CheckmateScore is returned, negated, for a side that is mated.
	CheckmateScore = 1_000_000
)

var ErrNoLegalMoves = errors.New("no legal moves")

// AIPlayer picks moves with a fixed-depth negamax over material.
type AIPlayer struct {
	depth   int
	workers int
}

type Option func(*AIPlayer)

func WithDepth(depth int) Option {
	return func(p *AIPlayer) {
		if depth > 0 {
			p.depth = depth
		}
	}
}

// WithWorkers spreads the root moves over n goroutines. Every branch searches its own
// board copy, so the result is identical to the sequential search.
func WithWorkers(n int) Option {
	return func(p *AIPlayer) {
		if n > 0 {
			p.workers = n
		}
	}
}

func NewAIPlayer(opts ...Option) *AIPlayer {
	p := &AIPlayer{depth: DefaultDepth, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AIPlayer) Depth() int {
	return p.depth
}

// ChooseMove returns the best move for the side to move on b. b is not modified.
func (p *AIPlayer) ChooseMove(b *chess.Board) (chess.Move, error) {
	moves := chess.AllLegalMoves(b)
	if len(moves) == 0 {
		return chess.Move{}, ErrNoLegalMoves
	}
	scores := p.scoreRoot(b, moves)
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	log.Debugf("engine: %s plays %s (score %d, depth %d, %d candidates)", b.ToMove, moves[best], scores[best], p.depth, len(moves))
	return moves[best], nil
}

// scoreRoot returns the negamax score of each root move, in generation order.
func (p *AIPlayer) scoreRoot(b *chess.Board, moves []chess.Move) []int {
	scores := make([]int, len(moves))
	if p.workers <= 1 || len(moves) == 1 {
		for i, m := range moves {
			score, _, _ := Search(chess.SimulateMove(m, b), p.depth-1)
			scores[i] = -score
		}
		return scores
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				score, _, _ := Search(chess.SimulateMove(moves[i], b), p.depth-1)
				scores[i] = -score
			}
		}()
	}
	for i := range moves {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return scores
}

// Search runs negamax to depth plies and returns the score for the side to move together
// with the first move reaching it. ok is false when no move was searched (depth 0 or a
// terminal position).
func Search(b *chess.Board, depth int) (score int, best chess.Move, ok bool) {
	if depth <= 0 {
		return Evaluate(b), chess.Move{}, false
	}

	moves := chess.AllLegalMoves(b)
	if len(moves) == 0 {
		return terminalScore(b), chess.Move{}, false
	}

	for i, m := range moves {
		childScore, _, _ := Search(chess.SimulateMove(m, b), depth-1)
		childScore = -childScore
		if i == 0 || childScore > score {
			score, best = childScore, m
		}
	}
	return score, best, true
}

// terminalScore scores a position without legal moves: mated if any opponent reply reaches
// the king, stalemate otherwise.
func terminalScore(b *chess.Board) int {
	king := b.KingPosition(b.ToMove)
	for _, reply := range chess.GeneratePseudoLegalMoves(b, b.ToMove.Opposite()) {
		if reply.To == king {
			return -CheckmateScore
		}
	}
	return 0
}
