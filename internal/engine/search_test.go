package engine

import (
	"errors"
	"testing"

	"github.com/benbeisheim/chess-backend/internal/chess"
)

func mustFEN(t *testing.T, fen string) *chess.Board {
	t.Helper()
	b, err := chess.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b
}

func TestEvaluateStartPositionIsZero(t *testing.T) {
	b := chess.NewBoard()
	if got := Evaluate(b); got != 0 {
		t.Fatalf("white to move: got %d want 0", got)
	}
	b.ToMove = chess.Black
	if got := Evaluate(b); got != 0 {
		t.Fatalf("black to move: got %d want 0", got)
	}
	if got, _, ok := Search(b, 0); got != 0 || ok {
		t.Fatalf("depth 0 search: got %d, %v want 0, false", got, ok)
	}
}

func TestEvaluatePerspective(t *testing.T) {
	b := mustFEN(t, "4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	if got := Evaluate(b); got != 900 {
		t.Fatalf("white to move: got %d want 900", got)
	}
	b = mustFEN(t, "4k3/8/8/8/8/8/8/3QK3 b - - 0 1")
	if got := Evaluate(b); got != -900 {
		t.Fatalf("black to move: got %d want -900", got)
	}
	b = mustFEN(t, "rnb1k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if got := Evaluate(b); got != -(500 + 300 + 350) {
		t.Fatalf("white to move vs minor pieces: got %d want %d", got, -(500 + 300 + 350))
	}
}

func TestSearchTerminalScores(t *testing.T) {
	mated := mustFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if got, _, ok := Search(mated, 3); got != -CheckmateScore || ok {
		t.Fatalf("checkmate: got %d, %v want %d, false", got, ok, -CheckmateScore)
	}

	stalemate := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if got, _, ok := Search(stalemate, 3); got != 0 || ok {
		t.Fatalf("stalemate: got %d, %v want 0, false", got, ok)
	}
}

func TestChooseMoveFindsMateInOne(t *testing.T) {
	b := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	before := *b
	m, err := NewAIPlayer().ChooseMove(b)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != "a1 a8" {
		t.Fatalf("got %s want a1 a8", got)
	}
	if *b != before {
		t.Fatalf("ChooseMove modified the board")
	}
	score, best, ok := Search(b, 3)
	if !ok || score != CheckmateScore || best != m {
		t.Fatalf("Search: got %d %s %v want %d %s true", score, best, ok, CheckmateScore, m)
	}
}

func TestChooseMoveTakesHangingQueen(t *testing.T) {
	b := mustFEN(t, "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	for _, depth := range []int{1, 2, 3} {
		m, err := NewAIPlayer(WithDepth(depth)).ChooseMove(b)
		if err != nil {
			t.Fatal(err)
		}
		if got := m.String(); got != "d1 d5" {
			t.Fatalf("depth %d: got %s want d1 d5", depth, got)
		}
	}
}

func TestChooseMoveKeepsFirstOfEqualMoves(t *testing.T) {
	m, err := NewAIPlayer(WithDepth(1)).ChooseMove(chess.NewBoard())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != "a2 a3" {
		t.Fatalf("got %s want a2 a3", got)
	}
}

func TestChooseMoveTieFollowsFileScan(t *testing.T) {
	// Every move keeps the material at +400; the b1 knight is met before the h2 pawn.
	b := mustFEN(t, "4k3/8/8/8/8/8/7P/1N2K3 w - - 0 1")
	for _, workers := range []int{1, 4} {
		m, err := NewAIPlayer(WithDepth(1), WithWorkers(workers)).ChooseMove(b)
		if err != nil {
			t.Fatal(err)
		}
		if got := m.String(); got != "b1 a3" {
			t.Fatalf("workers %d: got %s want b1 a3", workers, got)
		}
	}
}

func TestChooseMoveWorkersMatchSequential(t *testing.T) {
	b := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	seq, err := NewAIPlayer(WithDepth(2)).ChooseMove(b)
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewAIPlayer(WithDepth(2), WithWorkers(4)).ChooseMove(b)
	if err != nil {
		t.Fatal(err)
	}
	if seq != par {
		t.Fatalf("parallel search chose %s, sequential %s", par, seq)
	}
}

func TestChooseMoveWithoutMoves(t *testing.T) {
	b := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if _, err := NewAIPlayer().ChooseMove(b); !errors.Is(err, ErrNoLegalMoves) {
		t.Fatalf("got %v want ErrNoLegalMoves", err)
	}
}

func TestNewAIPlayerDefaults(t *testing.T) {
	if got := NewAIPlayer().Depth(); got != DefaultDepth {
		t.Fatalf("default depth: got %d want %d", got, DefaultDepth)
	}
	if got := NewAIPlayer(WithDepth(0)).Depth(); got != DefaultDepth {
		t.Fatalf("zero depth ignored: got %d want %d", got, DefaultDepth)
	}
}
