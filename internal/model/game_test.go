package model

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/ws"
)

// firstMove always answers with the first legal move.
type firstMove struct{}

func (firstMove) ChooseMove(b *chess.Board) (chess.Move, error) {
	moves := chess.AllLegalMoves(b)
	if len(moves) == 0 {
		return chess.Move{}, errors.New("no moves")
	}
	return moves[0], nil
}

type fakeConn struct {
	mu       sync.Mutex
	messages []ws.Message
	closed   bool
	fail     bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, v.(ws.Message))
	return nil
}

func (c *fakeConn) WriteMessage(int, []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestGame(t *testing.T, opts GameOptions) *Game {
	t.Helper()
	g, err := NewGame("g1", firstMove{}, opts)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if _, err := g.AddPlayer("p1"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	return g
}

func TestNewGameStartsActive(t *testing.T) {
	g := newTestGame(t, GameOptions{})
	s := g.GetState()
	if s.Status != StatusActive || s.ToMove != chess.White {
		t.Fatalf("got status %s to move %s", s.Status, s.ToMove)
	}
	if len(s.LegalMoves) != 20 {
		t.Fatalf("got %d legal moves want 20", len(s.LegalMoves))
	}
	if s.FEN != chess.StartFEN {
		t.Fatalf("got FEN %s", s.FEN)
	}
	if !s.Players.Black.Engine || s.Players.White.ID != "p1" {
		t.Fatalf("unexpected seats %+v", s.Players)
	}
}

func TestMakeMoveAddsEngineReply(t *testing.T) {
	g := newTestGame(t, GameOptions{})
	s, err := g.MakeMove("p1", MoveRequest{Move: "e2 e4"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.MoveHistory) != 1 {
		t.Fatalf("got %d history entries want 1", len(s.MoveHistory))
	}
	entry := s.MoveHistory[0]
	if entry.WhitePly == nil || entry.WhitePly.Notation != "e4" || entry.WhitePly.ByEngine {
		t.Fatalf("unexpected white ply %+v", entry.WhitePly)
	}
	if entry.BlackPly == nil || !entry.BlackPly.ByEngine {
		t.Fatalf("engine did not reply: %+v", entry.BlackPly)
	}
	if s.ToMove != chess.White {
		t.Fatalf("got %s to move want white", s.ToMove)
	}
	if s.LastMove == nil || s.LastMove.From == (chess.Position{X: 4, Y: 6}) {
		t.Fatalf("last move should be the engine's, got %v", s.LastMove)
	}
}

func TestMakeMoveRejectionsLeaveGameUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		playerID string
		req      MoveRequest
		want     error
	}{
		{"illegal", "p1", MoveRequest{Move: "e2 e5"}, chess.ErrIllegalMove},
		{"notation", "p1", MoveRequest{Move: "e2-e4"}, chess.ErrInvalidNotation},
		{"bad promotion letter", "p1", MoveRequest{Move: "e2 e4", Promotion: "k"}, chess.ErrInvalidPromotion},
		{"stranger", "p2", MoveRequest{Move: "e2 e4"}, ErrNotYourGame},
		{"no castle available", "p1", MoveRequest{Move: "0-0"}, chess.ErrIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, GameOptions{})
			before := g.GetState()
			_, err := g.MakeMove(tt.playerID, tt.req, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
			after := g.GetState()
			if after.FEN != before.FEN || len(after.MoveHistory) != 0 {
				t.Fatalf("game changed: %s", after.FEN)
			}
		})
	}
}

func TestEngineOpensWhenHumanIsBlack(t *testing.T) {
	g := newTestGame(t, GameOptions{HumanColor: chess.Black})
	s := g.GetState()
	if s.ToMove != chess.Black {
		t.Fatalf("got %s to move want black", s.ToMove)
	}
	if len(s.MoveHistory) != 1 || s.MoveHistory[0].WhitePly == nil || !s.MoveHistory[0].WhitePly.ByEngine {
		t.Fatalf("engine did not open: %+v", s.MoveHistory)
	}
	if s.Players.Black.ID != "p1" {
		t.Fatalf("human seated as %+v", s.Players)
	}
}

func TestCheckmateEndsGame(t *testing.T) {
	g := newTestGame(t, GameOptions{FEN: "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"})
	s, err := g.MakeMove("p1", MoveRequest{Move: "a1 a8"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != StatusCheckmate || s.Winner == nil || *s.Winner != chess.White {
		t.Fatalf("got status %s winner %v", s.Status, s.Winner)
	}
	if got := s.MoveHistory[0].WhitePly.Notation; got != "Ra8#" {
		t.Fatalf("got notation %s want Ra8#", got)
	}
	if s.MoveHistory[0].BlackPly != nil {
		t.Fatalf("engine moved after mate")
	}
	if _, err := g.MakeMove("p1", MoveRequest{Move: "g1 g2"}, nil); !errors.Is(err, ErrGameOver) {
		t.Fatalf("got %v want ErrGameOver", err)
	}
}

func TestPromotion(t *testing.T) {
	const fen = "8/P7/8/8/8/8/8/k6K w - - 0 1"

	t.Run("requires a piece", func(t *testing.T) {
		g := newTestGame(t, GameOptions{FEN: fen})
		if _, err := g.MakeMove("p1", MoveRequest{Move: "a7 a8"}, nil); !errors.Is(err, chess.ErrPromotionRequired) {
			t.Fatalf("got %v want ErrPromotionRequired", err)
		}
		if g.GetState().FEN != fen {
			t.Fatalf("board changed after rejected promotion")
		}
	})

	t.Run("piece in request", func(t *testing.T) {
		g := newTestGame(t, GameOptions{FEN: fen})
		s, err := g.MakeMove("p1", MoveRequest{Move: "a7 a8", Promotion: "n"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		ply := s.MoveHistory[0].WhitePly
		if ply.Promotion != chess.Knight || ply.Notation != "a8=N" {
			t.Fatalf("got %+v", ply)
		}
	})

	t.Run("prompter retries", func(t *testing.T) {
		g := newTestGame(t, GameOptions{FEN: fen})
		answers := []string{"x", "R"}
		var rejections int
		prompt := chess.PromptFunc(func(rejected error) (string, error) {
			if rejected != nil {
				rejections++
			}
			a := answers[0]
			answers = answers[1:]
			return a, nil
		})
		s, err := g.MakeMove("p1", MoveRequest{Move: "a7 a8"}, prompt)
		if err != nil {
			t.Fatal(err)
		}
		if rejections != 1 {
			t.Fatalf("got %d rejections want 1", rejections)
		}
		ply := s.MoveHistory[0].WhitePly
		if ply.Promotion != chess.Rook || ply.Notation != "a8=R+" {
			t.Fatalf("got %+v", ply)
		}
	})
}

func TestCapturedPiecesTracked(t *testing.T) {
	g := newTestGame(t, GameOptions{FEN: "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1"})
	s, err := g.MakeMove("p1", MoveRequest{Move: "d1 d5"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.CapturedPieces.White) != 1 || s.CapturedPieces.White[0].Type != chess.Queen {
		t.Fatalf("got captures %+v", s.CapturedPieces)
	}
	if s.MoveHistory[0].WhitePly.Notation != "Rxd5" {
		t.Fatalf("got notation %s", s.MoveHistory[0].WhitePly.Notation)
	}
}

func TestCastleRecordsRookMove(t *testing.T) {
	g := newTestGame(t, GameOptions{FEN: "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"})
	s, err := g.MakeMove("p1", MoveRequest{Move: "0-0"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ply := s.MoveHistory[0].WhitePly
	if ply.Notation != "O-O" || ply.CastleRookMove == nil {
		t.Fatalf("got %+v", ply)
	}
	if ply.CastleRookMove.From.String() != "h1" || ply.CastleRookMove.To.String() != "f1" {
		t.Fatalf("rook moved %s to %s", ply.CastleRookMove.From, ply.CastleRookMove.To)
	}
}

func TestAddPlayerSeatTaken(t *testing.T) {
	g := newTestGame(t, GameOptions{})
	if c, err := g.AddPlayer("p1"); err != nil || c != chess.White {
		t.Fatalf("rejoin: got %s, %v", c, err)
	}
	if _, err := g.AddPlayer("p2"); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("got %v want ErrSeatTaken", err)
	}
}

func TestConnectionsReceiveState(t *testing.T) {
	g := newTestGame(t, GameOptions{})
	conn := &fakeConn{}
	if err := g.RegisterConnection("p1", conn); err != nil {
		t.Fatal(err)
	}
	if conn.count() != 1 || conn.messages[0].Type != ws.MessageTypeGameState {
		t.Fatalf("expected initial state, got %d messages", conn.count())
	}

	dup := &fakeConn{}
	if err := g.RegisterConnection("p1", dup); err != nil {
		t.Fatal(err)
	}
	if !dup.closed {
		t.Fatalf("duplicate connection left open")
	}

	broken := &fakeConn{fail: true}
	if err := g.RegisterConnection("watcher", broken); err != nil {
		t.Fatal(err)
	}

	if _, err := g.MakeMove("p1", MoveRequest{Move: "d2 d4"}, nil); err != nil {
		t.Fatal(err)
	}
	if conn.count() != 2 {
		t.Fatalf("got %d messages want 2", conn.count())
	}
	g.connections.mu.RLock()
	_, stillThere := g.connections.connections["watcher"]
	g.connections.mu.RUnlock()
	if stillThere {
		t.Fatalf("failing connection was not unregistered")
	}

	g.UnregisterConnection("p1", dup)
	g.UnregisterConnection("p1", conn)
	if _, err := g.MakeMove("p1", MoveRequest{Move: "c2 c4"}, nil); err != nil {
		t.Fatal(err)
	}
	if conn.count() != 2 {
		t.Fatalf("unregistered connection still receives state")
	}
	if err := g.RegisterConnection("", &fakeConn{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v want ErrUnauthorized", err)
	}
}

func TestPendingPromotionPromptDoesNotBlockReaders(t *testing.T) {
	const fen = "8/P7/8/8/8/8/8/k6K w - - 0 1"
	g := newTestGame(t, GameOptions{FEN: fen})

	asked := make(chan struct{})
	answer := make(chan string)
	prompt := chess.PromptFunc(func(error) (string, error) {
		close(asked)
		return <-answer, nil
	})

	type result struct {
		state GameState
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := g.MakeMove("p1", MoveRequest{Move: "a7 a8"}, prompt)
		done <- result{s, err}
	}()
	<-asked

	read := make(chan GameState, 1)
	go func() {
		s, _ := g.Snapshot()
		read <- s
	}()
	select {
	case s := <-read:
		if s.FEN != fen {
			t.Fatalf("position changed before the promotion was chosen: %s", s.FEN)
		}
	case <-time.After(time.Second):
		t.Fatalf("reading the game blocked while the promotion prompt was pending")
	}

	answer <- "q"
	res := <-done
	if res.err != nil {
		t.Fatal(res.err)
	}
	if ply := res.state.MoveHistory[0].WhitePly; ply.Promotion != chess.Queen {
		t.Fatalf("got %+v", ply)
	}
}

func TestPromotionPromptSkippedForRejectedMoves(t *testing.T) {
	g := newTestGame(t, GameOptions{FEN: "8/P7/8/8/8/8/8/k6K w - - 0 1"})
	prompt := chess.PromptFunc(func(error) (string, error) {
		t.Fatalf("prompted for a move that is not a legal promotion")
		return "", nil
	})
	if _, err := g.MakeMove("p2", MoveRequest{Move: "a7 a8"}, prompt); !errors.Is(err, ErrNotYourGame) {
		t.Fatalf("got %v want ErrNotYourGame", err)
	}
	if _, err := g.MakeMove("p1", MoveRequest{Move: "a7 b8"}, prompt); !errors.Is(err, chess.ErrIllegalMove) {
		t.Fatalf("got %v want ErrIllegalMove", err)
	}
	if _, err := g.MakeMove("p1", MoveRequest{Move: "h1 h2"}, prompt); err != nil {
		t.Fatal(err)
	}
}

func TestPromotionPromptFailureLeavesGame(t *testing.T) {
	const fen = "8/P7/8/8/8/8/8/k6K w - - 0 1"
	g := newTestGame(t, GameOptions{FEN: fen})
	gone := errors.New("client went away")
	prompt := chess.PromptFunc(func(error) (string, error) { return "", gone })
	if _, err := g.MakeMove("p1", MoveRequest{Move: "a7 a8"}, prompt); !errors.Is(err, gone) {
		t.Fatalf("got %v want %v", err, gone)
	}
	if g.GetState().FEN != fen {
		t.Fatalf("board changed after a failed prompt")
	}
}

func TestSnapshotMatchesState(t *testing.T) {
	g := newTestGame(t, GameOptions{})
	if _, err := g.MakeMove("p1", MoveRequest{Move: "e2 e4"}, nil); err != nil {
		t.Fatal(err)
	}
	s, b := g.Snapshot()
	if b.FEN() != s.FEN {
		t.Fatalf("board %s does not match state %s", b.FEN(), s.FEN)
	}
	if s.LastMove == nil || b.At(s.LastMove.To).IsEmpty() {
		t.Fatalf("last move %v does not land on a piece", s.LastMove)
	}
}
