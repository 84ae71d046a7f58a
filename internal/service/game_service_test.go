package service

import (
	"errors"
	"testing"
	"time"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/engine"
	"github.com/benbeisheim/chess-backend/internal/model"
	"golang.org/x/exp/slices"
)

func newTestService(defaults model.GameOptions) *GameService {
	gm := NewGameManager(func() model.MoveChooser {
		return engine.NewAIPlayer(engine.WithDepth(1))
	})
	return NewGameService(gm, defaults)
}

func TestCreateGameUsesDefaults(t *testing.T) {
	gs := newTestService(model.GameOptions{
		FEN:        "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1",
		HumanColor: chess.White,
	})
	created, err := gs.CreateGame("p1", model.GameOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if created.Color != chess.White || created.GameID == "" {
		t.Fatalf("got %+v", created)
	}
	state, err := gs.GetGameState(created.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if state.FEN != "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1" {
		t.Fatalf("got FEN %s", state.FEN)
	}
}

func TestCreateGameRejectsBadFEN(t *testing.T) {
	gs := newTestService(model.GameOptions{})
	_, err := gs.CreateGame("p1", model.GameOptions{FEN: "not a fen"})
	if !errors.Is(err, chess.ErrInvalidFEN) {
		t.Fatalf("got %v want ErrInvalidFEN", err)
	}
	if len(gs.ListGames()) != 0 {
		t.Fatalf("failed game was registered")
	}
}

func TestHandleMoveAgainstEngine(t *testing.T) {
	gs := newTestService(model.GameOptions{})
	created, err := gs.CreateGame("p1", model.GameOptions{FEN: "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1"})
	if err != nil {
		t.Fatal(err)
	}
	state, err := gs.HandleMove(created.GameID, "p1", model.MoveRequest{Move: "d1 d5"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state.ToMove != chess.White || len(state.MoveHistory) != 1 || state.MoveHistory[0].BlackPly == nil {
		t.Fatalf("engine did not reply: %+v", state.MoveHistory)
	}

	snap, b, err := gs.GetSnapshot(created.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.FEN != state.FEN || b.FEN() != state.FEN {
		t.Fatalf("board %s does not match state %s", b.FEN(), state.FEN)
	}

	if _, err := gs.HandleMove("missing", "p1", model.MoveRequest{Move: "e2 e4"}, nil); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("got %v want ErrGameNotFound", err)
	}
}

func TestListAndDeleteGames(t *testing.T) {
	gs := newTestService(model.GameOptions{})
	var ids []string
	for i := 0; i < 3; i++ {
		created, err := gs.CreateGame("p1", model.GameOptions{})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, created.GameID)
	}
	slices.Sort(ids)
	if got := gs.ListGames(); !slices.Equal(got, ids) {
		t.Fatalf("got %v want %v", got, ids)
	}

	if err := gs.DeleteGame(ids[0], "p2"); !errors.Is(err, model.ErrNotYourGame) {
		t.Fatalf("got %v want ErrNotYourGame", err)
	}
	if err := gs.DeleteGame(ids[0], "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := gs.GetGameState(ids[0]); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("got %v want ErrGameNotFound", err)
	}
	if got := gs.ListGames(); !slices.Equal(got, ids[1:]) {
		t.Fatalf("got %v want %v", got, ids[1:])
	}
}

func TestCreateGameDuplicateID(t *testing.T) {
	gm := NewGameManager(func() model.MoveChooser { return engine.NewAIPlayer(engine.WithDepth(1)) })
	if _, err := gm.CreateGame("g", "p1", model.GameOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := gm.CreateGame("g", "p1", model.GameOptions{}); !errors.Is(err, ErrGameExists) {
		t.Fatalf("got %v want ErrGameExists", err)
	}
}

// gatedEngine plays the first legal move once release is closed.
type gatedEngine struct {
	started chan struct{}
	release chan struct{}
}

func (e *gatedEngine) ChooseMove(b *chess.Board) (chess.Move, error) {
	close(e.started)
	<-e.release
	return chess.AllLegalMoves(b)[0], nil
}

func TestCreateGameDoesNotBlockLookups(t *testing.T) {
	gated := &gatedEngine{started: make(chan struct{}), release: make(chan struct{})}
	gm := NewGameManager(func() model.MoveChooser { return gated })
	if _, err := gm.CreateGame("white", "p1", model.GameOptions{HumanColor: chess.White}); err != nil {
		t.Fatal(err)
	}

	created := make(chan error, 1)
	go func() {
		_, err := gm.CreateGame("black", "p2", model.GameOptions{HumanColor: chess.Black})
		created <- err
	}()
	<-gated.started

	found := make(chan error, 1)
	go func() {
		_, err := gm.GetGame("white")
		found <- err
	}()
	select {
	case err := <-found:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatalf("GetGame blocked while another game's engine was opening")
	}

	close(gated.release)
	if err := <-created; err != nil {
		t.Fatal(err)
	}
	if got := gm.GameIDs(); !slices.Equal(got, []string{"black", "white"}) {
		t.Fatalf("got %v", got)
	}
}
