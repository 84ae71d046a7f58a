package service

import (
	"fmt"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/google/uuid"
)

type GameService struct {
	gameManager *GameManager
	defaults    model.GameOptions
}

// NewGameService returns a service whose new games fall back to defaults for any option
// the request leaves empty.
func NewGameService(gameManager *GameManager, defaults model.GameOptions) *GameService {
	return &GameService{
		gameManager: gameManager,
		defaults:    defaults,
	}
}

type CreatedGame struct {
	GameID string      `json:"gameId"`
	Color  chess.Color `json:"color"`
}

func (gs *GameService) CreateGame(playerID string, opts model.GameOptions) (CreatedGame, error) {
	if opts.FEN == "" {
		opts.FEN = gs.defaults.FEN
	}
	if opts.HumanColor == chess.NoColor {
		opts.HumanColor = gs.defaults.HumanColor
	}

	gameID := uuid.New().String()
	color, err := gs.gameManager.CreateGame(gameID, playerID, opts)
	if err != nil {
		return CreatedGame{}, fmt.Errorf("failed to create game: %w", err)
	}

	return CreatedGame{GameID: gameID, Color: color}, nil
}

func (gs *GameService) ListGames() []string {
	return gs.gameManager.GameIDs()
}

func (gs *GameService) DeleteGame(gameID, playerID string) error {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}
	if !game.IsPlayerInGame(playerID) {
		return model.ErrNotYourGame
	}
	return gs.gameManager.RemoveGame(gameID)
}

func (gs *GameService) GetGameState(gameID string) (model.GameState, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.GetState(), nil
}

// GetSnapshot returns the state and the position it describes, taken together.
func (gs *GameService) GetSnapshot(gameID string) (model.GameState, *chess.Board, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return model.GameState{}, nil, err
	}
	state, b := game.Snapshot()
	return state, b, nil
}

func (gs *GameService) HandleMove(gameID, playerID string, req model.MoveRequest, prompter chess.PromotionPrompter) (model.GameState, error) {
	return gs.gameManager.MakeMove(gameID, playerID, req, prompter)
}

func (gs *GameService) RegisterConnection(gameID, playerID string, conn model.Connection) error {
	return gs.gameManager.RegisterConnection(gameID, playerID, conn)
}

func (gs *GameService) UnregisterConnection(gameID, playerID string, conn model.Connection) {
	gs.gameManager.UnregisterConnection(gameID, playerID, conn)
}
