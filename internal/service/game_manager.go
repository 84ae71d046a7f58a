// service/game_manager.go
package service

import (
	"errors"
	"sync"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// EngineFactory builds the move chooser for a new game.
type EngineFactory func() model.MoveChooser

type GameManager struct {
	games     map[string]*model.Game
	newEngine EngineFactory
	mu        sync.RWMutex
}

func NewGameManager(newEngine EngineFactory) *GameManager {
	return &GameManager{
		games:     make(map[string]*model.Game),
		newEngine: newEngine,
	}
}

// CreateGame sets up a game under gameID and seats playerID as the human side. The game,
// including an engine opening move, is built before the registry is locked.
func (gm *GameManager) CreateGame(gameID, playerID string, opts model.GameOptions) (chess.Color, error) {
	if _, err := gm.GetGame(gameID); err == nil {
		return chess.NoColor, ErrGameExists
	}

	game, err := model.NewGame(gameID, gm.newEngine(), opts)
	if err != nil {
		return chess.NoColor, err
	}
	color, err := game.AddPlayer(playerID)
	if err != nil {
		return chess.NoColor, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if _, exists := gm.games[gameID]; exists {
		return chess.NoColor, ErrGameExists
	}
	gm.games[gameID] = game
	log.Infof("Created game %s for player %s as %s", gameID, playerID, color)
	return color, nil
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	return game, nil
}

// GameIDs returns the ids of all games in sorted order.
func (gm *GameManager) GameIDs() []string {
	gm.mu.RLock()
	ids := maps.Keys(gm.games)
	gm.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (gm *GameManager) RemoveGame(gameID string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[gameID]; !exists {
		return ErrGameNotFound
	}
	delete(gm.games, gameID)
	log.Infof("Removed game %s", gameID)
	return nil
}

// MakeMove looks the game up under the read lock only; the game serialises its own moves.
func (gm *GameManager) MakeMove(gameID, playerID string, req model.MoveRequest, prompter chess.PromotionPrompter) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.MakeMove(playerID, req, prompter)
}

func (gm *GameManager) RegisterConnection(gameID, playerID string, conn model.Connection) error {
	log.Debugf("Registering connection in game manager for game %s", gameID)
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.RegisterConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID, playerID string, conn model.Connection) {
	log.Debugf("Unregistering connection in game manager for game %s", gameID)
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(playerID, conn)
}
