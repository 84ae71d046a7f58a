package controller

import (
	"bytes"
	"errors"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/render"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

const maxSquareSize = 200

type createGameRequest struct {
	FEN   string `json:"fen"`
	Color string `json:"color"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chess.ErrInvalidNotation),
		errors.Is(err, chess.ErrInvalidPromotion),
		errors.Is(err, chess.ErrInvalidFEN):
		return fiber.StatusBadRequest
	case errors.Is(err, chess.ErrIllegalMove):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNotYourTurn),
		errors.Is(err, model.ErrGameOver),
		errors.Is(err, model.ErrSeatTaken),
		errors.Is(err, service.ErrGameExists),
		errors.Is(err, chess.ErrPromotionRequired):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrNotYourGame),
		errors.Is(err, model.ErrUnauthorized):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	playerID := c.Locals("playerID").(string)

	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	opts := model.GameOptions{FEN: req.FEN}
	if req.Color != "" {
		color, err := chess.ParseColor(req.Color)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		opts.HumanColor = color
	}

	created, err := gc.gameService.CreateGame(playerID, opts)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"gameId":  created.GameID,
		"color":   created.Color,
	})
}

func (gc *GameController) ListGames(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"games": gc.gameService.ListGames(),
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}

	return c.JSON(gameState)
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	playerID := c.Locals("playerID").(string)

	var req model.MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// No prompt over plain HTTP: a promotion without a piece is answered with 409.
	gameState, err := gc.gameService.HandleMove(gameID, playerID, req, nil)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(gameState)
}

func (gc *GameController) GetFEN(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"fen": gameState.FEN,
	})
}

func (gc *GameController) GetLegalMoves(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"toMove": gameState.ToMove,
		"moves":  gameState.LegalMoves,
	})
}

// GetBoardSVG renders the position; ?flip=true draws it from black's side.
func (gc *GameController) GetBoardSVG(c *fiber.Ctx) error {
	gameState, b, err := gc.gameService.GetSnapshot(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}

	opts := render.Options{
		SquareSize: c.QueryInt("size", render.DefaultSquareSize),
		Flip:       c.QueryBool("flip", false),
	}
	if opts.SquareSize < 10 || opts.SquareSize > maxSquareSize {
		opts.SquareSize = render.DefaultSquareSize
	}
	if last := gameState.LastMove; last != nil {
		opts.Highlight = []chess.Position{last.From, last.To}
	}

	var buf bytes.Buffer
	render.Board(&buf, b, opts)
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.Send(buf.Bytes())
}

func (gc *GameController) DeleteGame(c *fiber.Ctx) error {
	playerID := c.Locals("playerID").(string)
	if err := gc.gameService.DeleteGame(c.Params("gameId"), playerID); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
