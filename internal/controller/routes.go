package controller

import (
	"github.com/benbeisheim/chess-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SetupRoutes mounts the REST API under /api and the game socket under /ws.
func SetupRoutes(app *fiber.App, gc *GameController, wsc *WebSocketController, wsConfig websocket.Config) {
	// Set up WebSocket routes
	app.Use("/ws", middleware.EnsurePlayerID())
	app.Get("/ws/game/:gameId", middleware.WebSocketUpgrade(), websocket.New(wsc.HandleConnection, wsConfig))

	// Set up REST routes
	api := app.Group("/api", middleware.EnsurePlayerID())

	gameRoutes := api.Group("/game")
	gameRoutes.Get("/", gc.ListGames)
	gameRoutes.Post("/create", gc.CreateGame)
	gameRoutes.Get("/:gameId", gc.GetGameState)
	gameRoutes.Delete("/:gameId", gc.DeleteGame)
	gameRoutes.Post("/:gameId/move", gc.MakeMove)
	gameRoutes.Get("/:gameId/fen", gc.GetFEN)
	gameRoutes.Get("/:gameId/moves", gc.GetLegalMoves)
	gameRoutes.Get("/:gameId/board.svg", gc.GetBoardSVG)
}
