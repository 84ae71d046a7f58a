package main

import (
	"os"
	"strings"

	"github.com/benbeisheim/chess-backend/internal/config"
	"github.com/benbeisheim/chess-backend/internal/controller"
	"github.com/benbeisheim/chess-backend/internal/engine"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	app := fiber.New(fiber.Config{
		AppName: "chess-backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize services
	gameManager := service.NewGameManager(func() model.MoveChooser {
		return engine.NewAIPlayer(engine.WithDepth(cfg.Depth), engine.WithWorkers(cfg.Workers))
	})
	gameService := service.NewGameService(gameManager, model.GameOptions{
		FEN:        cfg.FEN,
		HumanColor: cfg.HumanColor,
	})

	// Initialize controllers
	gameController := controller.NewGameController(gameService)
	wsController := controller.NewWebSocketController(gameService)

	origins := strings.Split(cfg.Origins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	controller.SetupRoutes(app, gameController, wsController, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Origins:         origins,
	})

	log.Infof("Engine depth %d, %d worker(s)", cfg.Depth, cfg.Workers)
	log.Fatal(app.Listen(cfg.Addr))
}
