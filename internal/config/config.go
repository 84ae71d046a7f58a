// Package config reads server settings from command-line flags, falling back to CHESS_*
// environment variables and then to built-in defaults.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/engine"
	"github.com/gofiber/fiber/v2/log"
)

type Config struct {
	Addr       string
	Origins    string
	Depth      int
	Workers    int
	FEN        string
	HumanColor chess.Color
	LogLevel   log.Level
}

var levels = map[string]log.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Load parses args (without the program name). getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string) (Config, error) {
	envOr := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	envInt := func(key string, def int) (int, error) {
		v := getenv(key)
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	}

	depthDefault, err := envInt("CHESS_DEPTH", engine.DefaultDepth)
	if err != nil {
		return Config{}, err
	}
	workersDefault, err := envInt("CHESS_WORKERS", 1)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("chess-server", flag.ContinueOnError)
	addr := fs.String("addr", envOr("CHESS_ADDR", ":3000"), "Listen address")
	origins := fs.String("origins", envOr("CHESS_ORIGINS", "http://localhost:5173"), "Comma separated CORS origins")
	depth := fs.Int("depth", depthDefault, "Engine search depth in plies")
	workers := fs.Int("workers", workersDefault, "Goroutines scoring the engine's root moves")
	fen := fs.String("fen", envOr("CHESS_FEN", ""), "Starting FEN for new games (defaults to initial position)")
	color := fs.String("color", envOr("CHESS_COLOR", "white"), `Default human side: "white" or "black"`)
	level := fs.String("log-level", envOr("CHESS_LOG_LEVEL", "info"), "One of trace, debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:    *addr,
		Origins: *origins,
		Depth:   *depth,
		Workers: *workers,
		FEN:     *fen,
	}
	if cfg.Depth < 1 {
		return Config{}, fmt.Errorf("depth must be positive, got %d", cfg.Depth)
	}
	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.FEN != "" {
		if _, err := chess.ParseFEN(cfg.FEN); err != nil {
			return Config{}, err
		}
	}
	if cfg.HumanColor, err = chess.ParseColor(strings.ToLower(*color)); err != nil {
		return Config{}, err
	}
	lvl, ok := levels[strings.ToLower(*level)]
	if !ok {
		return Config{}, fmt.Errorf("unknown log level %q", *level)
	}
	cfg.LogLevel = lvl
	return cfg, nil
}
