// Command play runs a game against the engine on the terminal.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/config"
	"github.com/benbeisheim/chess-backend/internal/engine"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

const consolePlayer = "console"

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// Game logging below error level would interleave with the board.
	if cfg.LogLevel < log.LevelError {
		cfg.LogLevel = log.LevelError
	}
	log.SetLevel(cfg.LogLevel)

	if err := run(os.Stdin, os.Stdout, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, cfg config.Config) error {
	ai := engine.NewAIPlayer(engine.WithDepth(cfg.Depth), engine.WithWorkers(cfg.Workers))
	game, err := model.NewGame(consolePlayer, ai, model.GameOptions{FEN: cfg.FEN, HumanColor: cfg.HumanColor})
	if err != nil {
		return err
	}
	if _, err := game.AddPlayer(consolePlayer); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	prompter := chess.NewScannerPrompter(scanner, out)
	state := game.GetState()
	for {
		printState(out, game.Board(), state)
		if state.Status.Over() {
			return nil
		}

		fmt.Fprintln(out, "Enter your move below in coordinate notation: (e.g. a2 a3, 0-0)")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			return nil
		}

		next, err := game.MakeMove(consolePlayer, model.MoveRequest{Move: line}, prompter)
		switch {
		case errors.Is(err, chess.ErrInvalidNotation):
			fmt.Fprintln(out, "this is not a real move")
			continue
		case errors.Is(err, chess.ErrIllegalMove):
			fmt.Fprintln(out, "illegal move")
			continue
		case errors.Is(err, chess.ErrInvalidPromotion):
			fmt.Fprintln(out, err)
			continue
		case err != nil:
			return err
		}
		state = next
	}
}

func printState(out io.Writer, b *chess.Board, state model.GameState) {
	fmt.Fprintln(out)
	fmt.Fprint(out, b)
	if n := len(state.MoveHistory); n > 0 {
		last := state.MoveHistory[n-1]
		if last.WhitePly != nil {
			fmt.Fprintf(out, "%d. %s", n, last.WhitePly.Notation)
		} else {
			fmt.Fprintf(out, "%d. ...", n)
		}
		if last.BlackPly != nil {
			fmt.Fprintf(out, " %s", last.BlackPly.Notation)
		}
		fmt.Fprintln(out)
	}

	switch state.Status {
	case model.StatusCheckmate:
		fmt.Fprintf(out, "Checkmate, %s wins.\n", *state.Winner)
	case model.StatusStalemate:
		fmt.Fprintln(out, "Stalemate.")
	case model.StatusCheck:
		fmt.Fprintf(out, "%s is in check.\n", state.ToMove)
	}
}
