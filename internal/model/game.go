package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benbeisheim/chess-backend/internal/chess"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

var (
	ErrGameOver     = errors.New("game is over")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotYourGame  = errors.New("player is not seated in this game")
	ErrSeatTaken    = errors.New("game already has a player")
	ErrUnauthorized = errors.New("not authorized to join this game")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCheck     Status = "check"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
)

func (s Status) Over() bool {
	return s == StatusCheckmate || s == StatusStalemate
}

// MoveChooser picks the engine's reply. It must not modify the board.
type MoveChooser interface {
	ChooseMove(b *chess.Board) (chess.Move, error)
}

// Connection is the part of a websocket connection a game writes to.
type Connection interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// The connections observing a specific game
type GameConnections struct {
	connections map[string]Connection // playerID -> connection
	mu          sync.RWMutex
}

// Game is one human-versus-engine game and its observers.
type Game struct {
	ID          string
	mu          sync.Mutex
	board       *chess.Board
	engine      MoveChooser
	state       GameState
	connections *GameConnections
}

type GameState struct {
	ID             string               `json:"id"`
	Sound          string               `json:"sound"`
	FEN            string               `json:"fen"`
	Board          [8][8]chess.Square   `json:"board"`
	ToMove         chess.Color          `json:"toMove"`
	Castling       chess.CastlingRights `json:"castling"`
	MoveHistory    []Move               `json:"moveHistory"`
	CapturedPieces CapturedPieces       `json:"capturedPieces"`
	IsCheck        bool                 `json:"isCheck"`
	LegalMoves     []string             `json:"legalMoves"`
	Status         Status               `json:"status"`
	Winner         *chess.Color         `json:"winner"`
	Players        Players              `json:"players"`
	LastMove       *chess.Move          `json:"lastMove"`
}

// CapturedPieces lists the pieces each side has taken.
type CapturedPieces struct {
	White []chess.Square `json:"white"`
	Black []chess.Square `json:"black"`
}

type GameOptions struct {
	// FEN is the starting position; empty means the standard start.
	FEN string
	// HumanColor is the side played by the human seat.
	HumanColor chess.Color
}

// NewGame sets up a game from opts. When the engine is to move first it replies before
// NewGame returns.
func NewGame(id string, engine MoveChooser, opts GameOptions) (*Game, error) {
	board := chess.NewBoard()
	if opts.FEN != "" {
		b, err := chess.ParseFEN(opts.FEN)
		if err != nil {
			return nil, err
		}
		board = b
	}
	human := opts.HumanColor
	if human == chess.NoColor {
		human = chess.White
	}

	g := &Game{
		ID:          id,
		board:       board,
		engine:      engine,
		state:       newGameState(id),
		connections: NewGameConnections(),
	}
	engineSeat := g.state.Players.seat(human.Opposite())
	*engineSeat = ClientPlayer{ID: EngineID, Color: human.Opposite(), Engine: true}
	g.state.Players.seat(human).Color = human

	g.refreshState()
	if !g.state.Status.Over() && g.board.ToMove != human {
		if err := g.engineMove(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]Connection),
	}
}

func newGameState(id string) GameState {
	return GameState{
		ID:          id,
		MoveHistory: make([]Move, 0),
		CapturedPieces: CapturedPieces{
			White: make([]chess.Square, 0),
			Black: make([]chess.Square, 0),
		},
		LegalMoves: make([]string, 0),
		Status:     StatusActive,
	}
}

func (g *Game) humanColor() chess.Color {
	if g.state.Players.White.Engine {
		return chess.Black
	}
	return chess.White
}

// AddPlayer seats playerID on the human side. Rejoining with the seated id is allowed.
func (g *Game) AddPlayer(playerID string) (chess.Color, error) {
	log.Infof("Adding player %s to game %s", playerID, g.ID)
	g.mu.Lock()
	defer g.mu.Unlock()

	seat := g.state.Players.seat(g.humanColor())
	if seat.ID == "" || seat.ID == playerID {
		seat.ID = playerID
		return seat.Color, nil
	}
	return chess.NoColor, ErrSeatTaken
}

func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot()
}

// Board returns an independent copy of the current position.
func (g *Game) Board() *chess.Board {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.board.Clone()
}

// Snapshot returns the state together with a copy of the position it describes.
func (g *Game) Snapshot() (GameState, *chess.Board) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot(), g.board.Clone()
}

func (g *Game) IsPlayerInGame(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.isPlayerInGame(playerID)
}

func (g *Game) isPlayerInGame(playerID string) bool {
	seat := g.state.Players.seat(g.humanColor())
	return seat.ID != "" && seat.ID == playerID
}

// MakeMove plays the seated player's move and, unless the game ends, the engine's reply.
// prompter is consulted when a promotion needs a piece and req names none; it may be nil.
// The prompt runs without the game lock, so other readers are served while it waits.
// A rejected move leaves the position unchanged. The engine reply cannot fail once the
// status check has found legal moves for it.
func (g *Game) MakeMove(playerID string, req MoveRequest, prompter chess.PromotionPrompter) (GameState, error) {
	log.Infof("Making move %q in game %s", req.Move, g.ID)
	req, err := g.choosePromotion(playerID, req, prompter)
	if err != nil {
		return GameState{}, err
	}

	g.mu.Lock()
	err = g.makeMove(playerID, req)
	state := g.snapshot()
	g.mu.Unlock()
	if err != nil {
		return GameState{}, err
	}

	g.broadcastState(state)
	return state, nil
}

// choosePromotion fills req.Promotion from prompter when req is a legal promotion without a
// piece. The position may change while the prompt waits; makeMove validates again.
func (g *Game) choosePromotion(playerID string, req MoveRequest, prompter chess.PromotionPrompter) (MoveRequest, error) {
	if prompter == nil || req.Promotion != "" {
		return req, nil
	}

	g.mu.Lock()
	err := g.checkTurn(playerID)
	var move chess.Move
	if err == nil {
		move, err = g.validateMove(req)
	}
	promotes := err == nil && chess.IsPromotion(g.board, move)
	g.mu.Unlock()
	if err != nil || !promotes {
		return req, err
	}

	var rejected error
	for {
		answer, err := prompter.PromptPromotion(rejected)
		if err != nil {
			return req, fmt.Errorf("promotion prompt: %w", err)
		}
		if _, err := chess.ParsePromotion(answer); err != nil {
			rejected = err
			continue
		}
		req.Promotion = answer
		return req, nil
	}
}

func (g *Game) checkTurn(playerID string) error {
	if !g.isPlayerInGame(playerID) {
		return ErrNotYourGame
	}
	if g.state.Status.Over() {
		return ErrGameOver
	}
	if g.board.ToMove != g.humanColor() {
		return ErrNotYourTurn
	}
	return nil
}

func (g *Game) makeMove(playerID string, req MoveRequest) error {
	if err := g.checkTurn(playerID); err != nil {
		return err
	}

	move, err := g.validateMove(req)
	if err != nil {
		return err
	}
	if err := g.executeMove(move, false); err != nil {
		return err
	}

	if !g.state.Status.Over() {
		return g.engineMove()
	}
	return nil
}

func (g *Game) validateMove(req MoveRequest) (chess.Move, error) {
	m, err := chess.ParseMove(g.board, req.Move)
	if err != nil {
		return chess.Move{}, err
	}
	if req.Promotion != "" {
		p, err := chess.ParsePromotion(req.Promotion)
		if err != nil {
			return chess.Move{}, err
		}
		m.Promotion = p
	}
	legal, ok := chess.FindLegalMove(g.board, m)
	if !ok {
		return chess.Move{}, fmt.Errorf("%w: %s", chess.ErrIllegalMove, req.Move)
	}
	return legal, nil
}

func (g *Game) engineMove() error {
	m, err := g.engine.ChooseMove(g.board)
	if err != nil {
		return fmt.Errorf("engine move: %w", err)
	}
	if chess.IsPromotion(g.board, m) && m.Promotion == chess.None {
		m.Promotion = chess.Queen
	}
	log.Infof("Engine plays %s in game %s", m, g.ID)
	return g.executeMove(m, true)
}

func (g *Game) executeMove(m chess.Move, byEngine bool) error {
	ply := g.makePly(m)
	ply.ByEngine = byEngine
	mover := g.board.ToMove

	if err := g.board.ApplyMove(m, chess.MoveOptions{}); err != nil {
		return err
	}

	if ply.Piece.Type == chess.Pawn && g.board.At(m.To).Type != chess.Pawn {
		ply.Promotion = g.board.At(m.To).Type
		ply.Notation += "=" + string(rune(ply.Promotion.Char()-0x20))
	}
	if ply.CapturedPiece != nil {
		captured := &g.state.CapturedPieces.White
		if mover == chess.Black {
			captured = &g.state.CapturedPieces.Black
		}
		*captured = append(*captured, *ply.CapturedPiece)
	}

	g.refreshState()

	switch {
	case g.state.Status == StatusCheckmate:
		ply.Notation += "#"
	case g.state.IsCheck:
		ply.Notation += "+"
	}

	switch {
	case g.state.IsCheck:
		g.state.Sound = "check"
	case ply.CapturedPiece != nil:
		g.state.Sound = "capture"
	default:
		g.state.Sound = "move"
	}

	// Add the ply to the move history
	if mover == chess.White || len(g.state.MoveHistory) == 0 {
		entry := Move{}
		if mover == chess.White {
			entry.WhitePly = &ply
		} else {
			entry.BlackPly = &ply
		}
		g.state.MoveHistory = append(g.state.MoveHistory, entry)
	} else {
		lastIdx := len(g.state.MoveHistory) - 1
		if g.state.MoveHistory[lastIdx].BlackPly != nil {
			g.state.MoveHistory = append(g.state.MoveHistory, Move{BlackPly: &ply})
		} else {
			g.state.MoveHistory[lastIdx].BlackPly = &ply
		}
	}

	last := m
	g.state.LastMove = &last
	return nil
}

// refreshState recomputes everything derived from the board.
func (g *Game) refreshState() {
	b := g.board
	moves := chess.AllLegalMoves(b)
	g.state.FEN = b.FEN()
	g.state.Board = b.Squares
	g.state.ToMove = b.ToMove
	g.state.Castling = b.Castling
	g.state.IsCheck = b.InCheck(b.ToMove)

	g.state.LegalMoves = make([]string, 0, len(moves))
	for _, m := range moves {
		g.state.LegalMoves = append(g.state.LegalMoves, m.String())
	}

	g.state.Winner = nil
	switch {
	case len(moves) == 0 && g.state.IsCheck:
		g.state.Status = StatusCheckmate
		winner := b.ToMove.Opposite()
		g.state.Winner = &winner
	case len(moves) == 0:
		g.state.Status = StatusStalemate
	case g.state.IsCheck:
		g.state.Status = StatusCheck
	default:
		g.state.Status = StatusActive
	}
}

func (g *Game) makePly(m chess.Move) Ply {
	piece := g.board.At(m.From)
	ply := Ply{
		Piece:    piece,
		From:     m.From,
		To:       m.To,
		Notation: g.getNotation(m),
	}
	switch {
	case m.IsCastle:
		from, to := chess.CastleRookSquares(m)
		ply.CastleRookMove = &CastleRookMove{From: from, To: to}
	case m.IsEnPassant:
		captured := g.board.At(chess.Position{X: m.To.X, Y: m.From.Y})
		ply.CapturedPiece = &captured
	default:
		if target := g.board.At(m.To); !target.IsEmpty() {
			ply.CapturedPiece = &target
		}
	}
	return ply
}

// getNotation renders a short algebraic form of m, without check suffixes.
func (g *Game) getNotation(m chess.Move) string {
	if m.IsCastle {
		if m.To.X > m.From.X {
			return "O-O"
		}
		return "O-O-O"
	}
	piece := g.board.At(m.From)
	prefix := ""
	if piece.Type != chess.Pawn {
		prefix = string(rune(piece.Type.Char() - 0x20))
	}
	capture := ""
	if !g.board.At(m.To).IsEmpty() || m.IsEnPassant {
		capture = "x"
		if piece.Type == chess.Pawn {
			prefix = m.From.File()
		}
	}
	return fmt.Sprintf("%s%s%s", prefix, capture, m.To)
}

// snapshot copies the state so callers never share slices with the game.
func (g *Game) snapshot() GameState {
	s := g.state
	s.MoveHistory = make([]Move, len(g.state.MoveHistory))
	for i, mv := range g.state.MoveHistory {
		if mv.WhitePly != nil {
			p := *mv.WhitePly
			s.MoveHistory[i].WhitePly = &p
		}
		if mv.BlackPly != nil {
			p := *mv.BlackPly
			s.MoveHistory[i].BlackPly = &p
		}
	}
	s.CapturedPieces = CapturedPieces{
		White: append(make([]chess.Square, 0, len(g.state.CapturedPieces.White)), g.state.CapturedPieces.White...),
		Black: append(make([]chess.Square, 0, len(g.state.CapturedPieces.Black)), g.state.CapturedPieces.Black...),
	}
	s.LegalMoves = append(make([]string, 0, len(g.state.LegalMoves)), g.state.LegalMoves...)
	return s
}

func (g *Game) RegisterConnection(playerID string, conn Connection) error {
	connID := fmt.Sprintf("%p", conn)
	log.Infof("Starting RegisterConnection for player %s, conn %s", playerID, connID)

	g.mu.Lock()
	// Anyone may watch; only the seated player may move.
	isAuthorized := playerID != "" && playerID != EngineID
	state := g.snapshot()
	g.mu.Unlock()

	if !isAuthorized {
		return ErrUnauthorized
	}

	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		// If we already have a healthy connection, keep it and reject the new one
		g.connections.mu.Unlock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(
				websocket.CloseNormalClosure,
				"Connection already exists",
			),
		)
		conn.Close()
		return nil
	}

	g.connections.connections[playerID] = conn
	g.connections.mu.Unlock()
	log.Infof("Registered new connection %s for player %s", connID, playerID)

	g.sendState(playerID, conn, state)
	return nil
}

func (g *Game) UnregisterConnection(playerID string, conn Connection) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	current, exists := g.connections.connections[playerID]
	if !exists {
		return
	}
	// Only unregister if this is still the current connection
	if current == conn {
		log.Infof("Unregistering current connection %p for player %s", conn, playerID)
		delete(g.connections.connections, playerID)
	} else {
		log.Debugf("Ignoring unregister for old connection %p for player %s", conn, playerID)
	}
}

func (g *Game) broadcastState(state GameState) {
	// Copy the connections so no lock is held while writing
	g.connections.mu.RLock()
	activeConnections := make(map[string]Connection, len(g.connections.connections))
	for playerID, conn := range g.connections.connections {
		activeConnections[playerID] = conn
	}
	g.connections.mu.RUnlock()

	for playerID, conn := range activeConnections {
		g.sendState(playerID, conn, state)
	}
}

func (g *Game) sendState(playerID string, conn Connection, state GameState) {
	msg, err := ws.NewMessage(ws.MessageTypeGameState, state)
	if err != nil {
		log.Errorf("Failed to marshal state of game %s: %v", g.ID, err)
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Warnf("Failed to send state to player %s: %v", playerID, err)
		g.UnregisterConnection(playerID, conn)
		return
	}
	log.Debugf("Sent state of game %s to player %s", g.ID, playerID)
}
