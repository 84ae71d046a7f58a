package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

var errNoPromotionPending = errors.New("no promotion pending")

// socket is the subset of *websocket.Conn the message loop needs.
type socket interface {
	model.Connection
	ReadMessage() (messageType int, p []byte, err error)
}

// lockedSocket serialises writes; game broadcasts and the read loop share the connection.
type lockedSocket struct {
	socket
	mu sync.Mutex
}

func (s *lockedSocket) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socket.WriteJSON(v)
}

func (s *lockedSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socket.WriteMessage(messageType, data)
}

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// HandleConnection is called when a new WebSocket connection is established
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID, _ := c.Locals("wsGameID").(string)
	playerID, _ := c.Locals("wsPlayerID").(string)
	log.Infof("WebSocket connection established for game %s, player %s", gameID, playerID)

	wsc.serve(gameID, playerID, c)
}

func (wsc *WebSocketController) serve(gameID, playerID string, raw socket) {
	conn := &lockedSocket{socket: raw}

	// Register this connection with the game
	if err := wsc.gameService.RegisterConnection(gameID, playerID, conn); err != nil {
		log.Warnf("Failed to register connection: %v", err)
		wsc.sendError(conn, err)
		conn.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, conn)

	for {
		msg, err := readMessage(conn)
		if err != nil {
			log.Debugf("read error: %v", err)
			return
		}
		if msg == nil {
			continue
		}

		if err := wsc.handleMessage(conn, gameID, playerID, *msg); err != nil {
			log.Debugf("handle error: %v", err)
			wsc.sendError(conn, err)
		}
	}
}

// readMessage returns the next text message, or nil for frames it skips.
func readMessage(conn socket) (*ws.Message, error) {
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.TextMessage {
		return nil, nil
	}
	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debugf("parse error: %v", err)
		return nil, nil
	}
	return &msg, nil
}

// Handle different types of incoming messages
func (wsc *WebSocketController) handleMessage(conn *lockedSocket, gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var req model.MoveRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("invalid move payload: %w", err)
		}
		prompter := &socketPrompter{conn: conn, move: req.Move, onStray: wsc.sendError}
		// The new state reaches this socket through the game's broadcast.
		_, err := wsc.gameService.HandleMove(gameID, playerID, req, prompter)
		return err

	case ws.MessageTypePromotion:
		return errNoPromotionPending

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// Helper method to send error messages
func (wsc *WebSocketController) sendError(conn model.Connection, err error) {
	msg, merr := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Error: err.Error()})
	if merr != nil {
		log.Errorf("Failed to marshal error: %v", merr)
		return
	}
	if werr := conn.WriteJSON(msg); werr != nil {
		log.Debugf("Failed to send error: %v", werr)
	}
}

// socketPrompter asks the client for a promotion piece and blocks until it answers.
type socketPrompter struct {
	conn    *lockedSocket
	move    string
	onStray func(model.Connection, error)
}

var promotionChoices = []string{"q", "r", "b", "n"}

func (p *socketPrompter) PromptPromotion(rejected error) (string, error) {
	req := ws.PromotionRequestPayload{Move: p.move, Choices: promotionChoices}
	if rejected != nil {
		req.Rejected = rejected.Error()
	}
	msg, err := ws.NewMessage(ws.MessageTypePromotionRequest, req)
	if err != nil {
		return "", err
	}
	if err := p.conn.WriteJSON(msg); err != nil {
		return "", err
	}

	for {
		in, err := readMessage(p.conn)
		if err != nil {
			return "", err
		}
		if in == nil {
			continue
		}
		if in.Type != ws.MessageTypePromotion {
			p.onStray(p.conn, fmt.Errorf("promotion pending for %s: message %s ignored", p.move, in.Type))
			continue
		}
		var answer ws.PromotionPayload
		if err := json.Unmarshal(in.Payload, &answer); err != nil {
			p.onStray(p.conn, fmt.Errorf("invalid promotion payload: %w", err))
			continue
		}
		return answer.Piece, nil
	}
}
