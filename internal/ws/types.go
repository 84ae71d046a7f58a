package ws

import (
	"encoding/json"
)

// MessageType represents the different kinds of messages exchanged over a game socket
type MessageType string

const (
	// client -> server
	MessageTypeMove      MessageType = "move"
	MessageTypePromotion MessageType = "promotion"

	// server -> client
	MessageTypeGameState        MessageType = "gameState"
	MessageTypePromotionRequest MessageType = "promotionRequest"
	MessageTypeError            MessageType = "error"
)

// Message represents a WebSocket message in our system
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PromotionPayload answers a promotionRequest with one of q, r, b, n.
type PromotionPayload struct {
	Piece string `json:"piece"`
}

// PromotionRequestPayload asks the client for a promotion piece. Rejected carries the reason
// the previous answer was refused.
type PromotionRequestPayload struct {
	Move     string   `json:"move"`
	Choices  []string `json:"choices"`
	Rejected string   `json:"rejected,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessage marshals payload into a message of type t.
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: raw}, nil
}
