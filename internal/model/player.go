package model

import "github.com/benbeisheim/chess-backend/internal/chess"

// EngineID names the engine's seat.
const EngineID = "engine"

type ClientPlayer struct {
	ID     string      `json:"name"`
	Color  chess.Color `json:"color"`
	Engine bool        `json:"engine"`
}

type Players struct {
	White ClientPlayer `json:"white"`
	Black ClientPlayer `json:"black"`
}

func (p *Players) seat(c chess.Color) *ClientPlayer {
	if c == chess.White {
		return &p.White
	}
	return &p.Black
}
