package model

import "github.com/benbeisheim/chess-backend/internal/chess"

// MoveRequest is a move as submitted by a client: "e2 e4", "0-0", "0-0-0", with an
// optional promotion letter.
type MoveRequest struct {
	Move      string `json:"move"`
	Promotion string `json:"promotion,omitempty"`
}

type CastleRookMove struct {
	From chess.Position `json:"from"`
	To   chess.Position `json:"to"`
}

type Ply struct {
	Piece          chess.Square    `json:"piece"`
	From           chess.Position  `json:"from"`
	To             chess.Position  `json:"to"`
	CapturedPiece  *chess.Square   `json:"capturedPiece"`
	CastleRookMove *CastleRookMove `json:"castleRookMove"`
	Promotion      chess.PieceType `json:"promotion"`
	Notation       string          `json:"notation"`
	ByEngine       bool            `json:"byEngine"`
}

type Move struct {
	WhitePly *Ply `json:"whitePly"`
	BlackPly *Ply `json:"blackPly"`
}
