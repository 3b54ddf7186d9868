package messages

import (
	"github.com/tecu23/duel-server/internal/color"
	"github.com/tecu23/duel-server/pkg/rules"
)

// WinnerNone is the winner label of a drawn game
const WinnerNone = "none"

// Personalised game over texts
const (
	MsgYouWin  = "You win"
	MsgYouLose = "You lose"
	MsgDraw    = "It's a draw!"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Type       string      `json:"type"`
	Payload    interface{} `json:"payload,omitempty"`
	IsYourTurn *bool       `json:"isYourTurn,omitempty"`
}

// InitGamePayload tells a participant which side it plays
type InitGamePayload struct {
	Color    color.Color `json:"color"`
	GameID   string      `json:"gameId"`
	Opponent string      `json:"opponent,omitempty"`
}

// GameOverPayload is sent to both sides when a session ends
type GameOverPayload struct {
	Winner string `json:"winner"`
	Msg    string `json:"msg"`
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload reports a rejected request back to its sender
type ErrorPayload struct {
	Message string `json:"message"`
}

// InitGame builds the init_game notice for one side
func InitGame(p InitGamePayload, yourTurn bool) OutboundMessage {
	return OutboundMessage{Type: TypeInitGame, Payload: p, IsYourTurn: &yourTurn}
}

// Move builds a move broadcast tagged for one recipient
func Move(m rules.Move, yourTurn bool) OutboundMessage {
	return OutboundMessage{Type: TypeMove, Payload: m, IsYourTurn: &yourTurn}
}

// GameOver builds a game_over notice
func GameOver(p GameOverPayload) OutboundMessage {
	return OutboundMessage{Type: TypeGameOver, Payload: p}
}

// GameRequest builds the relayed send_game_request notice
func GameRequest(p GameRequestPayload) OutboundMessage {
	return OutboundMessage{Type: TypeSendGameRequest, Payload: p}
}

// Error builds an error notice
func Error(msg string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Payload: ErrorPayload{Message: msg}}
}
