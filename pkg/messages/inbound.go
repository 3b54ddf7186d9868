// Package messages defines the JSON envelopes exchanged over the websocket
package messages

import (
	"encoding/json"

	"github.com/tecu23/duel-server/pkg/rules"
)

// Message types recognised on the wire
const (
	TypeInitGame          = "init_game"
	TypeMove              = "move"
	TypeGameOver          = "game_over"
	TypeSendGameRequest   = "send_game_request"
	TypeAcceptGameRequest = "accept_game_request"
	TypeError             = "error"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MovePayload accepts both the flat {from,to,promotion} form and the
// nested {move:{from,to,promotion}} form older clients send.
type MovePayload struct {
	rules.Move
	Nested *rules.Move `json:"move,omitempty"`
}

// Normalize returns the move regardless of which form was sent
func (p MovePayload) Normalize() rules.Move {
	if p.Nested != nil {
		return *p.Nested
	}

	return p.Move
}

// GameRequestPayload is used by both send_game_request and accept_game_request.
type GameRequestPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	GameID string `json:"gameId"`
}
