package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/duel-server/internal/color"
	"github.com/tecu23/duel-server/pkg/rules"
)

func TestMovePayload_AcceptsBothForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want rules.Move
	}{
		{
			name: "flat",
			raw:  `{"from":"e2","to":"e4"}`,
			want: rules.Move{From: "e2", To: "e4"},
		},
		{
			name: "nested",
			raw:  `{"move":{"from":"e7","to":"e8","promotion":"q"}}`,
			want: rules.Move{From: "e7", To: "e8", Promotion: "q"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p MovePayload
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &p))
			assert.Equal(t, tt.want, p.Normalize())
		})
	}
}

func TestInitGame_WireShape(t *testing.T) {
	msg := InitGame(InitGamePayload{Color: color.White, GameID: "g1", Opponent: "bob@example.com"}, true)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"init_game","isYourTurn":true,"payload":{"color":"white","gameId":"g1","opponent":"bob@example.com"}}`,
		string(raw))
}

func TestMove_FalseTurnIsSerialised(t *testing.T) {
	raw, err := json.Marshal(Move(rules.Move{From: "e2", To: "e4"}, false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"move","isYourTurn":false,"payload":{"from":"e2","to":"e4"}}`, string(raw))
}

func TestGameOver_OmitsTurnFlag(t *testing.T) {
	raw, err := json.Marshal(GameOver(GameOverPayload{Winner: WinnerNone, Msg: MsgDraw, Reason: "stalemate"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game_over","payload":{"winner":"none","msg":"It's a draw!","reason":"stalemate"}}`, string(raw))
}
