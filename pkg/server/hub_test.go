package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/duel-server/pkg/manager"
	"github.com/tecu23/duel-server/pkg/messages"
)

type frame struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	IsYourTurn *bool           `json:"isYourTurn"`
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	logger := zap.NewNop()
	hub := NewHub(manager.NewManager(logger, nil), 16, logger)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(ws, r.URL.Query().Get("who"))
	}))

	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, who string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?who=" + who
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return ws
}

func write(t *testing.T, ws *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func read(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, ws.ReadJSON(&f))

	return f
}

func TestHub_QuickMatchOverWebsocket(t *testing.T) {
	hub, srv := newTestServer(t)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	write(t, alice, `{"type":"init_game"}`)
	require.Eventually(t, func() bool {
		_, waiting := hub.manager.Queue().Waiting()
		return waiting
	}, time.Second, 10*time.Millisecond)
	write(t, bob, `{"type":"init_game"}`)

	aInit := read(t, alice)
	require.Equal(t, "init_game", aInit.Type)
	require.NotNil(t, aInit.IsYourTurn)
	assert.True(t, *aInit.IsYourTurn)
	assert.Contains(t, string(aInit.Payload), `"color":"white"`)

	bInit := read(t, bob)
	require.Equal(t, "init_game", bInit.Type)
	assert.False(t, *bInit.IsYourTurn)
	assert.Contains(t, string(bInit.Payload), `"color":"black"`)

	write(t, alice, `{"type":"move","payload":{"from":"e2","to":"e4"}}`)

	aMove := read(t, alice)
	bMove := read(t, bob)
	assert.Equal(t, "move", aMove.Type)
	assert.False(t, *aMove.IsYourTurn)
	assert.Equal(t, "move", bMove.Type)
	assert.True(t, *bMove.IsYourTurn)

	require.NoError(t, alice.Close())

	over := read(t, bob)
	assert.Equal(t, "game_over", over.Type)
	assert.JSONEq(t, `{"winner":"black","msg":"You win","reason":"disconnect"}`, string(over.Payload))

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_GarbageDoesNotCloseConnection(t *testing.T) {
	hub, srv := newTestServer(t)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	write(t, alice, `not json`)
	write(t, alice, `{"type":"teleport"}`)
	write(t, alice, `{"type":"init_game"}`)
	write(t, bob, `{"type":"init_game"}`)

	assert.Equal(t, "init_game", read(t, alice).Type)
	assert.Equal(t, "init_game", read(t, bob).Type)
	assert.Equal(t, 2, hub.Len())
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub, srv := newTestServer(t)

	ws := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Shutdown()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, hub.Register(&Connection{id: "late", logger: zap.NewNop(), done: make(chan struct{})}), ErrHubClosed)
}

func TestConnection_SendAfterCloseIsDropped(t *testing.T) {
	hub := NewHub(manager.NewManager(zap.NewNop(), nil), 1, zap.NewNop())
	conn := NewConnection(nil, hub, "alice", 1, zap.NewNop())

	conn.Send(frameOf("first"))
	conn.Send(frameOf("overflow"))
	assert.Len(t, conn.send, 1)

	conn.close()
	conn.close()
	conn.Send(frameOf("late"))
	assert.Len(t, conn.send, 1)
}

func frameOf(typ string) messages.OutboundMessage {
	return messages.OutboundMessage{Type: typ}
}
