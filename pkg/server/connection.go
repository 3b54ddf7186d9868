package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/duel-server/pkg/messages"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	DefaultSendBuffer = 256
)

// Connection is one websocket client. It implements session.Peer.
type Connection struct {
	id       string
	identity string

	ws   *websocket.Conn // The underlying Websocket connection
	hub  *Hub
	send chan []byte // Buffered channel of outbound messages.

	done      chan struct{}
	closeOnce sync.Once

	logger *zap.Logger
}

func NewConnection(ws *websocket.Conn, hub *Hub, identity string, sendBuffer int, logger *zap.Logger) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	id := uuid.New().String()

	return &Connection{
		id:       id,
		identity: identity,
		ws:       ws,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		logger:   logger.With(zap.String("connection_id", id)),
	}
}

func (c *Connection) ID() string { return c.id }

// Identity is the authenticated player id, empty for anonymous connections
func (c *Connection) Identity() string { return c.identity }

// Send queues a message without blocking. Frames for a closed or saturated
// connection are dropped.
func (c *Connection) Send(msg messages.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Error marshaling JSON", zap.Error(err))
		return
	}

	select {
	case <-c.done:
		c.logger.Debug("dropping frame for closed connection", zap.String("type", msg.Type))
		return
	default:
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.logger.Warn("send buffer full, dropping frame", zap.String("type", msg.Type))
	}
}

// ReadPump handles inbound messages from the client. Each frame is handed to
// the manager on this goroutine. It returns when the socket fails or closes.
func (c *Connection) ReadPump() {
	defer c.hub.Unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		if err := c.hub.manager.HandleMessage(c.hub.ctx, c, msg); err != nil {
			c.logger.Debug("inbound message not handled", zap.Error(err))
		}
	}
}

// WritePump drains the send buffer onto the socket and keeps it alive with pings
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close stops the write pump; later sends become no-ops
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
