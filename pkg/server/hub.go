package server

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/duel-server/pkg/manager"
)

var ErrHubClosed = errors.New("hub is shut down")

// Hub keeps track of all active connections and ties their lifetime to the manager
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // Registered connections
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc

	manager    *manager.Manager
	sendBuffer int
	logger     *zap.Logger
}

// NewHub creates a new hub
func NewHub(m *manager.Manager, sendBuffer int, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[string]*Connection),
		ctx:         ctx,
		cancel:      cancel,
		manager:     m,
		sendBuffer:  sendBuffer,
		logger:      logger,
	}
}

// Serve runs an upgraded websocket until it closes
func (h *Hub) Serve(ws *websocket.Conn, identity string) {
	conn := NewConnection(ws, h, identity, h.sendBuffer, h.logger)

	if err := h.Register(conn); err != nil {
		_ = ws.Close()
		return
	}

	go conn.WritePump()
	conn.ReadPump()
}

// Register adds the connection and attaches it to the manager
func (h *Hub) Register(conn *Connection) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.connections[conn.ID()] = conn
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("New connection registered",
		zap.String("connection_id", conn.ID()),
		zap.String("identity", conn.Identity()),
		zap.Int("connections", count),
	)

	h.manager.Attach(h.ctx, conn)

	return nil
}

// Unregister removes the connection and detaches it from the manager. Safe to
// call more than once.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn.ID()]
	delete(h.connections, conn.ID())
	count := len(h.connections)
	h.mu.Unlock()

	conn.close()

	if !ok {
		return
	}

	h.manager.Detach(conn)

	h.logger.Info("Connection unregistered",
		zap.String("connection_id", conn.ID()),
		zap.Int("connections", count),
	)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections)
}

// Shutdown refuses new connections and closes every open one
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	h.cancel()

	h.logger.Info("Hub shut down", zap.Int("closed_connections", len(conns)))
}
