package main

import (
	"net/http"

	"go.uber.org/zap"
)

// handleWebSocket handles WebSocket connections
func (app *application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := app.Identity.Resolve(r)
	if err != nil {
		app.Logger.Warn("Rejected websocket identity",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	// Upgrade HTTP connection to WebSocket
	ws, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.Logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	app.Logger.Info("WebSocket connection established",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("identity", identity))

	app.Hub.Serve(ws, identity)
}
