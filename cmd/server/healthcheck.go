package main

import (
	"encoding/json"
	"net/http"
	"time"
)

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Sessions    int    `json:"sessions"`
	Connections int    `json:"connections"`
	Waiting     bool   `json:"waiting"`
}

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, waiting := app.Manager.Queue().Waiting()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Uptime:      time.Since(app.StartTime).Round(time.Second).String(),
		Sessions:    app.Manager.Sessions().Len(),
		Connections: app.Hub.Len(),
		Waiting:     waiting,
	})
}
