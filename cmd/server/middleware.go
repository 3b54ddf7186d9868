package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// logRequests leaves the ResponseWriter untouched so websocket upgrades can hijack it
func (app *application) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		app.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (app *application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if app.Config.FrontendOrigin == "" || origin == "" {
		return true
	}

	return origin == app.Config.FrontendOrigin
}
