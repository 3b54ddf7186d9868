package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (app *application) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(app.logRequests)

	r.HandleFunc("/health", app.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", app.Auth.Middleware(app.Logger)(app.Metrics.Handler())).Methods(http.MethodGet)
	r.HandleFunc("/ws", app.handleWebSocket).Methods(http.MethodGet)

	return r
}
