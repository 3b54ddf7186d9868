package main

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

	"github.com/tecu23/duel-server/pkg/config"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*application, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.APIKeys = []string{"ops-key"}
	cfg.JWTSecret = "s3cret"
	if mutate != nil {
		mutate(cfg)
	}

	app, err := newApplication(cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(app.routes())
	t.Cleanup(func() {
		app.Shutdown()
		srv.Close()
	})

	return app, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func TestHealth(t *testing.T) {
	_, srv := newTestApp(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Zero(t, body.Sessions)
	assert.Zero(t, body.Connections)
}

func TestMetricsRequiresAPIKey(t *testing.T) {
	_, srv := newTestApp(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "ops-key")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	_, srv := newTestApp(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=forged"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, srv := newTestApp(t, func(cfg *config.Config) {
		cfg.FrontendOrigin = "https://play.example.com"
	})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketTokenIdentity(t *testing.T) {
	app, srv := newTestApp(t, nil)

	token, err := app.Identity.Issue("alice@example.com", time.Hour, time.Now())
	require.NoError(t, err)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token="+token), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool {
		_, ok := app.Manager.Connections().FindByIdentity("alice@example.com")
		return ok
	}, time.Second, 10*time.Millisecond)
}
