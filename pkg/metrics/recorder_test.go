package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/duel-server/pkg/events"
)

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()

	r.Observe(events.Event{Type: events.EventConnectionOpened})
	r.Observe(events.Event{Type: events.EventConnectionOpened})
	r.Observe(events.Event{Type: events.EventConnectionClosed})

	r.Observe(events.Event{Type: events.EventSessionCreated, Payload: events.SessionCreated{Kind: "quick"}})
	r.Observe(events.Event{Type: events.EventSessionCreated, Payload: events.SessionCreated{Kind: "challenge"}})
	r.Observe(events.Event{Type: events.EventMoveApplied})
	r.Observe(events.Event{Type: events.EventMoveApplied})
	r.Observe(events.Event{Type: events.EventMoveRejected, Payload: events.MoveRejected{Cause: "not_your_turn"}})
	r.Observe(events.Event{Type: events.EventSessionCompleted, Payload: events.SessionCompleted{Reason: "checkmate"}})
	r.Observe(events.Event{Type: events.EventGameRequestSent})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsCreated.WithLabelValues("quick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsCreated.WithLabelValues("challenge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsCompleted.WithLabelValues("checkmate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.moves))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejectedMoves.WithLabelValues("not_your_turn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.gameRequests))
}

func TestRecorder_SubscribeReceivesPublishedEvents(t *testing.T) {
	r := NewRecorder()
	p := events.NewPublisher()
	r.Subscribe(p)

	p.Publish(events.Event{Type: events.EventMoveApplied})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(r.moves) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Observe(events.Event{Type: events.EventMoveApplied})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duel_moves_total 1")
}
