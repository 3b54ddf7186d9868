// Package metrics turns lifecycle events into Prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tecu23/duel-server/pkg/events"
)

const namespace = "duel"

// Recorder owns its own registry so tests and multiple servers never collide
type Recorder struct {
	registry *prometheus.Registry

	activeSessions    prometheus.Gauge
	sessionsCreated   *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	moves             prometheus.Counter
	rejectedMoves     *prometheus.CounterVec
	connections       prometheus.Gauge
	gameRequests      prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently in play.",
		}),
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions started, by how the sides were paired.",
		}, []string{"kind"}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Accepted moves.",
		}),
		rejectedMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_rejected_total",
			Help:      "Rejected moves, by cause.",
		}, []string{"cause"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		gameRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_requests_total",
			Help:      "Friend challenges sent.",
		}),
	}

	r.registry.MustRegister(
		r.activeSessions,
		r.sessionsCreated,
		r.sessionsCompleted,
		r.moves,
		r.rejectedMoves,
		r.connections,
		r.gameRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Subscribe wires the recorder to the publisher
func (r *Recorder) Subscribe(p *events.Publisher) {
	p.SubscribeAll(r.Observe)
}

// Observe updates the collectors for one event
func (r *Recorder) Observe(event events.Event) {
	switch event.Type {
	case events.EventConnectionOpened:
		r.connections.Inc()
	case events.EventConnectionClosed:
		r.connections.Dec()
	case events.EventSessionCreated:
		r.activeSessions.Inc()
		if p, ok := event.Payload.(events.SessionCreated); ok {
			r.sessionsCreated.WithLabelValues(p.Kind).Inc()
		}
	case events.EventSessionCompleted:
		r.activeSessions.Dec()
		if p, ok := event.Payload.(events.SessionCompleted); ok {
			r.sessionsCompleted.WithLabelValues(p.Reason).Inc()
		}
	case events.EventMoveApplied:
		r.moves.Inc()
	case events.EventMoveRejected:
		if p, ok := event.Payload.(events.MoveRejected); ok {
			r.rejectedMoves.WithLabelValues(p.Cause).Inc()
		}
	case events.EventGameRequestSent:
		r.gameRequests.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
