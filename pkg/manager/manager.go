// Package manager routes inbound frames to matchmaking, the friend-challenge
// flow and live sessions.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/duel-server/pkg/clock"
	"github.com/tecu23/duel-server/pkg/events"
	"github.com/tecu23/duel-server/pkg/messages"
	"github.com/tecu23/duel-server/pkg/requests"
	"github.com/tecu23/duel-server/pkg/rules"
	"github.com/tecu23/duel-server/pkg/session"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessage     = errors.New("unknown message type")
	ErrCounterpartOffline = errors.New("counterpart is not connected")
	ErrAlreadyPlaying     = errors.New("peer already plays in a session")
	ErrNoSession          = errors.New("peer has no active session")
	ErrForeignRequest     = errors.New("only the recipient can accept a game request")
	ErrNoSuchRequest      = errors.New("no pending game request")

	errOpponentTaken = errors.New("waiting opponent was paired elsewhere")
)

const storeTimeout = 3 * time.Second

// Option configures a Manager
type Option func(*Manager)

// WithRules sets the rules engine sessions are created with
func WithRules(engine rules.Engine) Option {
	return func(m *Manager) { m.rules = engine }
}

func WithScheduler(s clock.Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

func WithStore(s requests.Store) Option {
	return func(m *Manager) { m.store = s }
}

func WithTurnTimeout(d time.Duration) Option {
	return func(m *Manager) { m.turnTimeout = d }
}

// WithRejectionReports makes rejected moves answer the sender with an error frame
func WithRejectionReports(enabled bool) Option {
	return func(m *Manager) { m.reportRejections = enabled }
}

type Manager struct {
	connections *Connections
	queue       *Queue
	sessions    *session.Registry

	rules            rules.Engine
	scheduler        clock.Scheduler
	store            requests.Store
	turnTimeout      time.Duration
	reportRejections bool

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewManager creates a manager with an in-memory request store and the chess
// rules engine unless options say otherwise
func NewManager(logger *zap.Logger, publisher *events.Publisher, opts ...Option) *Manager {
	m := &Manager{
		connections: NewConnections(),
		queue:       NewQueue(),
		sessions:    session.NewRegistry(),
		turnTimeout: clock.DefaultTurnTimeout,
		publisher:   publisher,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.rules == nil {
		m.rules = rules.NewChess()
	}
	if m.scheduler == nil {
		m.scheduler = clock.NewReal()
	}
	if m.store == nil {
		m.store = requests.NewMemoryStore(logger)
	}

	return m
}

// Attach registers a freshly opened connection and replays the game requests
// still pending for its identity
func (m *Manager) Attach(ctx context.Context, p session.Peer) {
	if evicted := m.connections.Attach(p); evicted != nil {
		cleared := m.queue.RemoveIfWaiting(evicted)
		m.logger.Info("identity moved to a newer connection",
			zap.String("identity", p.Identity()),
			zap.String("evicted", evicted.ID()),
			zap.String("connection_id", p.ID()),
			zap.Bool("cleared_waiting_slot", cleared),
		)
	}

	m.publisher.Publish(events.Event{
		Type:    events.EventConnectionOpened,
		Payload: map[string]string{"connection_id": p.ID(), "identity": p.Identity()},
	})

	if p.Identity() == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	pending, err := m.store.ListFor(ctx, p.Identity())
	if err != nil {
		m.logger.Error("failed to load pending game requests",
			zap.String("identity", p.Identity()),
			zap.Error(err),
		)
		return
	}

	for _, req := range pending {
		p.Send(messages.GameRequest(messages.GameRequestPayload{
			From:   req.From,
			To:     req.To,
			GameID: req.GameID,
		}))
	}
}

// Detach cleans up after a closed connection. A live session is forfeited by
// the side that left.
func (m *Manager) Detach(p session.Peer) {
	m.connections.Detach(p)
	m.queue.RemoveIfWaiting(p)

	if s, ok := m.sessions.FindByPeer(p.ID()); ok {
		s.HandleDisconnect(p)
	}

	m.publisher.Publish(events.Event{
		Type:    events.EventConnectionClosed,
		Payload: map[string]string{"connection_id": p.ID(), "identity": p.Identity()},
	})
}

// HandleMessage decodes one raw frame from p and routes it
func (m *Manager) HandleMessage(ctx context.Context, p session.Peer, data []byte) error {
	var msg messages.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case messages.TypeInitGame:
		return m.handleInitGame(p)
	case messages.TypeMove:
		return m.handleMove(p, msg.Payload)
	case messages.TypeGameOver:
		return m.handleGameOver(p, msg.Payload)
	case messages.TypeSendGameRequest:
		return m.handleSendGameRequest(ctx, p, msg.Payload)
	case messages.TypeAcceptGameRequest:
		return m.handleAcceptGameRequest(ctx, p, msg.Payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (m *Manager) handleInitGame(p session.Peer) error {
	if m.sessions.Busy(p.ID()) {
		return ErrAlreadyPlaying
	}

	for {
		opponent, paired := m.queue.RequestMatch(p)
		if !paired {
			m.logger.Debug("waiting for an opponent", zap.String("connection_id", p.ID()))
			return nil
		}

		// The waiting peer left or got paired elsewhere after parking.
		if !m.connections.Attached(opponent.ID()) || m.sessions.Busy(opponent.ID()) {
			continue
		}

		err := m.startQuick(opponent, p)
		if errors.Is(err, errOpponentTaken) {
			continue
		}
		return err
	}
}

// startQuick starts a quick match between the peer that was waiting and the
// peer that just asked. When a concurrent challenge claimed either side first,
// the waiting peer never loses its place in the queue.
func (m *Manager) startQuick(waiting, p session.Peer) error {
	_, err := m.startSession(waiting, p, session.KindQuick, "")
	if err == nil || !errors.Is(err, session.ErrPeerBusy) {
		return err
	}

	if m.sessions.Busy(waiting.ID()) {
		return errOpponentTaken
	}

	m.logger.Debug("returning opponent to the waiting slot", zap.String("connection_id", waiting.ID()))
	if rerr := m.handleInitGame(waiting); rerr != nil {
		m.logger.Warn("failed to re-park waiting peer",
			zap.String("connection_id", waiting.ID()),
			zap.Error(rerr),
		)
	}

	if m.sessions.Busy(p.ID()) {
		return ErrAlreadyPlaying
	}

	return errOpponentTaken
}

func (m *Manager) handleMove(p session.Peer, payload json.RawMessage) error {
	var mp messages.MovePayload
	if err := json.Unmarshal(payload, &mp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	s, ok := m.sessions.FindByPeer(p.ID())
	if !ok {
		return ErrNoSession
	}

	move := mp.Normalize()
	if err := s.ApplyMove(p, move); err != nil {
		m.rejectMove(p, s, move, err)
		return err
	}

	return nil
}

func (m *Manager) rejectMove(p session.Peer, s *session.Session, move rules.Move, err error) {
	cause := rejectionCause(err)

	m.logger.Debug("move rejected",
		zap.String("session_id", s.ID),
		zap.String("connection_id", p.ID()),
		zap.String("move", move.UCI()),
		zap.String("cause", cause),
	)

	m.publisher.Publish(events.Event{
		Type:    events.EventMoveRejected,
		GameID:  s.ID,
		Payload: events.MoveRejected{Cause: cause},
	})

	// A late move already produced a game_over.
	if m.reportRejections && !errors.Is(err, session.ErrTurnExpired) {
		p.Send(messages.Error(err.Error()))
	}
}

func rejectionCause(err error) string {
	switch {
	case errors.Is(err, session.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, session.ErrIllegalMove):
		return "illegal_move"
	case errors.Is(err, session.ErrTurnExpired):
		return "turn_expired"
	case errors.Is(err, session.ErrSessionNotActive):
		return "session_not_active"
	default:
		return "other"
	}
}

func (m *Manager) handleGameOver(p session.Peer, payload json.RawMessage) error {
	var gp messages.GameOverPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &gp); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	}

	s, ok := m.sessions.FindByPeer(p.ID())
	if !ok {
		return ErrNoSession
	}

	return s.TerminateByRequest(p, gp)
}

func (m *Manager) handleSendGameRequest(ctx context.Context, p session.Peer, payload json.RawMessage) error {
	req, err := decodeGameRequest(payload)
	if err != nil {
		return err
	}

	// An authenticated sender cannot speak for someone else.
	if p.Identity() != "" {
		req.From = p.Identity()
	}
	if req.From == "" {
		return fmt.Errorf("%w: sender is unknown", ErrMalformedMessage)
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := m.store.Save(sctx, requests.GameRequest{
		From:      req.From,
		To:        req.To,
		GameID:    req.GameID,
		CreatedAt: m.scheduler.Now(),
	}); err != nil {
		m.logger.Error("failed to persist game request",
			zap.String("from", req.From),
			zap.String("to", req.To),
			zap.Error(err),
		)
	}

	recipient, online := m.connections.FindByIdentity(req.To)
	if online {
		recipient.Send(messages.GameRequest(req))
	}

	m.logger.Info("game request sent",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("game_id", req.GameID),
		zap.Bool("delivered", online),
	)

	m.publisher.Publish(events.Event{
		Type:    events.EventGameRequestSent,
		GameID:  req.GameID,
		Payload: req,
	})

	return nil
}

// handleAcceptGameRequest pairs the two parties of a pending challenge under
// its game id. Only the recipient (to) may accept, and it plays white.
func (m *Manager) handleAcceptGameRequest(ctx context.Context, p session.Peer, payload json.RawMessage) error {
	req, err := decodeGameRequest(payload)
	if err != nil {
		return err
	}
	if req.From == "" {
		return fmt.Errorf("%w: from is required", ErrMalformedMessage)
	}

	to, ok := m.connections.FindByIdentity(req.To)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCounterpartOffline, req.To)
	}
	if p.ID() != to.ID() {
		return ErrForeignRequest
	}
	from, ok := m.connections.FindByIdentity(req.From)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCounterpartOffline, req.From)
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := m.pendingRequest(sctx, req); err != nil {
		return err
	}

	if _, err := m.startSession(to, from, session.KindChallenge, req.GameID); err != nil {
		return err
	}

	m.queue.RemoveIfWaiting(to)
	m.queue.RemoveIfWaiting(from)

	if err := m.store.Delete(sctx, req.To, req.GameID); err != nil {
		m.logger.Error("failed to delete accepted game request",
			zap.String("to", req.To),
			zap.String("game_id", req.GameID),
			zap.Error(err),
		)
	}

	return nil
}

// pendingRequest checks that from really challenged to under this game id
func (m *Manager) pendingRequest(ctx context.Context, req messages.GameRequestPayload) error {
	pending, err := m.store.ListFor(ctx, req.To)
	if err != nil {
		return fmt.Errorf("load game requests for %s: %w", req.To, err)
	}

	for _, r := range pending {
		if r.From == req.From && r.GameID == req.GameID {
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrNoSuchRequest, req.GameID, req.From)
}

func decodeGameRequest(payload json.RawMessage) (messages.GameRequestPayload, error) {
	var req messages.GameRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	req.GameID = strings.TrimSpace(req.GameID)

	if req.To == "" || req.GameID == "" {
		return req, fmt.Errorf("%w: to and gameId are required", ErrMalformedMessage)
	}

	return req, nil
}

func (m *Manager) startSession(white, black session.Peer, kind session.Kind, id string) (*session.Session, error) {
	s, err := session.New(session.Config{
		ID:          id,
		Kind:        kind,
		White:       white,
		Black:       black,
		Rules:       m.rules,
		Registry:    m.sessions,
		Scheduler:   m.scheduler,
		TurnTimeout: m.turnTimeout,
		Publisher:   m.publisher,
		Logger:      m.logger,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Start(); err != nil {
		return nil, err
	}

	// A side that closed while the session was being built missed Detach's
	// session lookup; forfeit for it now.
	for _, side := range []session.Peer{white, black} {
		if !m.connections.Attached(side.ID()) {
			s.HandleDisconnect(side)
		}
	}

	return s, nil
}

// Sessions exposes the session registry for health and metrics reporting
func (m *Manager) Sessions() *session.Registry {
	return m.sessions
}

func (m *Manager) Connections() *Connections {
	return m.connections
}

func (m *Manager) Queue() *Queue {
	return m.queue
}
