// Package session holds the per-game turn state machine and the registry
// that routes participants to their live session.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/duel-server/internal/color"
	"github.com/tecu23/duel-server/pkg/clock"
	"github.com/tecu23/duel-server/pkg/events"
	"github.com/tecu23/duel-server/pkg/messages"
	"github.com/tecu23/duel-server/pkg/rules"
)

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrNotParticipant   = errors.New("peer is not part of this session")
	ErrSessionNotActive = errors.New("session is not active")
	ErrTurnExpired      = errors.New("turn time expired")
	ErrInvalidConfig    = errors.New("invalid session config")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Kind tells how the two sides were paired
type Kind string

const (
	KindQuick     Kind = "quick"
	KindChallenge Kind = "challenge"
)

// Reasons a session ends
const (
	ReasonCheckmate  = "checkmate"
	ReasonStalemate  = "stalemate"
	ReasonDraw       = "draw"
	ReasonTimeout    = "timeout"
	ReasonDisconnect = "disconnect"
	ReasonRequest    = "request"
)

type Config struct {
	// ID is generated when empty
	ID          string
	Kind        Kind
	White       Peer
	Black       Peer
	Rules       rules.Engine
	Registry    *Registry
	Scheduler   clock.Scheduler
	TurnTimeout time.Duration
	Publisher   *events.Publisher
	Logger      *zap.Logger
}

// Session is one paired game. White always moves first; whose turn it is
// follows the parity of the accepted move count.
type Session struct {
	ID   string
	Kind Kind

	white Peer
	black Peer

	rules       rules.Engine
	registry    *Registry
	clock       *clock.TurnClock
	turnTimeout time.Duration

	mu        sync.Mutex
	status    Status
	position  rules.Position
	moveCount int
	result    *messages.GameOverPayload

	publisher *events.Publisher
	logger    *zap.Logger
}

// New builds a session. It is not routable and its clock is not running
// until Start.
func New(cfg Config) (*Session, error) {
	if cfg.White == nil || cfg.Black == nil {
		return nil, fmt.Errorf("%w: both sides are required", ErrInvalidConfig)
	}
	if cfg.White.ID() == cfg.Black.ID() {
		return nil, fmt.Errorf("%w: a peer cannot play itself", ErrInvalidConfig)
	}
	if cfg.Rules == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("%w: rules engine and registry are required", ErrInvalidConfig)
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Kind == "" {
		cfg.Kind = KindQuick
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = clock.NewReal()
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = clock.DefaultTurnTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Session{
		ID:          cfg.ID,
		Kind:        cfg.Kind,
		white:       cfg.White,
		black:       cfg.Black,
		rules:       cfg.Rules,
		registry:    cfg.Registry,
		turnTimeout: cfg.TurnTimeout,
		position:    cfg.Rules.NewPosition(),
		publisher:   cfg.Publisher,
		logger:      cfg.Logger.With(zap.String("session_id", cfg.ID)),
	}
	s.clock = clock.NewTurnClock(cfg.Scheduler, s.expire)

	return s, nil
}

// Start registers the session, sends both sides their init notice and arms
// the turn clock. It fails without side effects when the id is taken or a
// side already plays elsewhere.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != "" {
		return ErrSessionNotActive
	}

	if err := s.registry.Create(s); err != nil {
		return err
	}
	s.status = StatusActive

	s.white.Send(messages.InitGame(messages.InitGamePayload{
		Color:    color.White,
		GameID:   s.ID,
		Opponent: s.black.Identity(),
	}, true))
	s.black.Send(messages.InitGame(messages.InitGamePayload{
		Color:    color.Black,
		GameID:   s.ID,
		Opponent: s.white.Identity(),
	}, false))

	s.clock.Arm(s.turnTimeout)

	s.logger.Info("session started",
		zap.String("kind", string(s.Kind)),
		zap.String("white", s.white.ID()),
		zap.String("black", s.black.ID()),
	)

	s.publisher.Publish(events.Event{
		Type:   events.EventSessionCreated,
		GameID: s.ID,
		Payload: events.SessionCreated{
			Kind:  string(s.Kind),
			White: s.white.Identity(),
			Black: s.black.Identity(),
		},
	})

	return nil
}

// ApplyMove validates and applies a move sent by from. Rejections leave the
// session untouched and notify nobody; the returned error says why.
func (s *Session) ApplyMove(from Peer, move rules.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return ErrSessionNotActive
	}

	side, ok := s.colorOf(from)
	if !ok {
		return ErrNotParticipant
	}

	// The deadline passed but the timer callback has not run yet.
	if _, elapsed := s.clock.Elapsed(); elapsed {
		s.timeoutLocked()
		return ErrTurnExpired
	}

	if side != color.ForParity(s.moveCount) {
		return ErrNotYourTurn
	}

	res, err := s.rules.ApplyMove(s.position, move)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if !res.Accepted {
		return ErrIllegalMove
	}

	s.position = res.Position
	s.moveCount++
	s.clock.Arm(s.turnTimeout)

	s.logger.Debug("move applied",
		zap.String("color", side.String()),
		zap.String("move", move.UCI()),
		zap.Int("move_count", s.moveCount),
	)

	s.publisher.Publish(events.Event{
		Type:    events.EventMoveApplied,
		GameID:  s.ID,
		Payload: move,
	})

	if res.Terminal.Terminal() {
		winner := messages.WinnerNone
		if res.Terminal.Decisive() {
			winner = side.String()
		}
		s.completeLocked(string(res.Terminal), winner)
		return nil
	}

	next := color.ForParity(s.moveCount)
	s.white.Send(messages.Move(move, next == color.White))
	s.black.Send(messages.Move(move, next == color.Black))

	return nil
}

// ForceTimeout ends the game against the side to move
func (s *Session) ForceTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return
	}

	s.timeoutLocked()
}

// TerminateByRequest ends the session on a participant's explicit signal and
// relays its payload to both sides unchanged.
func (s *Session) TerminateByRequest(from Peer, payload messages.GameOverPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return ErrSessionNotActive
	}
	if _, ok := s.colorOf(from); !ok {
		return ErrNotParticipant
	}

	reason := payload.Reason
	if reason == "" {
		reason = ReasonRequest
	}

	s.endLocked(reason, payload.Winner)

	msg := messages.GameOver(payload)
	s.white.Send(msg)
	s.black.Send(msg)

	return nil
}

// HandleDisconnect forfeits the game for the side that left. Only the
// remaining side is notified.
func (s *Session) HandleDisconnect(p Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return
	}

	side, ok := s.colorOf(p)
	if !ok {
		return
	}

	winner := side.Opp()
	s.endLocked(ReasonDisconnect, winner.String())

	s.peerOf(winner).Send(messages.GameOver(s.payloadFor(winner, winner.String(), ReasonDisconnect)))
}

// expire is the turn clock callback
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive || !s.clock.Current(gen) {
		return
	}

	s.timeoutLocked()
}

func (s *Session) timeoutLocked() {
	loser := color.ForParity(s.moveCount)

	s.logger.Info("turn timed out", zap.String("color", loser.String()))

	s.completeLocked(ReasonTimeout, loser.Opp().String())
}

// completeLocked ends the session and sends each side its personalised notice
func (s *Session) completeLocked(reason, winner string) {
	s.endLocked(reason, winner)

	s.white.Send(messages.GameOver(s.payloadFor(color.White, winner, reason)))
	s.black.Send(messages.GameOver(s.payloadFor(color.Black, winner, reason)))
}

// endLocked transitions to completed. The session leaves the registry before
// any notice goes out.
func (s *Session) endLocked(reason, winner string) {
	s.status = StatusCompleted
	s.clock.Cancel()
	s.registry.Remove(s)
	s.result = &messages.GameOverPayload{Winner: winner, Reason: reason}

	s.logger.Info("session completed",
		zap.String("reason", reason),
		zap.String("winner", winner),
		zap.Int("move_count", s.moveCount),
	)

	s.publisher.Publish(events.Event{
		Type:   events.EventSessionCompleted,
		GameID: s.ID,
		Payload: events.SessionCompleted{
			Reason: reason,
			Winner: winner,
			Moves:  s.moveCount,
		},
	})
}

func (s *Session) payloadFor(side color.Color, winner, reason string) messages.GameOverPayload {
	msg := messages.MsgYouLose
	switch winner {
	case messages.WinnerNone:
		msg = messages.MsgDraw
	case side.String():
		msg = messages.MsgYouWin
	}

	return messages.GameOverPayload{Winner: winner, Msg: msg, Reason: reason}
}

func (s *Session) colorOf(p Peer) (color.Color, bool) {
	if p == nil {
		return "", false
	}

	switch p.ID() {
	case s.white.ID():
		return color.White, true
	case s.black.ID():
		return color.Black, true
	}

	return "", false
}

func (s *Session) peerOf(c color.Color) Peer {
	if c == color.White {
		return s.white
	}

	return s.black
}

// White returns the white side
func (s *Session) White() Peer { return s.white }

// Black returns the black side
func (s *Session) Black() Peer { return s.black }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

func (s *Session) MoveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.moveCount
}

// Turn returns the side whose move is currently legal
func (s *Session) Turn() color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()

	return color.ForParity(s.moveCount)
}

func (s *Session) Position() rules.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.position
}

// Deadline returns when the current turn expires
func (s *Session) Deadline() time.Time {
	return s.clock.Deadline()
}

// Result returns the winner and reason once completed, nil while active
func (s *Session) Result() *messages.GameOverPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil
	}
	r := *s.result

	return &r
}
