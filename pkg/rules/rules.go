// Package rules defines the contract of the rules engine oracle that decides
// move legality and terminal positions. The session layer never looks at
// board internals beyond what this package reports.
package rules

import (
	"errors"
	"strings"

	"github.com/tecu23/duel-server/internal/color"
)

var (
	// ErrIllegalMove is returned when the engine rejects a move
	ErrIllegalMove = errors.New("illegal move")
	// ErrForeignPosition is returned when a position handle was not produced by the engine
	ErrForeignPosition = errors.New("position not owned by this engine")
)

// Move is a single candidate move in coordinate form
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the move in long algebraic form, e.g. e7e8q.
func (m Move) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

// Outcome classifies a position
type Outcome string

// Possible outcomes reported by an engine
const (
	OutcomeNone      Outcome = "none"
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeStalemate Outcome = "stalemate"
	OutcomeDraw      Outcome = "draw"
)

// Terminal reports whether the game is over
func (o Outcome) Terminal() bool {
	return o != OutcomeNone && o != ""
}

// Decisive reports whether the outcome has a winner
func (o Outcome) Decisive() bool {
	return o == OutcomeCheckmate
}

// Position is an opaque handle into the engine's game state
type Position interface {
	Turn() color.Color
	FEN() string
}

// Result is what the engine reports for a candidate move
type Result struct {
	Accepted bool
	Position Position
	Terminal Outcome
	NextTurn color.Color
}

// Engine is the rules oracle consumed by sessions
type Engine interface {
	NewPosition() Position
	// ApplyMove never mutates pos; on acceptance the new state is in Result.Position.
	ApplyMove(pos Position, move Move) (Result, error)
	IsTerminal(pos Position) Outcome
}
