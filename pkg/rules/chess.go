package rules

import (
	"fmt"

	"github.com/corentings/chess/v2"

	"github.com/tecu23/duel-server/internal/color"
)

// Chess is an Engine backed by corentings/chess
type Chess struct{}

// NewChess creates a chess rules engine
func NewChess() *Chess {
	return &Chess{}
}

type chessPosition struct {
	game *chess.Game
}

func (p *chessPosition) Turn() color.Color {
	if p.game.Position().Turn() == chess.White {
		return color.White
	}

	return color.Black
}

func (p *chessPosition) FEN() string {
	return p.game.FEN()
}

// NewPosition returns the standard starting position
func (c *Chess) NewPosition() Position {
	return &chessPosition{game: chess.NewGame()}
}

// ApplyMove validates the move against pos and returns the resulting position.
func (c *Chess) ApplyMove(pos Position, move Move) (Result, error) {
	cur, ok := pos.(*chessPosition)
	if !ok || cur == nil {
		return Result{}, ErrForeignPosition
	}

	uci := move.UCI()
	if len(uci) < 4 {
		return Result{}, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}

	if cur.game.Outcome() != chess.NoOutcome {
		return Result{}, fmt.Errorf("%w: game already finished", ErrIllegalMove)
	}

	next := cur.game.Clone()
	mv, err := chess.UCINotation{}.Decode(next.Position(), uci)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q: %v", ErrIllegalMove, uci, err)
	}
	if err := next.Move(mv, nil); err != nil {
		return Result{}, fmt.Errorf("%w: %q: %v", ErrIllegalMove, uci, err)
	}

	np := &chessPosition{game: next}
	return Result{
		Accepted: true,
		Position: np,
		Terminal: outcomeOf(next),
		NextTurn: np.Turn(),
	}, nil
}

// IsTerminal classifies pos
func (c *Chess) IsTerminal(pos Position) Outcome {
	cur, ok := pos.(*chessPosition)
	if !ok || cur == nil {
		return OutcomeNone
	}

	return outcomeOf(cur.game)
}

func outcomeOf(g *chess.Game) Outcome {
	switch g.Outcome() {
	case chess.NoOutcome:
		return OutcomeNone
	case chess.Draw:
		if g.Method() == chess.Stalemate {
			return OutcomeStalemate
		}
		return OutcomeDraw
	default:
		return OutcomeCheckmate
	}
}
