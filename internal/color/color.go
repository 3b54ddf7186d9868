// Package color provides the side labels used by a two player session
package color

// Color represent the side a participant plays
type Color string

// Possible sides in a session. White always moves first.
const (
	White Color = "white"
	Black Color = "black"
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == White {
		return Black
	}

	return White
}

// ForParity returns the side to move after the given number of accepted moves.
func ForParity(moveCount int) Color {
	if moveCount%2 == 0 {
		return White
	}

	return Black
}

func (c Color) String() string {
	return string(c)
}
