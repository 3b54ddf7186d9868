package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpp(t *testing.T) {
	assert.Equal(t, Black, White.Opp())
	assert.Equal(t, White, Black.Opp())
}

func TestForParity(t *testing.T) {
	assert.Equal(t, White, ForParity(0))
	assert.Equal(t, Black, ForParity(1))
	assert.Equal(t, White, ForParity(42))
}
