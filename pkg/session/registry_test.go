package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/duel-server/pkg/rules"
	"github.com/tecu23/duel-server/pkg/session/sessiontest"
)

func newTestSession(t *testing.T, reg *Registry, id, white, black string) *Session {
	t.Helper()

	s, err := New(Config{
		ID:       id,
		White:    sessiontest.NewPeer(white, ""),
		Black:    sessiontest.NewPeer(black, ""),
		Rules:    rules.NewChess(),
		Registry: reg,
	})
	require.NoError(t, err)

	return s
}

func TestRegistry_CreateIndexesBothPeers(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession(t, reg, "g1", "a", "b")

	require.NoError(t, reg.Create(s))

	for _, peer := range []string{"a", "b"} {
		found, ok := reg.FindByPeer(peer)
		require.True(t, ok)
		assert.Same(t, s, found)
		assert.True(t, reg.Busy(peer))
	}

	found, ok := reg.FindByID("g1")
	require.True(t, ok)
	assert.Same(t, s, found)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.FindByPeer("c")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicateIDAndBusyPeer(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Create(newTestSession(t, reg, "g1", "a", "b")))

	err := reg.Create(newTestSession(t, reg, "g1", "c", "d"))
	require.ErrorIs(t, err, ErrDuplicateSession)
	assert.False(t, reg.Busy("c"))

	err = reg.Create(newTestSession(t, reg, "g2", "c", "b"))
	require.ErrorIs(t, err, ErrPeerBusy)
	assert.False(t, reg.Busy("c"))

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession(t, reg, "g1", "a", "b")
	require.NoError(t, reg.Create(s))

	reg.Remove(s)
	reg.Remove(s)

	assert.Zero(t, reg.Len())
	assert.False(t, reg.Busy("a"))
	assert.False(t, reg.Busy("b"))
}

func TestRegistry_RemoveLeavesReusedIDAlone(t *testing.T) {
	reg := NewRegistry()
	first := newTestSession(t, reg, "g1", "a", "b")
	require.NoError(t, reg.Create(first))
	reg.Remove(first)

	second := newTestSession(t, reg, "g1", "c", "d")
	require.NoError(t, reg.Create(second))

	reg.Remove(first)

	found, ok := reg.FindByID("g1")
	require.True(t, ok)
	assert.Same(t, second, found)
	assert.True(t, reg.Busy("c"))
}

func TestRegistry_ConcurrentCreateWithSameIDHasOneWinner(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		s := newTestSession(t, reg, "shared", fmt.Sprintf("w%d", i), fmt.Sprintf("b%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.Create(s)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateSession)
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, reg.Len())
	assert.Len(t, reg.List(), 1)
}
