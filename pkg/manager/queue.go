package manager

import (
	"sync"

	"github.com/tecu23/duel-server/pkg/session"
)

// Queue is the single waiting slot of quick matchmaking
type Queue struct {
	mu      sync.Mutex
	waiting session.Peer
}

func NewQueue() *Queue {
	return &Queue{}
}

// RequestMatch parks p when the slot is empty. When someone is already
// waiting the slot is cleared and that peer is returned as the opponent.
// A peer that is already waiting stays parked.
func (q *Queue) RequestMatch(p session.Peer) (opponent session.Peer, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting == nil || q.waiting.ID() == p.ID() {
		q.waiting = p
		return nil, false
	}

	opponent = q.waiting
	q.waiting = nil

	return opponent, true
}

// RemoveIfWaiting clears the slot if p holds it
func (q *Queue) RemoveIfWaiting(p session.Peer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting == nil || q.waiting.ID() != p.ID() {
		return false
	}

	q.waiting = nil
	return true
}

// Waiting returns the parked peer, if any
func (q *Queue) Waiting() (session.Peer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.waiting, q.waiting != nil
}
