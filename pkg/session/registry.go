package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateSession = errors.New("session id already in use")
	ErrPeerBusy         = errors.New("peer already in a session")
)

// Registry indexes live sessions by id and by participant peer id
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Session
	byPeer map[string]string // peer id -> session id
}

// NewRegistry creates a new registry with in-memory storage
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Session),
		byPeer: make(map[string]string),
	}
}

// Create inserts s under its id and both peer ids. The checks and the insert
// happen under one lock so concurrent creations cannot both succeed.
func (r *Registry) Create(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID)
	}

	for _, p := range []Peer{s.white, s.black} {
		if id, busy := r.byPeer[p.ID()]; busy {
			return fmt.Errorf("%w: %s plays in %s", ErrPeerBusy, p.ID(), id)
		}
	}

	r.byID[s.ID] = s
	r.byPeer[s.white.ID()] = s.ID
	r.byPeer[s.black.ID()] = s.ID

	return nil
}

// FindByPeer returns the session the peer plays in
func (r *Registry) FindByPeer(peerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPeer[peerID]
	if !ok {
		return nil, false
	}

	s, ok := r.byID[id]
	return s, ok
}

// FindByID returns a session by id
func (r *Registry) FindByID(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	return s, ok
}

// Busy reports whether the peer already plays in a session
func (r *Registry) Busy(peerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byPeer[peerID]
	return ok
}

// Remove deletes s and its peer entries. Removing an absent session, or one
// whose id now belongs to another session, is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.byID[s.ID]; !ok || cur != s {
		return
	}

	delete(r.byID, s.ID)
	for _, p := range []Peer{s.white, s.black} {
		if r.byPeer[p.ID()] == s.ID {
			delete(r.byPeer, p.ID())
		}
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// List returns a snapshot of the live sessions
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		list = append(list, s)
	}

	return list
}
