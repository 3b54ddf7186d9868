package manager

import (
	"sync"

	"github.com/tecu23/duel-server/pkg/session"
)

// Connections tracks live peers by connection id and by authenticated identity
type Connections struct {
	mu         sync.RWMutex
	byID       map[string]session.Peer
	byIdentity map[string]session.Peer
}

// NewConnections creates an empty connection registry
func NewConnections() *Connections {
	return &Connections{
		byID:       make(map[string]session.Peer),
		byIdentity: make(map[string]session.Peer),
	}
}

// Attach registers p. When another peer already holds p's identity it loses
// the identity entry and is returned so the caller can clean up after it.
func (c *Connections) Attach(p session.Peer) (evicted session.Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID[p.ID()] = p

	identity := p.Identity()
	if identity == "" {
		return nil
	}

	if prev, ok := c.byIdentity[identity]; ok && prev.ID() != p.ID() {
		evicted = prev
	}
	c.byIdentity[identity] = p

	return evicted
}

// Detach removes p. The identity entry is only dropped while it still points at p.
func (c *Connections) Detach(p session.Peer) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.byID, p.ID())

	identity := p.Identity()
	if cur, ok := c.byIdentity[identity]; ok && cur.ID() == p.ID() {
		delete(c.byIdentity, identity)
	}

	return identity
}

// FindByIdentity returns the most recently attached peer for identity
func (c *Connections) FindByIdentity(identity string) (session.Peer, bool) {
	if identity == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byIdentity[identity]
	return p, ok
}

// Attached reports whether the connection is still registered
func (c *Connections) Attached(peerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.byID[peerID]
	return ok
}

func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byID)
}
