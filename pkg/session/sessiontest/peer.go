// Package sessiontest provides a recording peer for session and manager tests
package sessiontest

import (
	"sync"

	"github.com/tecu23/duel-server/pkg/messages"
)

// Peer records every message sent to it
type Peer struct {
	id       string
	identity string

	mu   sync.Mutex
	msgs []messages.OutboundMessage
}

// NewPeer creates a recording peer
func NewPeer(id, identity string) *Peer {
	return &Peer{id: id, identity: identity}
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) Identity() string { return p.identity }

func (p *Peer) Send(msg messages.OutboundMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = append(p.msgs, msg)
}

// Messages returns a copy of everything received so far
func (p *Peer) Messages() []messages.OutboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]messages.OutboundMessage(nil), p.msgs...)
}

// OfType returns the received messages of one type
func (p *Peer) OfType(t string) []messages.OutboundMessage {
	var out []messages.OutboundMessage
	for _, m := range p.Messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}

	return out
}

// Last returns the most recent message
func (p *Peer) Last() (messages.OutboundMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.msgs) == 0 {
		return messages.OutboundMessage{}, false
	}

	return p.msgs[len(p.msgs)-1], true
}

// Reset forgets everything received so far
func (p *Peer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = nil
}
