package session

import "github.com/tecu23/duel-server/pkg/messages"

// Peer is the send-only handle of one attached participant.
// Send must never block; delivery is best effort.
type Peer interface {
	ID() string
	Identity() string
	Send(msg messages.OutboundMessage)
}
