// Package events is the in-process publisher for connection and session lifecycle events
package events

import "sync"

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventConnectionOpened EventType = "CONNECTION_OPENED"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
	EventSessionCreated   EventType = "SESSION_CREATED"
	EventMoveApplied      EventType = "MOVE_APPLIED"
	EventMoveRejected     EventType = "MOVE_REJECTED"
	EventSessionCompleted EventType = "SESSION_COMPLETED"
	EventGameRequestSent  EventType = "GAME_REQUEST_SENT"

	allEvents EventType = "*"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	GameID  string // Optional, can be empty for non-game events
	Payload interface{}
}

// SessionCreated is the payload of EventSessionCreated
type SessionCreated struct {
	Kind  string // "quick" or "challenge"
	White string
	Black string
}

// SessionCompleted is the payload of EventSessionCompleted
type SessionCompleted struct {
	Reason string
	Winner string
	Moves  int
}

// MoveRejected is the payload of EventMoveRejected
type MoveRejected struct {
	Cause string
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.Subscribe(allEvents, handler)
}

// Publish broadcasts an event to all subscribers including "all events" handlers.
// Handlers run concurrently and never block the publisher. A nil Publisher
// drops every event.
func (p *Publisher) Publish(event Event) {
	if p == nil {
		return
	}

	p.mu.RLock()
	handlers := p.subscribers[event.Type]
	allHandlers := p.subscribers[allEvents]
	p.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}

	for _, handler := range allHandlers {
		go handler(event)
	}
}
