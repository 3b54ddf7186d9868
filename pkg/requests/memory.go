package requests

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	byRecipient map[string]map[string]GameRequest
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		byRecipient: make(map[string]map[string]GameRequest),
		logger:      logger,
	}
}

// Save stores a request, replacing one with the same recipient and game id
func (s *MemoryStore) Save(_ context.Context, req GameRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.byRecipient[req.To]
	if !ok {
		pending = make(map[string]GameRequest)
		s.byRecipient[req.To] = pending
	}
	pending[req.GameID] = req

	s.logger.Debug("game request saved",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("game_id", req.GameID),
	)

	return nil
}

// Delete removes a request; deleting an unknown request is not an error
func (s *MemoryStore) Delete(_ context.Context, to, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.byRecipient[to]
	if !ok {
		return nil
	}

	delete(pending, gameID)
	if len(pending) == 0 {
		delete(s.byRecipient, to)
	}

	return nil
}

// ListFor returns the requests addressed to an identity, oldest first
func (s *MemoryStore) ListFor(_ context.Context, to string) ([]GameRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []GameRequest
	for _, req := range s.byRecipient[to] {
		list = append(list, req)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	return list, nil
}
