// Package requests persists pending friend-challenge game requests on behalf
// of the social graph collaborator.
package requests

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrInvalidRequest is returned for requests missing a party or a game id
var ErrInvalidRequest = errors.New("invalid game request")

// GameRequest is a pending challenge from one identity to another
type GameRequest struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	GameID    string    `json:"gameId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persisted side of the challenge flow
type Store interface {
	Save(ctx context.Context, req GameRequest) error
	Delete(ctx context.Context, to, gameID string) error
	ListFor(ctx context.Context, to string) ([]GameRequest, error)
}

func validate(req GameRequest) error {
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.GameID) == "" {
		return ErrInvalidRequest
	}

	return nil
}
