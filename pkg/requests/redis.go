package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long an unanswered request survives
const DefaultTTL = 24 * time.Hour

// RedisStore keeps one hash per recipient, field = game id, value = JSON request
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func recipientKey(to string) string {
	return "duel:requests:" + to
}

// Save stores the request and refreshes the recipient's TTL atomically
func (s *RedisStore) Save(ctx context.Context, req GameRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	key := recipientKey(req.To)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, req.GameID, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save game request: %w", err)
	}

	s.logger.Debug("game request saved",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("game_id", req.GameID),
	)

	return nil
}

// Delete removes a request; deleting an unknown request is not an error
func (s *RedisStore) Delete(ctx context.Context, to, gameID string) error {
	if err := s.client.HDel(ctx, recipientKey(to), gameID).Err(); err != nil {
		return fmt.Errorf("delete game request: %w", err)
	}

	return nil
}

// ListFor returns the requests addressed to an identity, oldest first.
// Entries that fail to decode are skipped.
func (s *RedisStore) ListFor(ctx context.Context, to string) ([]GameRequest, error) {
	raw, err := s.client.HGetAll(ctx, recipientKey(to)).Result()
	if err != nil {
		return nil, fmt.Errorf("list game requests: %w", err)
	}

	list := make([]GameRequest, 0, len(raw))
	for field, value := range raw {
		var req GameRequest
		if err := json.Unmarshal([]byte(value), &req); err != nil {
			s.logger.Warn("skipping undecodable game request",
				zap.String("to", to),
				zap.String("game_id", field),
				zap.Error(err),
			)
			continue
		}
		list = append(list, req)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	return list, nil
}
