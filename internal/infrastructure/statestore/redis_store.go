package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "oauth_state:"

// RedisStateStore keeps OAuth sessions in Redis with a bounded TTL. Consume
// uses GETDEL so a state token can be redeemed at most once even with
// multiple orchestrator instances.
type RedisStateStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStateStore creates a Redis-backed OAuth state store
func NewRedisStateStore(client *redis.Client, logger zerolog.Logger) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		logger: logger,
	}
}

var _ ports.StateStore = (*RedisStateStore)(nil)

// Put stores a session under its state token. The Redis TTL matches the
// session's expiry so stale entries vanish on their own.
func (s *RedisStateStore) Put(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := s.client.Set(ctx, keyPrefix+session.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Consume atomically fetches and deletes a session. Returns nil when the
// token is unknown or already consumed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*domain.Session, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &session, nil
}
