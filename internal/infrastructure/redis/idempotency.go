package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedResponse is a stored response for an idempotency key.
type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// IdempotencyStore caches responses keyed by the Idempotency-Key header so
// retried requests replay the original outcome instead of charging twice.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string {
	return fmt.Sprintf("idempotency:%s", k)
}

// Get returns the cached response for the key, or (nil, nil) on a miss.
func (s *IdempotencyStore) Get(ctx context.Context, idempotencyKey string) (*CachedResponse, error) {
	data, err := s.client.Get(ctx, s.key(idempotencyKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached response: %w", err)
	}
	return &resp, nil
}

// Set stores the response under the key for the configured TTL.
func (s *IdempotencyStore) Set(ctx context.Context, idempotencyKey string, resp *CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}

	if err := s.client.Set(ctx, s.key(idempotencyKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
