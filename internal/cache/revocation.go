package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedSessionPrefix is the key prefix for revoked session markers
const RevokedSessionPrefix = "revoked:session:"

// SessionRevocationCache records revoked session IDs so that outstanding
// access tokens minted against those sessions can be rejected before their
// natural expiry. Entries carry a TTL equal to the remaining session
// lifetime; after that the access tokens are expired anyway.
type SessionRevocationCache struct {
	client *redis.Client
}

// NewSessionRevocationCache creates a cache backed by the provided Redis client.
func NewSessionRevocationCache(client *redis.Client) *SessionRevocationCache {
	return &SessionRevocationCache{client: client}
}

// MarkRevoked records a session ID as revoked for the given TTL.
func (c *SessionRevocationCache) MarkRevoked(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	key := RevokedSessionPrefix + sessionID
	if err := c.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark session revoked: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session ID has been marked revoked.
func (c *SessionRevocationCache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	key := RevokedSessionPrefix + sessionID
	_, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
