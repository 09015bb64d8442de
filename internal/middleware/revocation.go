package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenRevoker stores revoked token ids in Redis with a TTL matching
// the token lifetime, so entries expire on their own once the token would
// be invalid anyway.
type RedisTokenRevoker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenRevoker creates a revocation store backed by the given client.
func NewRedisTokenRevoker(client *redis.Client, ttl time.Duration) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client, ttl: ttl}
}

func revocationKey(jti string) string {
	return fmt.Sprintf("revoked_token:%s", jti)
}

// Revoke marks a token id as revoked until its natural expiry.
func (r *RedisTokenRevoker) Revoke(ctx context.Context, jti string) error {
	return r.client.Set(ctx, revocationKey(jti), "1", r.ttl).Err()
}

// IsRevoked reports whether the token id has been revoked.
func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
