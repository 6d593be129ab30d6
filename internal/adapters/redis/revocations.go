package redisad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "auth:revoked:"

// Revocations is the token deny-list shared with the identity service.
type Revocations struct{ c *redis.Client }

func New(addr, pass string, db int) *Revocations {
	return &Revocations{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewWithClient wraps an existing client.
func NewWithClient(c *redis.Client) *Revocations { return &Revocations{c: c} }

// IsRevoked implements domain.RevocationList. An empty jti is never revoked.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.c.Get(ctx, revokedPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return true, nil
}

// Revoke denies jti until ttl elapses. ttl <= 0 keeps the entry forever.
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.c.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (r *Revocations) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Revocations) Close() error { return r.c.Close() }
