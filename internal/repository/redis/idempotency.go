package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pressmill/pressmill/internal/repository"
)

var _ repository.IdempotencyStore = (*redisIdempotency)(nil)

const (
	lockKeyPrefix = "pressmill:lock:"
	lockTTL       = 30 * time.Minute
)

type redisIdempotency struct {
	client *goredis.Client
}

// NewIdempotencyStore creates a Redis-backed idempotency store using SETNX.
func NewIdempotencyStore(client *goredis.Client) repository.IdempotencyStore {
	return &redisIdempotency{client: client}
}

// AcquireLock uses Redis SETNX to atomically acquire a processing lock.
func (r *redisIdempotency) AcquireLock(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock refreshes the TTL on the lock key for eventual cleanup.
func (r *redisIdempotency) ReleaseLock(ctx context.Context, key string) error {
	return r.client.Expire(ctx, lockKeyPrefix+key, lockTTL).Err()
}
