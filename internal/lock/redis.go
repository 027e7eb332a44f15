// Package lock keeps two generation runs from overlapping across replicas.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
)

// DefaultKey is the Redis key holding the current run owner.
const DefaultKey = "health-history:run-lock"

// releaseScript deletes the key only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX based run lock with a TTL so a crashed run
// cannot hold it forever.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ healthrisk.RunLocker = (*RedisLocker)(nil)

// NewRedisClient creates a Redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisLocker creates a RedisLocker for key. An empty key uses DefaultKey.
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// Acquire implements healthrisk.RunLocker.
func (l *RedisLocker) Acquire(ctx context.Context, owner string) (func(context.Context) error, bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, owner).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", l.key, err)
		}
		return nil
	}
	return release, true, nil
}

// Ping reports whether Redis is reachable.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
