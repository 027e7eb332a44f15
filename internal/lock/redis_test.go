package lock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisLocker_DefaultKey(t *testing.T) {
	l := NewRedisLocker(NewRedisClient("127.0.0.1:6379", "", 0), "", time.Minute)
	t.Cleanup(func() { l.client.Close() })

	assert.Equal(t, DefaultKey, l.key)
	assert.Equal(t, time.Minute, l.ttl)
}

func TestRedisLocker_AcquireUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLocker(client, "test-lock", time.Minute)

	release, acquired, err := l.Acquire(context.Background(), "run-1")
	require.Error(t, err)
	assert.False(t, acquired)
	assert.Nil(t, release)
	assert.Contains(t, err.Error(), "test-lock")
}
