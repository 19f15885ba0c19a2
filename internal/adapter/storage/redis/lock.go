package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock implements ports.DistributedLock with SET NX PX and a token-checked release.
type Lock struct {
	client goredis.UniversalClient
	prefix string
}

// NewLock creates a Redis-backed distributed lock.
func NewLock(client goredis.UniversalClient) *Lock {
	return &Lock{
		client: client,
		prefix: "lock:",
	}
}

// Acquire tries once to take key for ttl. ok is false when another holder owns it.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	err := l.client.SetArgs(ctx, l.prefix+key, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis lock acquire %s: %w", key, err)
	}
	return token, true, nil
}

// Release frees key if token still owns it. Releasing an expired or stolen lock is a no-op.
func (l *Lock) Release(ctx context.Context, key string, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis lock release %s: %w", key, err)
	}
	return nil
}
