package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is a Redis lock that keeps replicas from scanning at the same time.
type Lease struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewLease builds a lease on key that expires after ttl.
func NewLease(client redis.UniversalClient, key string, ttl time.Duration) *Lease {
	return &Lease{client: client, key: key, ttl: ttl}
}

// Acquire tries to take the lease. It returns the token to release with, or
// an empty token when another holder owns it.
func (l *Lease) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release drops the lease if token still owns it.
func (l *Lease) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
