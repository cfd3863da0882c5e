// Package runlock keeps two ingestion runs from writing at the same time.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultKey is the Redis key guarding ingestion.
const DefaultKey = "ingest:run"

// ErrHeld is returned when another run owns the lock.
var ErrHeld = errors.New("ingestion run lock is held by another process")

// releaseScript deletes the key only if it still holds our token, so a run
// whose lock expired cannot free a newer run's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Lock struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	token  string
}

func New(client *redis.Client, ttl time.Duration) *Lock {
	return &Lock{Client: client, Key: DefaultKey, TTL: ttl}
}

// Acquire takes the lock or returns ErrHeld.
func (l *Lock) Acquire(ctx context.Context) error {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.Key, err)
	}
	if !ok {
		return ErrHeld
	}
	l.token = token
	return nil
}

// Release frees the lock if this process still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.Client, []string{l.Key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", l.Key, err)
	}
	l.token = ""
	return nil
}

// Holder returns the token currently stored under the key, or "" when free.
func (l *Lock) Holder(ctx context.Context) (string, error) {
	val, err := l.Client.Get(ctx, l.Key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
