// Package redislock provides a Redis SET NX lease used to elect a single
// instance for periodic jobs.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotOwned    = errors.New("lock not owned")
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Lock is a held lease.  It expires on its own after the TTL.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// LockManager hands out leases on keys prefixed with "lock:".
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// AcquireLock takes the lease on key for ttl or fails with
// ErrLockNotAcquired when another holder has it.
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := "lock:" + key
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: m.client, key: lockKey, token: token}, nil
}

// TryLock is AcquireLock returning the release function, for callers that
// only need to give the lease back.
func (m *LockManager) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l, err := m.AcquireLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}

// Release gives the lease back.  ErrLockNotOwned means it already expired
// and possibly went to someone else.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend pushes the expiry of a held lease to ttl from now.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}
