package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by AcquireLock when another cycle already holds
// the lock.
var ErrLockHeld = errors.New("pool: lock already held")

// lockCmd is the additional redis surface the distributed lock needs,
// kept separate from redisCmd so Store's own tests don't have to stub it.
type lockCmd interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the lock key only if it still holds the token this
// caller set, so a lock that expired and was re-acquired by a later
// process is never torn down out from under it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Locker guards the matching cycle against concurrent runs across
// however many scheduler instances are deployed.
type Locker struct {
	rdb lockCmd
}

// NewLocker wraps a live Redis client.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// AcquireLock attempts to take the named lock for ttl, non-blocking. It
// returns a token that must be passed back to Release, and ErrLockHeld if
// another holder already has it.
func (l *Locker) AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, err error) {
	token = uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, "lock:"+name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("pool: acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

// Release drops the lock if and only if token still matches the value
// currently stored — a no-op if the lock already expired and was claimed
// by someone else.
func (l *Locker) Release(ctx context.Context, name, token string) error {
	if err := l.rdb.Eval(ctx, releaseScript, []string{"lock:" + name}, token).Err(); err != nil {
		return fmt.Errorf("pool: release lock %s: %w", name, err)
	}
	return nil
}
