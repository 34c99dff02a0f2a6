package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const reaperLockName = "lock:expiry-reaper"

// RedisLocker is a Locker backed by a single redsync mutex.
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedisLocker(client redis.UniversalClient, expiry time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	m := l.rs.NewMutex(reaperLockName,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1),
	)
	if err := m.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, ErrLockHeld
		}
		return nil, err
	}
	return func() { _, _ = m.Unlock() }, nil
}
