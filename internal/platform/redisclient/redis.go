package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"livepolls/internal/retry"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// New builds a client and pings it. The client is returned even when the
// ping fails: go-redis reconnects on its own, and callers decide whether a
// cold Redis is fatal.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
	})

	err := retry.DoWithRetry(ctx, 3, 200*time.Millisecond, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	return client, err
}
