package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindow keeps each user's attempts in a sorted set scored by
// millisecond timestamp. All four commands run in one MULTI/EXEC.
type RedisWindow struct {
	client redis.Cmdable
}

func NewRedisWindow(client redis.Cmdable) *RedisWindow {
	return &RedisWindow{client: client}
}

func (w *RedisWindow) Record(ctx context.Context, key string, now time.Time, span time.Duration) (int64, error) {
	nowMs := now.UnixMilli()
	floor := nowMs - span.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	var card *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(floor, 10))
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, 2*span)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}
