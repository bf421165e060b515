package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis counts sends per destination in fixed one-minute windows, so
// the limit holds across restarts and across multiple bridge hosts
// sharing one gateway account.
type Redis struct {
	rdb       *redis.Client
	perMinute int
}

func NewRedis(rdb *redis.Client, perMinute int) *Redis {
	return &Redis{rdb: rdb, perMinute: perMinute}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	window := time.Now().Unix() / 60
	k := fmt.Sprintf("sms:out:%s:%d", key, window)

	n, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := r.rdb.Expire(ctx, k, 2*time.Minute).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(r.perMinute), nil
}
