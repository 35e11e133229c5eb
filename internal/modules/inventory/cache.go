package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func seatsKey(eventID int64) string {
	return fmt.Sprintf("seats:%d", eventID)
}

func (c *RedisCache) Get(ctx context.Context, eventID int64) (int, bool, error) {
	seats, err := c.rdb.Get(ctx, seatsKey(eventID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seats, true, nil
}

func (c *RedisCache) Set(ctx context.Context, eventID int64, seats int) error {
	return c.rdb.Set(ctx, seatsKey(eventID), seats, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, eventID int64) error {
	return c.rdb.Del(ctx, seatsKey(eventID)).Err()
}
