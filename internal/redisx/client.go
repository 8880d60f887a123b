package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// MarkOnce records that service handled eventID. It reports false when the
// event was already marked.
func MarkOnce(ctx context.Context, rdb redis.Cmdable, service, eventID string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
}

// Unmark drops a dedup mark so a failed event can be retried.
func Unmark(ctx context.Context, rdb redis.Cmdable, service, eventID string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err()
}
