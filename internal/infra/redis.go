package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens the client backing the job queues, the DLQ, and the
// stock-cell read cache. Connectivity is checked at startup so a bad
// REDIS_URL fails the boot, not the first enqueue.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}
