package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// fixedWindow increments the key and starts its expiry on the first hit.
var fixedWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter shares windows across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	points int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, points int, w time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, points: points, window: w, prefix: "tinyread:rl:"}
}

// NewRedisLimiterFromURL parses a redis:// URL and verifies the connection.
func NewRedisLimiterFromURL(ctx context.Context, url string, points int, w time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisLimiter(client, points, w), nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := fixedWindow.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return n <= int64(l.points), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

var _ ports.RateLimiter = (*RedisLimiter)(nil)
