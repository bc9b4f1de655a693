package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterKeyPrefix = "userhub:mail:limit:"

// Limiter caps how many emails a recipient may receive per period.
type Limiter interface {
	Allow(ctx context.Context, recipient string) (bool, error)
}

// RedisLimiter is a fixed-window counter kept in Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	period time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, period: period}
}

// NewRedisLimiterFromURL connects to redisURL and verifies the connection.
func NewRedisLimiterFromURL(ctx context.Context, redisURL string, limit int, period time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLimiter(client, limit, period), nil
}

// Allow counts one email to recipient and reports whether it is within the
// limit. The window starts with the first email.
func (l *RedisLimiter) Allow(ctx context.Context, recipient string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	key := limiterKeyPrefix + recipient

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.period)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
