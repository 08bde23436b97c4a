// Package ratelimit throttles calls per key (typically method + peer).
// The in-process limiter is a token bucket per key; the Redis limiter is a
// fixed window shared by every replica.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter allows perMinute calls per key with a burst of the same size.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.get(key).Allow(), nil
}

func (l *MemoryLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// RedisLimiter counts calls per key in windows of one period.
//
// It fails open: when Redis is unreachable the call is allowed, the error is
// logged and returned for the caller to observe.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	period time.Duration
	logger logging.Logger
}

func NewRedisLimiter(client *redis.Client, limit int, period time.Duration, logger logging.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), period: period, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("gophguard:rate:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Error(ctx, "rate limiter unavailable", "key", key, "error", err)
		return true, err
	}

	// the first hit opens the window
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.period).Err(); err != nil {
			l.logger.Error(ctx, "rate limiter expire failed", "key", key, "error", err)
			_ = l.client.Del(ctx, redisKey).Err()
			return true, err
		}
	}

	if count > l.limit {
		l.logger.Warn(ctx, "rate limit exceeded", "key", key, "count", count, "limit", l.limit)
		return false, nil
	}
	return true, nil
}
