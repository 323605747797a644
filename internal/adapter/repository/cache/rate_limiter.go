package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	logger *logger.Logger
}

func NewRateLimiter(client *redis.Client, max int, window time.Duration, log *logger.Logger) *RateLimiter {
	return &RateLimiter{client: client, max: max, window: window, logger: log.Named("RateLimiter")}
}

// Allow counts one request for clientKey. When the window is exhausted it
// returns false and the time until the window resets. Redis failures let
// the request through.
func (l *RateLimiter) Allow(ctx context.Context, clientKey string) (bool, time.Duration) {
	key := rateLimitKeyPrefix + clientKey

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing request", zap.String("client", clientKey), zap.Error(err))
		return true, 0
	}

	if incr.Val() <= int64(l.max) {
		return true, 0
	}
	retry := ttl.Val()
	if retry <= 0 {
		retry = l.window
	}
	return false, retry
}

// Reset clears the counter of clientKey.
func (l *RateLimiter) Reset(ctx context.Context, clientKey string) error {
	if err := l.client.Del(ctx, rateLimitKeyPrefix+clientKey).Err(); err != nil {
		return fmt.Errorf("redis del rate limit: %w", err)
	}
	return nil
}
