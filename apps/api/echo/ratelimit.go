package echoapi

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key over a fixed window.
type RateLimiter interface {
	// Allow reports whether the key may proceed and, when denied,
	// how long until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

var _ RateLimiter = (*redisRateLimiter)(nil)

// NewRedisRateLimiter returns a RateLimiter backed by a shared redis counter;
// limits hold across all API replicas.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{client: client, limit: limit, window: window}
}

func (rl *redisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = "ratelimit:" + key

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "incrementing counter")
	}
	if count == 1 {
		if err = rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, 0, errors.Wrap(err, "setting counter expiry")
		}
	}
	if count <= int64(rl.limit) {
		return true, 0, nil
	}

	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rl.window
	}
	return false, ttl, nil
}

type (
	memoryRateLimiter struct {
		mu      sync.Mutex
		limit   int
		window  time.Duration
		buckets map[string]*bucket
	}

	bucket struct {
		count   int
		resetAt time.Time
	}
)

var _ RateLimiter = (*memoryRateLimiter)(nil)

// NewMemoryRateLimiter returns a process-local RateLimiter for single-instance
// deployments and tests.
func NewMemoryRateLimiter(limit int, window time.Duration) RateLimiter {
	return &memoryRateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (rl *memoryRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.prune(now)
		rl.buckets[key] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true, 0, nil
	}

	b.count++
	if b.count > rl.limit {
		return false, b.resetAt.Sub(now), nil
	}
	return true, 0, nil
}

// prune drops expired buckets so the map does not grow without bound.
func (rl *memoryRateLimiter) prune(now time.Time) {
	if len(rl.buckets) < 1000 {
		return
	}
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// rateLimitMiddleware throttles by client IP within the given scope.
// Limiter failures let the request through.
func rateLimitMiddleware(limiter RateLimiter, scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}

			key := scope + ":" + ctx.RealIP()
			ok, retryAfter, err := limiter.Allow(ctx.Request().Context(), key)
			if err != nil {
				ctx.Logger().Errorf("rate limiting %q: %v", key, err)
				return next(ctx)
			}
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
