package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter decides whether one more request under key fits the current window
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// MemoryRateLimiter is a fixed window limiter local to one process
type MemoryRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	limit     int
	window    time.Duration
	lastSweep time.Time
}

type window struct {
	used  int
	start time.Time
}

// NewMemoryRateLimiter creates a limiter admitting limit requests per window and key
func NewMemoryRateLimiter(limit int, w time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		clients:   make(map[string]*window),
		limit:     limit,
		window:    w,
		lastSweep: time.Now(),
	}
}

// Allow implements Limiter
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweep(now)

	c, ok := rl.clients[key]
	if !ok || now.Sub(c.start) >= rl.window {
		c = &window{start: now}
		rl.clients[key] = c
	}
	if c.used >= rl.limit {
		return false, 0, nil
	}
	c.used++
	return true, rl.limit - c.used, nil
}

// Limit implements Limiter
func (rl *MemoryRateLimiter) Limit() int { return rl.limit }

// sweep drops keys idle for two windows. Caller holds mu.
func (rl *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < 2*rl.window {
		return
	}
	for key, c := range rl.clients {
		if now.Sub(c.start) > 2*rl.window {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// RedisRateLimiter is a fixed window limiter shared by every replica
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a limiter counting in Redis under prefix
func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, w time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: limit, window: w}
}

// Allow implements Limiter
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	k := rl.prefix + key
	n, err := rl.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	// the first hit of a window starts its clock
	if n == 1 {
		if err := rl.client.Expire(ctx, k, rl.window).Err(); err != nil {
			return false, 0, err
		}
	}
	used := int(n)
	if used > rl.limit {
		return false, 0, nil
	}
	return true, rl.limit - used, nil
}

// Limit implements Limiter
func (rl *RedisRateLimiter) Limit() int { return rl.limit }

// RateLimitByKey returns a rate limiting middleware keyed by keyFunc.
// A limiter failure lets the request through.
func RateLimitByKey(limiter Limiter, keyFunc func(*gin.Context) string, l *zap.Logger) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *gin.Context) {
		allowed, remaining, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			l.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited, "Too many requests. Please try again later.", getRequestID(c)))
			return
		}
		c.Next()
	}
}

// ClientIPKey keys the limiter by caller address
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}
