package generator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Generation quotas: anonymous callers by IP, authenticated callers by user id
const (
	DefaultAnonLimit  = 2
	DefaultAnonWindow = time.Hour

	DefaultAuthLimit  = 10
	DefaultAuthWindow = 24 * time.Hour
)

// Quota is a fixed-window request allowance
type Quota struct {
	Limit  int
	Window time.Duration
}

// Limits holds the anonymous and authenticated quotas
type Limits struct {
	Anonymous     Quota
	Authenticated Quota
}

// DefaultLimits returns the standard generation quotas
func DefaultLimits() Limits {
	return Limits{
		Anonymous:     Quota{Limit: DefaultAnonLimit, Window: DefaultAnonWindow},
		Authenticated: Quota{Limit: DefaultAuthLimit, Window: DefaultAuthWindow},
	}
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimiter tracks generation quotas in process memory
type RateLimiter struct {
	mu     sync.Mutex
	limits Limits
	anon   map[string]*rateLimitEntry
	auth   map[string]*rateLimitEntry
	now    func() time.Time
}

// NewRateLimiter creates an in-memory limiter
func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits: limits,
		anon:   make(map[string]*rateLimitEntry),
		auth:   make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// AllowAnonymous checks and consumes the quota for an IP
func (rl *RateLimiter) AllowAnonymous(_ context.Context, ip string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.check(ip, rl.anon, rl.limits.Anonymous), nil
}

// AllowAuthenticated checks and consumes the quota for a user
func (rl *RateLimiter) AllowAuthenticated(_ context.Context, userID string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.check(userID, rl.auth, rl.limits.Authenticated), nil
}

func (rl *RateLimiter) check(key string, tracking map[string]*rateLimitEntry, q Quota) bool {
	now := rl.now()

	entry, ok := tracking[key]
	if !ok || now.Sub(entry.windowStart) > q.Window {
		tracking[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	if entry.count >= q.Limit {
		return false
	}
	entry.count++
	return true
}

// RedisRateLimiter shares generation quotas across API instances using
// INCR on a key that expires with the window
type RedisRateLimiter struct {
	client *redis.Client
	limits Limits
	prefix string
}

// NewRedisRateLimiter creates a limiter storing counters under "genlimit:"
func NewRedisRateLimiter(client *redis.Client, limits Limits) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limits: limits, prefix: "genlimit:"}
}

// AllowAnonymous checks and consumes the shared quota for an IP
func (rl *RedisRateLimiter) AllowAnonymous(ctx context.Context, ip string) (bool, error) {
	return rl.check(ctx, "anon:"+ip, rl.limits.Anonymous)
}

// AllowAuthenticated checks and consumes the shared quota for a user
func (rl *RedisRateLimiter) AllowAuthenticated(ctx context.Context, userID string) (bool, error) {
	return rl.check(ctx, "auth:"+userID, rl.limits.Authenticated)
}

func (rl *RedisRateLimiter) check(ctx context.Context, key string, q Quota) (bool, error) {
	key = rl.prefix + key

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, q.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return incr.Val() <= int64(q.Limit), nil
}
