package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// IPRateLimiter applies a token bucket per client IP
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiterEntry
	rate     rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewIPRateLimiter allows requests per window for each IP. Idle buckets are
// evicted by a background sweep every window.
func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	rl := newIPRateLimiter(requests, window)
	go rl.cleanupLoop()
	return rl
}

func newIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		window:   window,
		now:      time.Now,
	}
}

func (rl *IPRateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = rl.now()
	return entry.limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup drops buckets idle for more than two windows
func (rl *IPRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > 2*rl.window {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *IPRateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header in whole seconds
func (rl *IPRateLimiter) Middleware() echo.MiddlewareFunc {
	return rl.MiddlewareWhen(nil)
}

// MiddlewareWhen only charges requests for which charge returns true; the
// rest pass through without consuming a token. A nil charge counts every
// request.
func (rl *IPRateLimiter) MiddlewareWhen(charge func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if charge != nil && !charge(c) {
				return next(c)
			}
			lim := rl.limiter(getClientIP(c))
			if lim.Allow() {
				return next(c)
			}

			r := lim.Reserve()
			delay := r.Delay()
			r.Cancel()
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))

			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "Rate limit exceeded",
				Details: "Too many requests. Please try again later.",
			})
		}
	}
}

// RateLimiterConfig groups the limiters applied to each class of route
type RateLimiterConfig struct {
	Authoring          *IPRateLimiter
	ResponseSubmission *IPRateLimiter
	GeneralAPI         *IPRateLimiter
}

// NewRateLimiterConfig returns the standard per-minute limits
func NewRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Authoring:          NewIPRateLimiter(30, time.Minute),
		ResponseSubmission: NewIPRateLimiter(10, time.Minute),
		GeneralAPI:         NewIPRateLimiter(120, time.Minute),
	}
}
