// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter keyed by
// caller identity (bearer subject or client IP). Rejections are rendered as
// the RateLimited error code (HTTP 429) through the common problem path.
//
// Buckets that have not been touched for IdleTTL are swept at most once per
// SweepEvery, during lookups. Replays flagged by IdempotencyValidator are not
// charged.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// Rate-limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// KeyFunc selects the bucket a request is charged to.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP charges authenticated callers by subject ("user:<sub>") and
// everyone else by client IP ("ip:<addr>").
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if s := c.GetString(ctxKeyUserID); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	RPS   float64 // tokens per second; 0 admits only the initial burst
	Burst int     // bucket size; values < 1 become 1
	Key   KeyFunc // defaults to KeyByUserOrIP

	// Requests for these exact paths are never limited (health, metrics).
	ExemptPaths []string

	IdleTTL    time.Duration // default 10m
	SweepEvery time.Duration // default 1m
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one bucket per key. It is safe for concurrent use.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	key    KeyFunc
	exempt map[string]struct{}

	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter builds a limiter from opts, filling defaults.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.RPS < 0 {
		opts.RPS = 0
	}
	if opts.Key == nil {
		opts.Key = KeyByUserOrIP()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}
	exempt := make(map[string]struct{}, len(opts.ExemptPaths))
	for _, p := range opts.ExemptPaths {
		exempt[p] = struct{}{}
	}
	return &RateLimiter{
		limit:      rate.Limit(opts.RPS),
		burst:      opts.Burst,
		key:        opts.Key,
		exempt:     exempt,
		idleTTL:    opts.IdleTTL,
		sweepEvery: opts.SweepEvery,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// Len reports how many buckets are currently held.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// limiterFor returns the bucket for key, creating it on first use. The sweep
// runs before the lookup so a stale bucket for key is replaced, not revived.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay that must not consume a token.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler returns the Gin middleware. Denied requests get Retry-After set to
// the refill time of one token and the RateLimited problem.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retryAfter := strconv.Itoa(rl.retryAfterSeconds())
	limit := strconv.Itoa(rl.burst)
	return func(c *gin.Context) {
		if _, ok := rl.exempt[c.Request.URL.Path]; ok || IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.limiterFor(rl.key(c))
		allowed := lim.AllowN(rl.now(), 1)

		c.Header(HeaderRateLimitLimit, limit)
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(int(math.Max(0, math.Floor(lim.TokensAt(rl.now()))))))

		if !allowed {
			c.Header("Retry-After", retryAfter)
			AbortWithError(c, apierr.NewCode(errcodes.RateLimited))
			return
		}
		c.Next()
	}
}

// retryAfterSeconds is the refill time of one token rounded up, at least 1s.
// With no refill a minute is advertised.
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(1/float64(rl.limit))))
}
