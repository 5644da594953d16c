// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-client token bucket that guards fetchbin's
// write paths: shares, votes and deletes over HTTP, and connections to the
// raw TCP port. One limiter instance is shared by both front ends, so a client
// cannot double its budget by switching transports. Buckets are keyed
// "ip:<addr>" and idle ones are swept periodically.
//
// The limiter is process-local; it is abuse control, not authorization.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5000 // lookups between idle sweeps
)

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP buckets requests by ClientIP, the same identity the raw TCP
// listener uses for its connections.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + ClientIP(c)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a set of token buckets created on first use. It is safe
// for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter refills rps tokens per second up to burst (coerced to >= 1).
// rps 0 allows exactly burst requests per key, ever; tests use that.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      bucketIdleTTL,
	}
}

// getVisitor returns the bucket for key. The idle sweep runs before the
// lookup so a stale bucket for key itself is replaced, not refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		rl.sweep(now)
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// sweep drops buckets idle for at least ttl. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
}

// Allow takes one token for key. The raw TCP listener calls it directly.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getVisitor(key).Allow()
}

// retryAfter is the whole number of seconds until one token refills, at
// least 1.
func (rl *RateLimiter) retryAfter() int {
	if rl.rps <= 0 || math.IsInf(float64(rl.rps), 1) {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.rps))))
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which stores nothing and so costs no token.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

// Handler enforces the limit on a route. Denied requests get 429
// too_many_requests with Retry-After.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retry := strconv.Itoa(rl.retryAfter())
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.Allow(rl.keyFn(c)) {
			c.Next()
			return
		}
		c.Header("Retry-After", retry)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
