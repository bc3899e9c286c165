package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizattempt/internal/response"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByClientIP buckets by client address.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// ByLearnerAndParam buckets by authenticated learner and a path parameter,
// e.g. one bucket per learner per attempt for the anti-cheat endpoint.
func ByLearnerAndParam(param string) KeyFunc {
	return func(c *gin.Context) string {
		return LearnerID(c) + ":" + c.Param(param)
	}
}

// RateLimiter is a token bucket limiter over arbitrary keys. Buckets refill
// in whole intervals.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
	key      KeyFunc
	now      func() time.Time
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter allows rate requests per interval for each key.
func NewRateLimiter(rate int, interval time.Duration, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		key:      key,
		now:      time.Now,
	}
}

// Allow charges one token to key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.rate, lastSeen: now}
		rl.buckets[key] = b
	}

	if refill := int(now.Sub(b.lastSeen)/rl.interval) * rl.rate; refill > 0 {
		b.tokens = min(b.tokens+refill, rl.rate)
		b.lastSeen = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(rl.key(c)) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// Cleanup drops buckets idle for three intervals until stop is closed.
func (rl *RateLimiter) Cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-3 * rl.interval)
	for k, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
}
