package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/guttosm/coinbench/internal/logger"
)

// Every API request may fan out to many upstream calls, so clients are
// throttled per IP with a token bucket.
const (
	defaultRate  = rate.Limit(1) // tokens per second
	defaultBurst = 60
	defaultTTL   = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter keeps one token bucket per client key.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

// NewIPLimiter builds a limiter allowing r tokens per second with the given burst.
// Entries idle for longer than ttl are dropped by Cleanup.
func NewIPLimiter(r rate.Limit, burst int, ttl time.Duration) *IPLimiter {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		ttl:      ttl,
	}
}

// Allow consumes one token for key and reports whether it was available.
func (l *IPLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Cleanup drops visitors idle for longer than the ttl.
func (l *IPLimiter) Cleanup() {
	cut := time.Now().Add(-l.ttl)

	l.mu.Lock()
	for k, v := range l.visitors {
		if v.lastSeen.Before(cut) {
			delete(l.visitors, k)
		}
	}
	l.mu.Unlock()
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (l *IPLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimiter rejects requests with 429 once a client IP runs out of tokens.
// A nil limiter uses the package defaults.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{"message": "rate limit exceeded", "timestamp": "..."}
func RateLimiter(l *IPLimiter) gin.HandlerFunc {
	if l == nil {
		l = NewIPLimiter(defaultRate, defaultBurst, defaultTTL)
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			rid, _ := c.Get(RequestIDKey)
			logger.L().Warn().Str("request_id", toString(rid)).Str("client_ip", ip).Msg("rate limited")
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
