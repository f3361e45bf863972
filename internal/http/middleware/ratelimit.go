// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the coarse per-client token bucket that fronts every API
// route. The scan and chat operations are additionally gated per operation
// by OperationGate (gate.go); this limiter only absorbs floods.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity its quota is charged to.
type keyFunc func(*gin.Context) string

// codeRateLimited matches handlers.ErrCodeRateLimited.
const codeRateLimited = "too_many_requests"

// clientIDHeader names the caller when many guests share one address (a
// venue's Wi-Fi, the kiosk gateway). Callers set it freely, so it only ever
// splits an address's quota and never replaces it.
const clientIDHeader = "X-Client-ID"

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5000 // lookups between idle sweeps
)

// KeyByClient keys by client IP. With trustHeader set, a present
// X-Client-ID is appended to the IP, so rotating the header never leaves
// the address's namespace.
func KeyByClient(trustHeader bool) keyFunc {
	return func(c *gin.Context) string {
		ip := c.ClientIP()
		if trustHeader {
			if id := strings.TrimSpace(c.GetHeader(clientIDHeader)); id != "" {
				return "client:" + ip + ":" + truncate(id, 128)
			}
		}
		return "ip:" + ip
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a per-key token bucket. Idle buckets are dropped during
// lookups so the map stays bounded. Safe for concurrent use.
type RateLimiter struct {
	every rate.Limit
	burst int
	key   keyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
	idleTTL time.Duration
}

// NewRateLimiter refills rps tokens per second up to burst (at least 1).
func NewRateLimiter(rps float64, burst int, key keyFunc) *RateLimiter {
	return &RateLimiter{
		every:   rate.Limit(rps),
		burst:   max(burst, 1),
		key:     key,
		buckets: make(map[string]*bucket),
		idleTTL: bucketIdleTTL,
	}
}

// limiter returns the bucket for key, creating it on first use. The idle
// sweep runs before the lookup so a stale bucket is replaced, not revived.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		rl.lookups = 0
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// Handler rejects over-quota requests with 429, Retry-After and the
// standard error envelope. A rejected request does not consume a token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := rl.limiter(rl.key(c)).Reserve()
		if res.OK() && res.Delay() == 0 {
			c.Next()
			return
		}

		wait := time.Second
		if res.OK() {
			wait = res.Delay()
			res.Cancel()
		}
		c.Header("Retry-After", strconv.Itoa(max(1, seconds(wait))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       codeRateLimited,
			"message":    "rate limit exceeded",
		})
	}
}
