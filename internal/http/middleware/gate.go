// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file wires the per-operation fixed-window gate (internal/ratelimit)
// into Gin. Every gated response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset (seconds). Rejections add
// Retry-After and a retry_after field to the standard error envelope.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wine-scanner/internal/ratelimit"
)

// RateLimitedResponse is the 429 body for gated operations.
type RateLimitedResponse struct {
	RequestID  string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code       string `json:"code" example:"too_many_requests"`
	Message    string `json:"message" example:"scan limit reached, retry in 42s"`
	RetryAfter int    `json:"retry_after" example:"42"`
}

// OperationGate admits at most cfg.MaxRequests calls to operation per
// client per window. Rejected calls still count against the window.
func OperationGate(g *ratelimit.Gate, operation string, cfg ratelimit.Config, keyFn keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(ratelimit.Key{Operation: operation, Client: keyFn(c)}, cfg)

		reset := seconds(d.ResetIn)
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.Itoa(reset))

		if d.Allowed {
			c.Next()
			return
		}

		gateRejections.WithLabelValues(operation).Inc()
		LoggerFrom(c).Warn().
			Str("operation", operation).
			Int("retry_after", reset).
			Msg("operation rate limit exceeded")

		h.Set("Retry-After", strconv.Itoa(reset))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitedResponse{
			RequestID:  h.Get(requestIDHeader),
			Code:       codeRateLimited,
			Message:    operation + " limit reached, retry in " + strconv.Itoa(reset) + "s",
			RetryAfter: reset,
		})
	}
}

// seconds rounds d up to whole seconds, never below 1 for a positive d.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
