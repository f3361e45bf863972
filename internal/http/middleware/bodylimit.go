package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const codeBodyTooLarge = "payload_too_large"

// BodyLimit caps request bodies at limit bytes.
//
// Requests that declare a larger Content-Length are rejected up front with
// 413. Everything else is wrapped in http.MaxBytesReader, so a body that
// grows past the cap mid-stream fails on read; handlers surface that as 413
// too (see IsBodyTooLarge). limit <= 0 disables the limit.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			LoggerFrom(c).Warn().
				Int64("content_length", c.Request.ContentLength).
				Int64("limit", limit).
				Msg("request body too large")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       codeBodyTooLarge,
				"message":    "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
