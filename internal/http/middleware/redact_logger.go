// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger used outside debug
// mode. It logs the same request-scoped fields as Logger, minus anything
// that could identify a guest: query strings and header values are scrubbed
// of inline images, UUIDs, emails and phone numbers, and credential headers
// are masked outright. Bodies are never read.
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Client-ID"},
//	}))
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const redacted = "[REDACTED]"

// Applied in order. UUIDs go before phone numbers, whose pattern would
// otherwise eat their digit groups.
var scrubbers = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)data(?::|%3a)[a-z]+(?:/|%2f)[a-z0-9.+-]+(?:;|%3b)base64(?:,|%2c)[a-z0-9+/=%_-]+`), "[REDACTED:data]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

var alwaysMasked = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"}

// RedactOptions configures RedactingLogger. MaskHeaders are replaced by
// "[REDACTED]" on top of Authorization, Cookie, Set-Cookie and X-Api-Key.
type RedactOptions struct {
	MaskHeaders []string
}

type redactor struct {
	masked map[string]bool // canonical header keys
}

func newRedactor(extra []string) redactor {
	r := redactor{masked: make(map[string]bool, len(alwaysMasked)+len(extra))}
	for _, h := range append(append([]string(nil), alwaysMasked...), extra...) {
		if h = strings.TrimSpace(h); h != "" {
			r.masked[http.CanonicalHeaderKey(h)] = true
		}
	}
	return r
}

func (redactor) scrub(s string) string {
	for _, sc := range scrubbers {
		if s == "" {
			break
		}
		s = sc.re.ReplaceAllString(s, sc.repl)
	}
	return s
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if r.masked[http.CanonicalHeaderKey(k)] {
			out[k] = redacted
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger returns an access logger that scrubs request metadata.
// Levels follow Logger: error for 5xx, warn for 4xx, info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = rd.scrub(c.Request.URL.Path)
		}
		rid := requestIDOf(c)

		lc := log.With().Str("request_id", rid).Str("path", path)
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			lc = lc.Str("trace_id", sc.TraceID().String())
		}
		l := lc.Logger()
		attachLogger(c, &l)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		if q := c.Request.URL.RawQuery; q != "" {
			ev = ev.Str("query", truncate(rd.scrub(q), maxQueryLogLength))
		}
		ev.Str("method", c.Request.Method).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", rd.headers(c.Request.Header)).
			Msg("http_request")
	}
}

// requestIDOf prefers the ID set by RequestID, then one already on the
// response, then the raw inbound header.
func requestIDOf(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s := asString(v); s != "" {
			return s
		}
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}
