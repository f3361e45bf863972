// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets response hardening headers for the JSON API. There is no
// CSP: nothing here serves HTML except Swagger UI, which ships its own.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	exposeHeader       = "Access-Control-Expose-Headers"
	defaultHSTSMaxAge  = 180 * 24 * time.Hour
	permissionsPolicy  = "geolocation=(), microphone=(), camera=(), payment=()"
	hstsDirectiveTrail = "; includeSubDomains; preload"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Turn it on only when TLS runs all the way to this process or its proxy
	// sets X-Forwarded-Proto.
	EnableHSTS bool
	HSTSMaxAge time.Duration // default 180 days

	// NoStore marks every response uncacheable. Leave it off for routes that
	// rely on ETag revalidation, like the venue wine list.
	NoStore bool

	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool

	// ExposeHeaders are added to Access-Control-Expose-Headers after
	// X-Request-ID, e.g. the X-RateLimit-* quota headers.
	ExposeHeaders []string
}

// SecurityHeaders always sets nosniff, X-Frame-Options DENY and
// Referrer-Policy no-referrer, plus whatever opt enables. Existing expose
// entries are kept and names are never listed twice.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		fixed = append(fixed,
			[2]string{"Permissions-Policy", permissionsPolicy},
			[2]string{"X-Permitted-Cross-Domain-Policies", "none"})
	}
	if opt.NoStore {
		fixed = append(fixed,
			[2]string{"Cache-Control", "no-store"},
			[2]string{"Pragma", "no-cache"},
			[2]string{"Expires", "0"})
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + hstsDirectiveTrail

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range fixed {
			h.Set(kv[0], kv[1])
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			expose(h, requestIDHeader)
		}
		for _, name := range opt.ExposeHeaders {
			expose(h, name)
		}
		c.Next()
	}
}

// expose appends name to Access-Control-Expose-Headers unless it is blank
// or already listed (case-insensitively).
func expose(h http.Header, name string) {
	if name = strings.TrimSpace(name); name == "" {
		return
	}
	cur := h.Get(exposeHeader)
	if cur == "" {
		h.Set(exposeHeader, name)
		return
	}
	for _, have := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(have), name) {
			return
		}
	}
	h.Set(exposeHeader, cur+", "+name)
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
