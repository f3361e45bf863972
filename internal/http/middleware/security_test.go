package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// securedRecorder runs one GET through SecurityHeaders with pre set on the
// response beforehand and prep applied to the request.
func securedRecorder(t *testing.T, opt SecurityOptions, pre map[string]string, prep func(*http.Request)) http.Header {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		for k, v := range pre {
			c.Header(k, v)
		}
	})
	r.Use(SecurityHeaders(opt))
	r.GET("/wines", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/wines", nil)
	if prep != nil {
		prep(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Defaults(t *testing.T) {
	h := securedRecorder(t, SecurityOptions{}, nil, nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q; want %q", k, got, v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security", exposeHeader} {
		if got := h.Get(k); got != "" {
			t.Errorf("%s set to %q without opting in", k, got)
		}
	}
}

func TestSecurityHeaders_OptIns(t *testing.T) {
	h := securedRecorder(t, SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   36 * time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}, nil, func(r *http.Request) { r.TLS = &tls.ConnectionState{} })

	checks := map[string]string{
		"Permissions-Policy":                permissionsPolicy,
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cache-Control":                     "no-store",
		"Pragma":                            "no-cache",
		"Expires":                           "0",
		"Strict-Transport-Security":         "max-age=129600; includeSubDomains; preload",
	}
	for k, v := range checks {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q; want %q", k, got, v)
		}
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	viaProxy := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }

	if got := securedRecorder(t, SecurityOptions{EnableHSTS: true}, nil, nil).Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS on plain HTTP: %q", got)
	}
	got := securedRecorder(t, SecurityOptions{EnableHSTS: true}, nil, viaProxy).Get("Strict-Transport-Security")
	if got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default HSTS = %q", got)
	}
}

func TestSecurityHeaders_ExposeHeaders(t *testing.T) {
	cases := []struct {
		name string
		pre  map[string]string
		opts []string
		want string
	}{
		{
			name: "request id only",
			pre:  map[string]string{requestIDHeader: "rid-1"},
			want: "X-Request-ID",
		},
		{
			name: "appended to existing",
			pre:  map[string]string{requestIDHeader: "rid-2", exposeHeader: "ETag"},
			want: "ETag, X-Request-ID",
		},
		{
			name: "no duplicates, any case",
			pre:  map[string]string{requestIDHeader: "rid-3", exposeHeader: "retry-after, x-request-id"},
			opts: []string{"X-RateLimit-Remaining", "Retry-After", " "},
			want: "retry-after, x-request-id, X-RateLimit-Remaining",
		},
		{
			name: "quota headers without request id",
			opts: []string{"X-RateLimit-Limit", "X-RateLimit-Reset"},
			want: "X-RateLimit-Limit, X-RateLimit-Reset",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := securedRecorder(t, SecurityOptions{ExposeHeaders: tc.opts}, tc.pre, nil)
			if got := h.Get(exposeHeader); got != tc.want {
				t.Fatalf("expose = %q; want %q", got, tc.want)
			}
		})
	}
}

func Test_isHTTPS(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")

	if isHTTPS(plain) || !isHTTPS(tlsReq) || !isHTTPS(proxied) {
		t.Fatal("isHTTPS misclassified a request")
	}
}
