package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRedactor_scrub(t *testing.T) {
	rd := newRedactor(nil)
	cases := []struct{ in, want string }{
		{"", ""},
		{"plain text", "plain text"},
		{"mail a.b+x@wine.it", "mail [REDACTED:email]"},
		{"call 212-555-1212", "call [REDACTED:phone]"},
		{"id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"img=data:image/png;base64,iVBORw0KGgoAAAANSUhEUg==", "img=[REDACTED:data]"},
		{"img=data%3Aimage%2Fjpeg%3Bbase64%2C%2F9j%2F4AAQ", "img=[REDACTED:data]"},
	}
	for _, tc := range cases {
		if got := rd.scrub(tc.in); got != tc.want {
			t.Errorf("scrub(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_headers(t *testing.T) {
	rd := newRedactor([]string{" x-client-id ", ""})
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "sid=1")
	h.Set("X-Api-Key", "k")
	h.Set("X-Client-ID", "kiosk-3")
	h.Add("X-Note", "ping a@b.com")
	h.Add("X-Note", "again")

	got := rd.headers(h)
	for _, k := range []string{"Authorization", "Cookie", "X-Api-Key", "X-Client-Id"} {
		if got[k] != redacted {
			t.Errorf("%s = %q; want masked", k, got[k])
		}
	}
	if got["X-Note"] != "ping [REDACTED:email], again" {
		t.Errorf("X-Note = %q", got["X-Note"])
	}
}

func TestRedactingLogger_AccessLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Client-ID"}}))
	r.GET("/venues/:id/wines", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	req := httptest.NewRequest(http.MethodGet, "/venues/v-1/wines?who=a@b.com&page=2", nil)
	req.Header.Set("X-Request-ID", "rid-ok")
	req.Header.Set("X-Client-ID", "kiosk-9")
	req.Header.Set("Authorization", "Bearer t0ken")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-bad")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leak := range []string{"a@b.com", "kiosk-9", "t0ken"} {
		if strings.Contains(out, leak) {
			t.Fatalf("%q leaked: %s", leak, out)
		}
	}

	ok := logLine(out, `"request_id":"rid-ok"`)
	for _, want := range []string{`"level":"info"`, `"path":"/venues/:id/wines"`, `"query":"who=[REDACTED:email]&page=2"`, `"status":200`} {
		if !strings.Contains(ok, want) {
			t.Errorf("ok line missing %s: %s", want, ok)
		}
	}
	if bad := logLine(out, `"request_id":"rid-bad"`); !strings.Contains(bad, `"level":"error"`) {
		t.Errorf("5xx line: %s", bad)
	}
}

func TestRedactingLogger_RequestIDSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	// No RequestID middleware: an upstream response header wins over the
	// inbound one, and the inbound one is the last resort.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Query("upstream") != "" {
			c.Header(requestIDHeader, "rid-upstream")
		}
	})
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, target := range []string{"/x?upstream=1", "/x"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set(requestIDHeader, "rid-inbound")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	out := buf.String()
	if l := logLine(out, "rid-upstream"); !strings.Contains(l, `"level":"warn"`) {
		t.Fatalf("upstream id line: %s", l)
	}
	if logLine(out, `"request_id":"rid-inbound"`) == "" {
		t.Fatalf("inbound id not used: %s", out)
	}
}

func TestRedactingLogger_ServicesShareLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.POST("/venues/:id/match", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("matched")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/venues/v1/match", nil)
	req.Header.Set("X-Request-ID", "rid-ctx")
	r.ServeHTTP(httptest.NewRecorder(), req)

	l := logLine(buf.String(), `"message":"matched"`)
	if !strings.Contains(l, `"request_id":"rid-ctx"`) || !strings.Contains(l, `"path":"/venues/:id/match"`) {
		t.Fatalf("service line: %s", l)
	}
}
