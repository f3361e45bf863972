package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// sampleCount returns the number of observations of one histogram series.
func sampleCount(t *testing.T, h *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_CountersSizesAndUnmatchedPath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.POST("/venues/:id/match", func(c *gin.Context) {
		c.String(http.StatusOK, "ranked")
	})
	r.GET("/statusonly", func(c *gin.Context) {
		c.Status(http.StatusNoContent) // nothing written, size stays -1
	})

	const route = "/venues/:id/match"
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("POST", route, "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))
	baseReq := sampleCount(t, httpReqSize, "POST", route)
	baseResp := sampleCount(t, httpRespSize, "GET", "/statusonly")

	// Two different venue ids share one route label.
	for _, id := range []string{"v1", "v2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/venues/"+id+"/match", bytes.NewBufferString(`{"query":"Barolo"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("POST match -> %d", w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /does-not-exist -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statusonly", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("GET /statusonly -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", route, "200")); got != baseOK+2 {
		t.Fatalf("counter match 200 = %v; want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != base404+1 {
		t.Fatalf("counter unmatched 404 = %v; want %v", got, base404+1)
	}
	if got := sampleCount(t, httpReqSize, "POST", route); got != baseReq+2 {
		t.Fatalf("request size samples = %d; want %d", got, baseReq+2)
	}
	if got := sampleCount(t, httpRespSize, "GET", "/statusonly"); got != baseResp {
		t.Fatalf("empty response must not be observed: %d samples, want %d", got, baseResp)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
