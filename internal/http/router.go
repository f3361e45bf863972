// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, body limits and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/docs"
	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/config"
	"github.com/tbourn/go-wine-scanner/internal/http/handlers"
	"github.com/tbourn/go-wine-scanner/internal/http/middleware"
	"github.com/tbourn/go-wine-scanner/internal/ratelimit"
	"github.com/tbourn/go-wine-scanner/internal/repo"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

// Operation names used by the per-client gate.
const (
	OperationScan = "scan"
	OperationChat = "chat"
)

// base64 inflates by 4/3; the rest is JSON framing and the venue id.
const bodyOverhead = 64 << 10

// quotaHeaders are readable by browser clients.
var quotaHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "ETag"}

// Deps are the process-wide collaborators the routes are built on.
type Deps struct {
	DB   *gorm.DB
	AI   ai.Client
	Gate *ratelimit.Gate
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger (debug) or RedactingLogger: structured logs, request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter sized for the largest allowed photo
//  6. Metrics
//  7. Token-bucket rate limiter (per client/IP)
//  8. CORS and Security headers
//  9. gzip for JSON responses
//
// The scan and chat routes add their own fixed-window OperationGate.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// Client IPs key every quota; forwarding headers count only from
	// configured proxies. Config.Load has already validated the list.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		_ = r.SetTrustedProxies(nil)
	}
	clientKey := middleware.KeyByClient(cfg.TrustClientID)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging; full access logs only in debug mode
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-Client-ID"},
		}))
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(middleware.BodyLimit(maxBodyBytes(cfg.Image.MaxBytes)))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, clientKey)
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Client-ID", "X-Request-ID", "If-None-Match"}
	exposeHeaders := append([]string{"X-Request-ID", "Content-Length"}, quotaHeaders...)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       false,
		EnablePolicy:  true,
		ExposeHeaders: quotaHeaders,
	}))

	// 9) Compress JSON responses; scrapers handle /metrics themselves
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/model client
	set := services.Wire(d.DB, repo.Inventory{}, d.AI, cfg)
	h := handlers.New(set.Pipeline, set.Matches, set.Chat)

	gate := d.Gate
	if gate == nil {
		gate = ratelimit.New()
	}
	scanGate := middleware.OperationGate(gate, OperationScan, ratelimit.Config{
		Window:      cfg.ScanGate.Window,
		MaxRequests: cfg.ScanGate.MaxRequests,
	}, clientKey)
	chatGate := middleware.OperationGate(gate, OperationChat, ratelimit.Config{
		Window:      cfg.ChatGate.Window,
		MaxRequests: cfg.ChatGate.MaxRequests,
	}, clientKey)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Label scan
		api.POST("/scan", scanGate, h.ScanLabel)

		// Venue inventory
		api.GET("/venues/:id/wines", h.ListWines)
		api.POST("/venues/:id/match", h.MatchWines)
		api.POST("/venues/:id/chat", chatGate, h.Chat)
	}
}

// maxBodyBytes sizes the request cap for a base64 photo of maxImage bytes.
func maxBodyBytes(maxImage int64) int64 {
	if maxImage <= 0 {
		return 0
	}
	return maxImage/3*4 + 4 + bodyOverhead
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
