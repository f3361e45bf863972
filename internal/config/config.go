// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// server, the inventory database, per-operation request gates, image
// limits, the AI provider and observability.
package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// GateConfig is a fixed-window allowance for one gated operation.
type GateConfig struct {
	Window      time.Duration
	MaxRequests int
}

// ImageConfig bounds inbound label photos.
type ImageConfig struct {
	MaxBytes     int64    // IMAGE_MAX_BYTES (decoded size)
	MaxPixels    int      // IMAGE_MAX_PIXELS (width * height)
	AllowedTypes []string // IMAGE_ALLOWED_TYPES
}

// AIConfig selects the model provider and bounds every external call.
type AIConfig struct {
	Provider      string // gemini|openai
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	ModelClassify string
	ModelScan     string
	ModelAnalyze  string
	ModelChat     string

	CallTimeout    time.Duration // deadline per attempt
	RequestTimeout time.Duration // deadline for a whole scan or chat request
	MaxRetries     int           // 0 or 1
	RetryBackoff   time.Duration
}

// MatchConfig tunes the inventory matcher.
type MatchConfig struct {
	MinScore float64
	Limit    int
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-wine-scanner")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 90s, above AI.RequestTimeout
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN
	SeedPath    string // optional wine list (.md or .yaml) loaded at boot

	// Rate limiting
	RateRPS        float64    // global token bucket, tokens per second (>= 0)
	RateBurst      int        // bucket size (>= 1)
	ScanGate       GateConfig // per-client fixed window for label scans
	ChatGate       GateConfig // per-client fixed window for chat
	SweepInterval  time.Duration
	TrustClientID  bool     // split an address's quota by X-Client-ID
	TrustedProxies []string // IPs/CIDRs whose X-Forwarded-For is honored

	Image ImageConfig
	AI    AIConfig
	Match MatchConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "wine.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SeedPath:    getenv("INVENTORY_SEED_PATH", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),
		ScanGate: GateConfig{
			Window:      getdur("SCAN_RATE_WINDOW", time.Minute),
			MaxRequests: getint("SCAN_RATE_MAX", 10),
		},
		ChatGate: GateConfig{
			Window:      getdur("CHAT_RATE_WINDOW", time.Minute),
			MaxRequests: getint("CHAT_RATE_MAX", 30),
		},
		SweepInterval:  getdur("RATE_SWEEP_INTERVAL", time.Minute),
		TrustClientID:  getbool("TRUST_CLIENT_ID", false),
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),

		Image: ImageConfig{
			MaxBytes:     int64(getint("IMAGE_MAX_BYTES", 5<<20)),
			MaxPixels:    getint("IMAGE_MAX_PIXELS", 40_000_000),
			AllowedTypes: splitCSV(strings.ToLower(getenv("IMAGE_ALLOWED_TYPES", "image/jpeg,image/png,image/webp,image/gif"))),
		},

		AI: AIConfig{
			Provider:       strings.ToLower(getenv("AI_PROVIDER", "gemini")),
			GeminiAPIKey:   getenv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:   getenv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:  getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ModelClassify:  getenv("AI_MODEL_CLASSIFY", "gemini-2.5-flash-lite"),
			ModelScan:      getenv("AI_MODEL_SCAN", "gemini-2.5-flash"),
			ModelAnalyze:   getenv("AI_MODEL_ANALYZE", "gemini-2.5-pro"),
			ModelChat:      getenv("AI_MODEL_CHAT", "gemini-2.5-flash"),
			CallTimeout:    getdur("AI_CALL_TIMEOUT", 20*time.Second),
			RequestTimeout: getdur("AI_REQUEST_TIMEOUT", 75*time.Second),
			MaxRetries:     getint("AI_MAX_RETRIES", 1),
			RetryBackoff:   getdur("AI_RETRY_BACKOFF", 250*time.Millisecond),
		},

		Match: MatchConfig{
			MinScore: getfloat("MATCH_MIN_SCORE", 0.35),
			Limit:    getint("MATCH_LIMIT", 5),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-wine-scanner"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.ScanGate.Window <= 0 || cfg.ChatGate.Window <= 0 {
		return cfg, errors.New("SCAN_RATE_WINDOW and CHAT_RATE_WINDOW must be > 0")
	}
	if cfg.ScanGate.MaxRequests < 1 || cfg.ChatGate.MaxRequests < 1 {
		return cfg, errors.New("SCAN_RATE_MAX and CHAT_RATE_MAX must be >= 1")
	}
	if cfg.SweepInterval <= 0 {
		return cfg, errors.New("RATE_SWEEP_INTERVAL must be > 0")
	}
	for _, p := range cfg.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return cfg, errors.New("TRUSTED_PROXIES must list IP addresses or CIDRs")
		}
	}
	if cfg.Image.MaxBytes <= 0 {
		return cfg, errors.New("IMAGE_MAX_BYTES must be > 0")
	}
	if cfg.Image.MaxPixels <= 0 {
		return cfg, errors.New("IMAGE_MAX_PIXELS must be > 0")
	}
	if len(cfg.Image.AllowedTypes) == 0 {
		return cfg, errors.New("IMAGE_ALLOWED_TYPES must not be empty")
	}
	switch cfg.AI.Provider {
	case "gemini", "openai":
	default:
		return cfg, errors.New("AI_PROVIDER must be one of: gemini, openai")
	}
	if cfg.AI.CallTimeout <= 0 {
		return cfg, errors.New("AI_CALL_TIMEOUT must be > 0")
	}
	if cfg.AI.RequestTimeout < cfg.AI.CallTimeout {
		return cfg, errors.New("AI_REQUEST_TIMEOUT must be >= AI_CALL_TIMEOUT")
	}
	if cfg.AI.RequestTimeout >= cfg.WriteTimeout {
		return cfg, errors.New("AI_REQUEST_TIMEOUT must be shorter than WRITE_TIMEOUT")
	}
	if cfg.AI.MaxRetries < 0 || cfg.AI.MaxRetries > 1 {
		return cfg, errors.New("AI_MAX_RETRIES must be 0 or 1")
	}
	if cfg.AI.RetryBackoff < 0 {
		return cfg, errors.New("AI_RETRY_BACKOFF must be >= 0")
	}
	if cfg.Match.MinScore < 0 || cfg.Match.MinScore > 1 {
		return cfg, errors.New("MATCH_MIN_SCORE must be between 0 and 1")
	}
	if cfg.Match.Limit < 1 {
		return cfg, errors.New("MATCH_LIMIT must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return cfg, nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
