package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Alert     AlertConfig
	OCR       OCRConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how each per-target Chrome process is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox. Required in containers.
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is used when a request does not carry its own proxy.
	DefaultProxy string
}

// ScraperConfig controls per-navigation behavior.
type ScraperConfig struct {
	// NavigationTimeout bounds one navigation. Fixed per target, no retry.
	NavigationTimeout time.Duration // default: 30s

	// DOMStableWindow is the quiet window WaitDOMStable requires before
	// the page counts as ready.
	DOMStableWindow time.Duration // default: 300ms
}

// EngineConfig controls batch fan-out.
type EngineConfig struct {
	// MaxSessions caps simultaneous browser processes per batch.
	// 0 means unbounded fan-out.
	MaxSessions int // default: 8
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// StoreConfig controls the MongoDB persistence sink.
// An empty URL disables persistence entirely.
type StoreConfig struct {
	MongoURL string
	Database string // default: "scraping"
}

// AlertConfig controls the outbound alert webhook.
// An empty URL disables alerting silently.
type AlertConfig struct {
	WebhookURL string
}

// OCRConfig controls the opaque image-to-text service.
// An empty URL makes OCR requests fail per-request; startup is unaffected.
type OCRConfig struct {
	ServiceURL string
	Timeout    time.Duration // default: 30s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// MONGO_URL and ALERT_WEBHOOK_URL keep their legacy names; everything else
// is namespaced under TABLEWATCH_.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TABLEWATCH_HOST", "0.0.0.0"),
			Port: envIntOr("TABLEWATCH_PORT", 3001),
			Mode: envOr("TABLEWATCH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("TABLEWATCH_HEADLESS", true),
			NoSandbox:    envBoolOr("TABLEWATCH_NO_SANDBOX", true),
			BrowserBin:   os.Getenv("TABLEWATCH_BROWSER_BIN"),
			DefaultProxy: os.Getenv("TABLEWATCH_PROXY"),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("TABLEWATCH_NAV_TIMEOUT", 30*time.Second),
			DOMStableWindow:   envDurationOr("TABLEWATCH_DOM_STABLE_WINDOW", 300*time.Millisecond),
		},
		Engine: EngineConfig{
			MaxSessions: envIntOr("TABLEWATCH_MAX_SESSIONS", 8),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TABLEWATCH_AUTH_ENABLED", false),
			APIKeys: envSliceOr("TABLEWATCH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TABLEWATCH_RATE_RPS", 5.0),
			Burst:             envIntOr("TABLEWATCH_RATE_BURST", 10),
		},
		Store: StoreConfig{
			MongoURL: os.Getenv("MONGO_URL"),
			Database: envOr("TABLEWATCH_MONGO_DB", "scraping"),
		},
		Alert: AlertConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
		OCR: OCRConfig{
			ServiceURL: os.Getenv("TABLEWATCH_OCR_URL"),
			Timeout:    envDurationOr("TABLEWATCH_OCR_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("TABLEWATCH_LOG_LEVEL", "info"),
			Format: envOr("TABLEWATCH_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
