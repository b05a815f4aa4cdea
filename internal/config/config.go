package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Thread ordering policies.
const (
	ThreadOrderArrival   = "arrival"
	ThreadOrderCreatedAt = "created_at"
)

// Config holds all application configuration
type Config struct {
	// Backend and session configuration for the client
	Client ClientConfig

	// Live channel configuration
	WebSocket WebSocketConfig

	// Edge guard server configuration
	Edge EdgeConfig

	// Rate limiting configuration for the edge server
	RateLimit RateLimitConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ClientConfig holds REST collaborator and session configuration
type ClientConfig struct {
	APIBaseURL   string
	WSBaseURL    string
	FrontendURL  string
	SessionFile  string
	HTTPTimeout  time.Duration
	RequestsPerS float64 // Outbound throttle
	Burst        int
	ThreadOrder  string // arrival, created_at
}

// WebSocketConfig holds live channel configuration
type WebSocketConfig struct {
	HandshakeTimeout time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	EventBuffer      int
}

// EdgeConfig holds edge guard server configuration
type EdgeConfig struct {
	Port             string
	FrontendUpstream string
	APIUpstream      string
	SessionCookie    string
	AllowedOrigins   []string
	TrustedProxies   []string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name           string
	Version        string
	Environment    string
	MetricsEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	apiBaseURL := strings.TrimRight(getEnvOrDefault("API_BASE_URL", "http://127.0.0.1:8000"), "/")

	cfg := &Config{
		Client: ClientConfig{
			APIBaseURL:   apiBaseURL,
			WSBaseURL:    strings.TrimRight(getEnvOrDefault("WS_BASE_URL", DeriveWSBaseURL(apiBaseURL)), "/"),
			FrontendURL:  strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
			SessionFile:  getEnvOrDefault("SESSION_FILE", defaultSessionFile()),
			HTTPTimeout:  getDurationOrDefault("HTTP_TIMEOUT", 15*time.Second),
			RequestsPerS: getFloatOrDefault("CLIENT_RPS", 10),
			Burst:        getIntOrDefault("CLIENT_BURST", 20),
			ThreadOrder:  getEnvOrDefault("THREAD_ORDER", ThreadOrderArrival),
		},
		WebSocket: WebSocketConfig{
			HandshakeTimeout: getDurationOrDefault("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
			ReadBufferSize:   getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize:  getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:     getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:         getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
			WriteWait:        getDurationOrDefault("WS_WRITE_WAIT", 10*time.Second),
			MaxMessageSize:   int64(getIntOrDefault("WS_MAX_MESSAGE_SIZE", 64*1024)),
			EventBuffer:      getIntOrDefault("WS_EVENT_BUFFER", 256),
		},
		Edge: EdgeConfig{
			Port:             getEnvOrDefault("EDGE_PORT", ":3001"),
			FrontendUpstream: getEnvOrDefault("EDGE_FRONTEND_UPSTREAM", "http://localhost:3000"),
			APIUpstream:      getEnvOrDefault("EDGE_API_UPSTREAM", apiBaseURL),
			SessionCookie:    getEnvOrDefault("EDGE_SESSION_COOKIE", "token"),
			AllowedOrigins:   getStringSliceOrDefault("EDGE_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TrustedProxies:   getStringSliceOrDefault("EDGE_TRUSTED_PROXIES", nil),
			ReadTimeout:      getDurationOrDefault("EDGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:     getDurationOrDefault("EDGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:      getDurationOrDefault("EDGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:  getDurationOrDefault("EDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
		App: AppConfig{
			Name:           getEnvOrDefault("APP_NAME", "devexchange"),
			Version:        getEnvOrDefault("APP_VERSION", "dev"),
			Environment:    getEnvOrDefault("APP_ENV", "development"),
			MetricsEnabled: getBoolOrDefault("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	checkURL := func(name, value string, schemes ...string) {
		u, err := url.Parse(value)
		if err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("%s must be an absolute URL", name))
			return
		}
		for _, scheme := range schemes {
			if u.Scheme == scheme {
				return
			}
		}
		errs = append(errs, fmt.Sprintf("%s must use one of the schemes %s", name, strings.Join(schemes, ", ")))
	}

	checkURL("API_BASE_URL", c.Client.APIBaseURL, "http", "https")
	checkURL("WS_BASE_URL", c.Client.WSBaseURL, "ws", "wss")
	checkURL("FRONTEND_URL", c.Client.FrontendURL, "http", "https")

	if c.Client.SessionFile == "" {
		errs = append(errs, "SESSION_FILE is required")
	}

	if c.Client.RequestsPerS <= 0 {
		errs = append(errs, "CLIENT_RPS must be positive")
	}

	if c.Client.ThreadOrder != ThreadOrderArrival && c.Client.ThreadOrder != ThreadOrderCreatedAt {
		errs = append(errs, "THREAD_ORDER must be arrival or created_at")
	}

	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		errs = append(errs, "WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	}

	if c.Edge.SessionCookie == "" {
		errs = append(errs, "EDGE_SESSION_COOKIE is required")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.Edge.AllowedOrigins) == 0 {
			errs = append(errs, "EDGE_ALLOWED_ORIGINS must be set in production")
		}
		if strings.HasPrefix(c.Client.APIBaseURL, "http://") {
			errs = append(errs, "API_BASE_URL must use https in production")
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// DeriveWSBaseURL turns an http(s) base URL into its ws(s) counterpart.
func DeriveWSBaseURL(apiBaseURL string) string {
	if rest, ok := strings.CutPrefix(apiBaseURL, "http"); ok {
		return "ws" + rest
	}
	return apiBaseURL
}

// Helper functions

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "devexchange", "session.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{API: %s, WS: %s, Session: %s, Edge: %s, RateLimit: %v, Environment: %s}",
		redactURL(c.Client.APIBaseURL),
		redactURL(c.Client.WSBaseURL),
		c.Client.SessionFile,
		c.Edge.Port,
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL strips userinfo from a URL
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	return u.String()
}
