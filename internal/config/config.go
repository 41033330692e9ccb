package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Local ops server configuration
	Server ServerConfig

	// Admin backend configuration
	Backend BackendConfig

	// Stream configuration
	Stream StreamConfig

	// Feed configuration
	Feed FeedConfig

	// Outbound rate limiting configuration
	RateLimit RateLimitConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds the local ops HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	APIKey          string
}

// BackendConfig holds the admin backend endpoints and credentials
type BackendConfig struct {
	BaseURL        string
	StreamURL      string
	RequestTimeout time.Duration
	Email          string
	Password       string
	AccessToken    string
}

// StreamConfig holds push-connection tuning
type StreamConfig struct {
	Enabled           bool
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	MaxRetryAttempts  int
	KeepaliveInterval time.Duration
}

// FeedConfig holds event feed tuning
type FeedConfig struct {
	Capacity      int
	BackfillLimit int
}

// RateLimitConfig holds client-side rate limiting for backend calls
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
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":9090"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			APIKey:          os.Getenv("SERVER_API_KEY"),
		},
		Backend: BackendConfig{
			BaseURL:        getEnvOrDefault("BACKEND_URL", "http://localhost:8000"),
			StreamURL:      os.Getenv("BACKEND_STREAM_URL"),
			RequestTimeout: getDurationOrDefault("BACKEND_REQUEST_TIMEOUT", 10*time.Second),
			Email:          os.Getenv("BACKEND_EMAIL"),
			Password:       os.Getenv("BACKEND_PASSWORD"),
			AccessToken:    os.Getenv("BACKEND_ACCESS_TOKEN"),
		},
		Stream: StreamConfig{
			Enabled:           getBoolOrDefault("STREAM_ENABLED", true),
			InitialRetryDelay: getDurationOrDefault("STREAM_INITIAL_RETRY_DELAY", time.Second),
			MaxRetryDelay:     getDurationOrDefault("STREAM_MAX_RETRY_DELAY", 30*time.Second),
			MaxRetryAttempts:  getIntOrDefault("STREAM_MAX_RETRY_ATTEMPTS", 5),
			KeepaliveInterval: getDurationOrDefault("STREAM_KEEPALIVE_INTERVAL", 25*time.Second),
		},
		Feed: FeedConfig{
			Capacity:      getIntOrDefault("FEED_CAPACITY", 100),
			BackfillLimit: getIntOrDefault("FEED_BACKFILL_LIMIT", 50),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 5),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "dashboard-agent"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if cfg.Backend.StreamURL == "" {
		cfg.Backend.StreamURL = deriveStreamURL(cfg.Backend.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// deriveStreamURL rewrites the backend base URL into the push-connection
// endpoint (http -> ws, https -> wss).
func deriveStreamURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/admin/dashboard/ws/events"
	return u.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Backend.BaseURL == "" {
		errs = append(errs, "BACKEND_URL is required")
	}

	if c.Backend.StreamURL == "" {
		errs = append(errs, "BACKEND_STREAM_URL is required when BACKEND_URL cannot be parsed")
	}

	if c.Backend.AccessToken == "" && (c.Backend.Email == "" || c.Backend.Password == "") {
		errs = append(errs, "either BACKEND_ACCESS_TOKEN or BACKEND_EMAIL/BACKEND_PASSWORD is required")
	}

	// Logical validations
	if c.Stream.InitialRetryDelay <= 0 {
		errs = append(errs, "STREAM_INITIAL_RETRY_DELAY must be positive")
	}

	if c.Stream.MaxRetryDelay < c.Stream.InitialRetryDelay {
		errs = append(errs, "STREAM_MAX_RETRY_DELAY cannot be less than STREAM_INITIAL_RETRY_DELAY")
	}

	if c.Stream.MaxRetryAttempts < 0 {
		errs = append(errs, "STREAM_MAX_RETRY_ATTEMPTS cannot be negative")
	}

	if c.Feed.Capacity <= 0 {
		errs = append(errs, "FEED_CAPACITY must be positive")
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

// Helper functions

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
		"Config{Server: %s, Backend: %s, Stream: enabled=%v, Environment: %s}",
		c.Server.Port,
		c.Backend.BaseURL,
		c.Stream.Enabled,
		c.App.Environment,
	)
}
