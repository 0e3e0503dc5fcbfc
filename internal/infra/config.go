package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	AllowedOrigins []string

	DropboxAppKey         string
	DropboxAppSecret      string
	DropboxAPIBaseURL     string
	DropboxContentBaseURL string

	ReplicateAPIToken     string
	ReplicateBaseURL      string
	ReplicateModelVersion string

	LogoCacheTTL      time.Duration
	RelayPollInterval time.Duration
	RelayPollTimeout  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AllowedOrigins: splitEnvList("CORS_ALLOWED_ORIGINS"),

		DropboxAppKey:         os.Getenv("DROPBOX_APP_KEY"),
		DropboxAppSecret:      os.Getenv("DROPBOX_APP_SECRET"),
		DropboxAPIBaseURL:     getEnv("DROPBOX_API_BASE_URL", "https://api.dropboxapi.com"),
		DropboxContentBaseURL: getEnv("DROPBOX_CONTENT_BASE_URL", "https://content.dropboxapi.com"),

		ReplicateAPIToken:     os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:      getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"),
		ReplicateModelVersion: getEnv("REPLICATE_MODEL_VERSION", "kwaivgi/kling-v1.6-standard"),

		LogoCacheTTL:      time.Minute * time.Duration(getEnvInt("LOGO_CACHE_TTL_MINUTES", 15)),
		RelayPollInterval: time.Millisecond * time.Duration(getEnvInt("RELAY_POLL_INTERVAL_MS", 1500)),
		RelayPollTimeout:  time.Second * time.Duration(getEnvInt("RELAY_POLL_TIMEOUT_SECONDS", 120)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
