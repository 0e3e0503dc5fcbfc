package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/studioops_test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" || cfg.Port != "8080" {
		t.Fatalf("app defaults = %q/%q", cfg.AppEnv, cfg.Port)
	}
	if cfg.DropboxAPIBaseURL != "https://api.dropboxapi.com" {
		t.Fatalf("dropbox api base = %q", cfg.DropboxAPIBaseURL)
	}
	if cfg.DropboxContentBaseURL != "https://content.dropboxapi.com" {
		t.Fatalf("dropbox content base = %q", cfg.DropboxContentBaseURL)
	}
	if cfg.ReplicateBaseURL != "https://api.replicate.com" {
		t.Fatalf("replicate base = %q", cfg.ReplicateBaseURL)
	}
	if cfg.RelayPollInterval != 1500*time.Millisecond {
		t.Fatalf("relay poll interval = %v", cfg.RelayPollInterval)
	}
	if cfg.RelayPollTimeout != 2*time.Minute {
		t.Fatalf("relay poll timeout = %v", cfg.RelayPollTimeout)
	}
	if cfg.LogoCacheTTL != 15*time.Minute {
		t.Fatalf("logo cache ttl = %v", cfg.LogoCacheTTL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected an error without DATABASE_URL")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/studioops_test")
	t.Setenv("PORT", "9090")
	t.Setenv("RELAY_POLL_INTERVAL_MS", "500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://studio.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.RelayPollInterval != 500*time.Millisecond {
		t.Fatalf("relay poll interval = %v", cfg.RelayPollInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://studio.example.com" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
}
