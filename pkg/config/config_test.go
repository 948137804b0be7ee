package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// isolate points HOME at an empty directory and clears ULTRA_CONFIG.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(PathEnv, "")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.APIURL != "https://api.ultradns.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.TokenRefreshMargin != 60*time.Second {
		t.Errorf("TokenRefreshMargin = %s, want 60s", cfg.TokenRefreshMargin)
	}
}

func TestIsValidExporter(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		want     bool
	}{
		{name: "none", exporter: "none", want: true},
		{name: "console", exporter: "console", want: true},
		{name: "otlp", exporter: "otlp", want: true},
		{name: "both", exporter: "both", want: true},
		{name: "empty", exporter: "", want: false},
		{name: "uppercase", exporter: "OTLP", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidExporter(tt.exporter); got != tt.want {
				t.Errorf("IsValidExporter(%q) = %v, want %v", tt.exporter, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "plain http", modify: func(c *Config) { c.APIURL = "http://localhost:8080" }},
		{name: "bad scheme", modify: func(c *Config) { c.APIURL = "ftp://api.example.com" }, wantErr: "scheme"},
		{name: "no host", modify: func(c *Config) { c.APIURL = "https://" }, wantErr: "missing host"},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "page size too big", modify: func(c *Config) { c.PageSize = 1001 }, wantErr: "page_size"},
		{name: "zero max pages", modify: func(c *Config) { c.MaxPages = 0 }, wantErr: "max_pages"},
		{name: "negative margin", modify: func(c *Config) { c.TokenRefreshMargin = -time.Second }, wantErr: "token_refresh_margin"},
		{name: "zero attempts", modify: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: "max_attempts"},
		{name: "negative delay", modify: func(c *Config) { c.Retry.RateLimitDelay = -1 }, wantErr: "negative"},
		{
			name:    "max below base",
			modify:  func(c *Config) { c.Retry.BaseDelay = 10 * time.Second; c.Retry.MaxDelay = time.Second },
			wantErr: "max_delay",
		},
		{name: "unknown exporter", modify: func(c *Config) { c.Telemetry.Exporter = "jaeger" }, wantErr: "exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	cfg := Default()
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.RateLimitDelay = 7 * time.Second

	p := cfg.RetryPolicy()
	if p.MaxAttempts != 3 || p.RateLimitDelay != 7*time.Second {
		t.Errorf("RetryPolicy() = %+v", p)
	}
	if p.Multiplier != 2 {
		t.Errorf("Multiplier = %v, want 2", p.Multiplier)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want default 100", cfg.PageSize)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("Load() error = %v, want read failure", err)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
api_url: http://127.0.0.1:9000
page_size: 250
retry:
  max_attempts: 2
telemetry:
  exporter: console
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PageSize != 250 {
		t.Errorf("PageSize = %d, want 250", cfg.PageSize)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("Retry.MaxAttempts = %d, want 2", cfg.Retry.MaxAttempts)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Retry.MaxDelay != 30*time.Second {
		t.Errorf("Retry.MaxDelay = %s, want 30s", cfg.Retry.MaxDelay)
	}
	if cfg.Telemetry.Exporter != "console" || cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "max_pages: 7\n")
	t.Setenv(PathEnv, path)

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxPages != 7 {
		t.Errorf("MaxPages = %d, want 7", cfg.MaxPages)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "page_size: 250\n")
	t.Setenv("ULTRA_PAGE_SIZE", "50")
	t.Setenv("ULTRA_TIMEOUT", "5s")
	t.Setenv("ULTRA_RETRY_MAX_ATTEMPTS", "9")
	t.Setenv("ULTRA_RETRY_RATE_LIMIT_DELAY", "2s")
	t.Setenv("OTEL_EXPORTER", "otlp")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.PageSize)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 9 || cfg.Retry.RateLimitDelay != 2*time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Telemetry.Exporter != "otlp" {
		t.Errorf("Telemetry.Exporter = %q, want otlp", cfg.Telemetry.Exporter)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{name: "malformed yaml", content: "page_size: [1, 2\n", wantErr: "failed to parse config file"},
		{name: "bad env value", content: "", env: map[string]string{"ULTRA_MAX_PAGES": "many"}, wantErr: "environment"},
		{name: "invalid result", content: "page_size: 5000\n", wantErr: "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.content)

			_, err := Load(context.Background(), path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
