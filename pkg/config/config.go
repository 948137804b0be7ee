// Package config loads ultra-cli settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tfullert/ultra-cli/pkg/retry"
)

// Config holds the tunables of one invocation. Zero-valued fields in a file
// keep their defaults.
type Config struct {
	// APIURL is the base URL of the UltraDNS REST service.
	APIURL string `yaml:"api_url" env:"ULTRA_API_URL"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" env:"ULTRA_TIMEOUT"`

	// PageSize is the number of entities requested per page.
	PageSize int `yaml:"page_size" env:"ULTRA_PAGE_SIZE"`

	// MaxPages bounds the pages read from a single collection.
	MaxPages int `yaml:"max_pages" env:"ULTRA_MAX_PAGES"`

	// TokenRefreshMargin is how long before expiry a token is replaced.
	TokenRefreshMargin time.Duration `yaml:"token_refresh_margin" env:"ULTRA_TOKEN_REFRESH_MARGIN"`

	Retry     RetryConfig     `yaml:"retry" envPrefix:"ULTRA_RETRY_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// RetryConfig controls how failed requests are retried.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay      time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	MaxDelay       time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" env:"RATE_LIMIT_DELAY"`
}

// TelemetryConfig selects where spans are exported.
type TelemetryConfig struct {
	// Exporter is one of none, console, otlp or both.
	Exporter string `yaml:"exporter" env:"EXPORTER"`
	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// ValidExporters lists the accepted telemetry exporters.
var ValidExporters = []string{"none", "console", "otlp", "both"}

// Default returns the built-in configuration.
func Default() *Config {
	p := retry.DefaultPolicy()
	return &Config{
		APIURL:             "https://api.ultradns.com",
		Timeout:            30 * time.Second,
		PageSize:           100,
		MaxPages:           10000,
		TokenRefreshMargin: 60 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:    p.MaxAttempts,
			BaseDelay:      p.BaseDelay,
			MaxDelay:       p.MaxDelay,
			RateLimitDelay: p.RateLimitDelay,
		},
		Telemetry: TelemetryConfig{
			Exporter: "none",
			Endpoint: "localhost:4317",
		},
	}
}

// IsValidExporter reports whether name is a supported telemetry exporter.
func IsValidExporter(name string) bool {
	for _, e := range ValidExporters {
		if e == name {
			return true
		}
	}
	return false
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api_url %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api_url %q: missing host", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("page_size must be between 1 and 1000, got %d", c.PageSize)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be positive, got %d", c.MaxPages)
	}
	if c.TokenRefreshMargin < 0 {
		return fmt.Errorf("token_refresh_margin cannot be negative, got %s", c.TokenRefreshMargin)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 || c.Retry.RateLimitDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) is shorter than retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if !IsValidExporter(c.Telemetry.Exporter) {
		return fmt.Errorf("invalid telemetry exporter %q, must be one of %v", c.Telemetry.Exporter, ValidExporters)
	}
	return nil
}

// RetryPolicy converts the retry settings to a retry.Policy.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.Retry.MaxAttempts
	p.BaseDelay = c.Retry.BaseDelay
	p.MaxDelay = c.Retry.MaxDelay
	p.RateLimitDelay = c.Retry.RateLimitDelay
	return p
}
