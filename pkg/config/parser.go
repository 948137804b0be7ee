package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/goccy/go-yaml"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "ULTRA_CONFIG"

// DefaultPath returns ~/.config/ultra-cli/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ultra-cli", "config.yaml"), nil
}

// ResolvePath picks the config file to read: the given path, then
// $ULTRA_CONFIG, then the default location. explicit is false only for the
// default location, which may be absent.
func ResolvePath(path string) (resolved string, explicit bool, err error) {
	if path != "" {
		return path, true, nil
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p, true, nil
	}
	p, err := DefaultPath()
	if err != nil {
		return "", false, err
	}
	return p, false, nil
}

// Load builds the configuration from defaults, the YAML file chosen by
// ResolvePath and the environment, in that order, and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	tracer := otel.Tracer("ultra-cli")
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	cfg := Default()

	resolved, explicit, err := ResolvePath(path)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("config.path", resolved))

	if err := ParseFile(cfg, resolved); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ParseFile reads YAML from filePath into cfg. Keys missing from the file
// leave cfg unchanged.
func ParseFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // path comes from the user's flag or environment
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	cfg.merge(&file)
	return nil
}

// merge copies the non-zero settings of o onto c.
func (c *Config) merge(o *Config) {
	setString(&c.APIURL, o.APIURL)
	setDuration(&c.Timeout, o.Timeout)
	setInt(&c.PageSize, o.PageSize)
	setInt(&c.MaxPages, o.MaxPages)
	setDuration(&c.TokenRefreshMargin, o.TokenRefreshMargin)
	setInt(&c.Retry.MaxAttempts, o.Retry.MaxAttempts)
	setDuration(&c.Retry.BaseDelay, o.Retry.BaseDelay)
	setDuration(&c.Retry.MaxDelay, o.Retry.MaxDelay)
	setDuration(&c.Retry.RateLimitDelay, o.Retry.RateLimitDelay)
	setString(&c.Telemetry.Exporter, o.Telemetry.Exporter)
	setString(&c.Telemetry.Endpoint, o.Telemetry.Endpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
