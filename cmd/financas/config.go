package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ryan4rodrigues/financas-pessoais/internal/storage"
	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/viper"
)

// Storage drivers for the persisted session
const (
	driverMemory = "memory"
	driverFile   = "file"
	driverSQLite = "sqlite"
)

// Config is the resolved CLI configuration
type Config struct {
	// API
	BaseURL string
	Timeout time.Duration
	Retries int

	// Session storage
	StorageDriver string
	StoragePath   string

	// Logging
	LogLevel  string
	LogFormat string

	// Sentry
	SentryDSN string

	// Calendar months and report days are evaluated in this zone
	Timezone string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", financas.DefaultBaseURL)
	v.SetDefault("api.timeout", financas.DefaultTimeout)
	v.SetDefault("api.retries", 3)
	v.SetDefault("storage.driver", driverSQLite)
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("timezone", "UTC")
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".financas", "session.db")
	}
	return filepath.Join(dir, "financas", "session.db")
}

// LoadConfig resolves the configuration from v, applying defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	timeout, err := parseDuration(v.Get("api.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid api.timeout: %w", err)
	}

	return &Config{
		BaseURL:       strings.TrimSpace(v.GetString("api.base_url")),
		Timeout:       timeout,
		Retries:       v.GetInt("api.retries"),
		StorageDriver: strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		StoragePath:   strings.TrimSpace(v.GetString("storage.path")),
		LogLevel:      strings.ToLower(v.GetString("logging.level")),
		LogFormat:     strings.ToLower(v.GetString("logging.format")),
		SentryDSN:     v.GetString("sentry.dsn"),
		Timezone:      v.GetString("timezone"),
	}, nil
}

// parseDuration accepts durations ("45s") and bare seconds (45)
func parseDuration(raw interface{}) (time.Duration, error) {
	switch val := raw.(type) {
	case time.Duration:
		return val, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(val)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return 0, fmt.Errorf("cannot parse %q", val)
	default:
		return 0, fmt.Errorf("unsupported value %v", raw)
	}
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var errors []string

	if parsed, err := url.Parse(c.BaseURL); err != nil || c.BaseURL == "" {
		errors = append(errors, fmt.Sprintf("invalid api.base_url '%s'", c.BaseURL))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid api.base_url scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid api.timeout %s: must be positive", c.Timeout))
	}

	if c.Retries < 0 || c.Retries > 10 {
		errors = append(errors, fmt.Sprintf("invalid api.retries %d: must be between 0 and 10", c.Retries))
	}

	switch c.StorageDriver {
	case driverMemory:
	case driverFile, driverSQLite:
		if c.StoragePath == "" {
			errors = append(errors, fmt.Sprintf("storage.path cannot be empty when using the %s driver", c.StorageDriver))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid storage.driver '%s': must be one of [memory file sqlite]", c.StorageDriver))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid logging.level '%s'", c.LogLevel))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid logging.format '%s': must be 'console' or 'json'", c.LogFormat))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// ClientOptions turns the configuration into SDK options
func (c *Config) ClientOptions(logger financas.Logger) (*financas.ClientOptions, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	opts := &financas.ClientOptions{
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		Logger:    logger,
		SentryDSN: c.SentryDSN,
		Location:  loc,
	}

	if c.Retries > 0 {
		opts.RetryConfig = &financas.RetryConfig{
			MaxRetries: c.Retries,
			RetryWait:  500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		}
	}

	switch c.StorageDriver {
	case driverFile:
		store, err := storage.NewFileStore(c.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session directory: %w", err)
		}
		opts.Storage = store
		opts.MirrorCaches = true
	case driverSQLite:
		if err := os.MkdirAll(filepath.Dir(c.StoragePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		opts.SessionFile = c.StoragePath
		opts.MirrorCaches = true
	}

	return opts, nil
}
