// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis. Optional; the profile cache is disabled without it.
	RedisURL string `koanf:"redis_url"`

	// CalibrationPath points at a JSON file of ranking weight overrides.
	// Optional; defaults apply without it.
	CalibrationPath string `koanf:"calibration_path"`

	// Snapshot refresh cadence for the social-graph indices.
	SnapshotRefreshSeconds int `koanf:"snapshot_refresh_seconds"`
	SnapshotTimeoutSeconds int `koanf:"snapshot_timeout_seconds"`

	// Feedback ingestion queue bound.
	FeedbackQueueSize int `koanf:"feedback_queue_size"`

	// Tracing
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`

	// AllowedOrigins is the CORS allowlist. Empty disables CORS handling.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
	ErrInvalidRefreshInterval = errors.New("SNAPSHOT_REFRESH_SECONDS must be positive")
	ErrInvalidRefreshTimeout  = errors.New("SNAPSHOT_TIMEOUT_SECONDS must be positive")
	ErrInvalidQueueSize       = errors.New("FEEDBACK_QUEUE_SIZE must be positive")
	ErrMissingOTLPEndpoint    = errors.New("OTLP_ENDPOINT is required when tracing is enabled")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultSnapshotRefreshSeconds = 300
	DefaultSnapshotTimeoutSeconds = 120
	DefaultFeedbackQueueSize      = 1024
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try PULSE_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"PULSE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	refreshSeconds, refreshErr := getEnvIntOrDefault("SNAPSHOT_REFRESH_SECONDS", k.Int("snapshot_refresh_seconds"), DefaultSnapshotRefreshSeconds)
	if refreshErr != nil {
		loadErrs = append(loadErrs, refreshErr)
	}
	timeoutSeconds, timeoutErr := getEnvIntOrDefault("SNAPSHOT_TIMEOUT_SECONDS", k.Int("snapshot_timeout_seconds"), DefaultSnapshotTimeoutSeconds)
	if timeoutErr != nil {
		loadErrs = append(loadErrs, timeoutErr)
	}
	queueSize, queueErr := getEnvIntOrDefault("FEEDBACK_QUEUE_SIZE", k.Int("feedback_queue_size"), DefaultFeedbackQueueSize)
	if queueErr != nil {
		loadErrs = append(loadErrs, queueErr)
	}

	tracingEnabled := false
	if k.Exists("tracing_enabled") {
		tracingEnabled = k.Bool("tracing_enabled")
	}
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"PULSE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		CalibrationPath:        getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "calibration_path"),
		SnapshotRefreshSeconds: refreshSeconds,
		SnapshotTimeoutSeconds: timeoutSeconds,
		FeedbackQueueSize:      queueSize,
		TracingEnabled:         tracingEnabled,
		OTLPEndpoint:           getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		AllowedOrigins:         loadOrigins(k),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// loadOrigins reads the CORS allowlist. The ALLOWED_ORIGINS env var is a
// comma-separated list and takes precedence over the allowed_origins YAML list.
func loadOrigins(k *koanf.Koanf) []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return k.Strings("allowed_origins")
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.SnapshotRefreshSeconds <= 0 {
		errs = append(errs, ErrInvalidRefreshInterval)
	}
	if c.SnapshotTimeoutSeconds <= 0 {
		errs = append(errs, ErrInvalidRefreshTimeout)
	}
	if c.FeedbackQueueSize <= 0 {
		errs = append(errs, ErrInvalidQueueSize)
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		errs = append(errs, ErrMissingOTLPEndpoint)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"calibration_path":         c.CalibrationPath,
		"snapshot_refresh_seconds": fmt.Sprintf("%d", c.SnapshotRefreshSeconds),
		"snapshot_timeout_seconds": fmt.Sprintf("%d", c.SnapshotTimeoutSeconds),
		"feedback_queue_size":      fmt.Sprintf("%d", c.FeedbackQueueSize),
		"tracing_enabled":          fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":            c.OTLPEndpoint,
		"allowed_origins":          strings.Join(c.AllowedOrigins, ","),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
