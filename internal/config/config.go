// Package config provides frozen, validated application configuration loaded
// from environment variables and command-line flags.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// envSpec binds the environment-variable half of the configuration using
// struct tags. Flags (see Load) take precedence over these when set.
type envSpec struct {
	Environment            string `env:"ENV" envDefault:"development"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret              string `env:"JWT_SECRET"`
	LibraryDirectories     string `env:"DUST_DIRS"` // colon-separated absolute paths
	Port                   string `env:"PORT" envDefault:"4001"`
	DatabasePath           string `env:"DATABASE_URL" envDefault:"dust.db"`
	ScanIntervalMinutes    int    `env:"SCAN_INTERVAL_MINUTES" envDefault:"5"`
	CleanupIntervalMinutes int    `env:"CLEANUP_INTERVAL_MINUTES" envDefault:"60"`
	ExternalUserAgent      string `env:"EXTERNAL_METADATA_USER_AGENT"`
	GoogleBooksAPIKey      string `env:"GOOGLE_BOOKS_API_KEY"`
	ArchiveRetentionDays   int    `env:"ARCHIVE_RETENTION_DAYS" envDefault:"365"`
	StaticAssetsDir        string `env:"STATIC_ASSETS_DIR"`
}

// Config is a frozen, validated configuration snapshot, constructed once at
// process start and never mutated afterward.
type Config struct {
	Environment string
	LogLevel    string

	JWTSecret []byte // decoded signing/hashing key, >= 32 bytes

	LibraryDirectories []string // absolute paths, at least one

	Port         string
	DatabasePath string

	ScanInterval    time.Duration
	CleanupInterval time.Duration

	ExternalMetadataUserAgent string
	GoogleBooksAPIKey         string

	ArchiveRetentionDays int

	// StaticAssetsDir, when set, serves a bundled web client from this
	// directory with SPA fallback, mounted after the API routes.
	StaticAssetsDir string

	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	StreamIdleTimeout  time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	// DevelopmentErrors, when true, includes wrapped-error detail in API
	// error responses. Only ever true outside production.
	DevelopmentErrors bool
}

// Load loads configuration from flags, environment variables, and defaults,
// in that order of precedence, then validates the result.
func Load() (*Config, error) {
	jwtSecretFlag := flag.String("jwt-secret", "", "HMAC signing secret (base64 or raw, >=32 bytes)")
	dirsFlag := flag.String("library-dirs", "", "Colon-separated library root directories")
	portFlag := flag.String("port", "", "HTTP port")
	dbPathFlag := flag.String("database-path", "", "Path to the SQLite database file")
	envFlag := flag.String("env", "", "Environment (development, staging, production)")
	logLevelFlag := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	scanIntervalFlag := flag.Int("scan-interval-minutes", 0, "Minutes between library scans")
	cleanupIntervalFlag := flag.Int("cleanup-interval-minutes", 0, "Minutes between archive reconciliation passes")

	flag.Parse()

	var spec envSpec
	if err := env.Parse(&spec); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := &Config{
		Environment:               firstNonEmpty(*envFlag, spec.Environment),
		LogLevel:                  firstNonEmpty(*logLevelFlag, spec.LogLevel),
		Port:                      firstNonEmpty(*portFlag, spec.Port),
		DatabasePath:              firstNonEmpty(*dbPathFlag, spec.DatabasePath),
		ExternalMetadataUserAgent: spec.ExternalUserAgent,
		GoogleBooksAPIKey:         spec.GoogleBooksAPIKey,
		ArchiveRetentionDays:      firstNonZero(spec.ArchiveRetentionDays, 365),
		ServerReadTimeout:         15 * time.Second,
		ServerWriteTimeout:        15 * time.Second,
		ServerIdleTimeout:         60 * time.Second,
		RequestTimeout:            30 * time.Second,
		StreamIdleTimeout:         60 * time.Second,
		RateLimitRPS:              0.33, // ~20/minute
		RateLimitBurst:            10,
		StaticAssetsDir:           spec.StaticAssetsDir,
	}
	cfg.DevelopmentErrors = cfg.Environment == "development"

	scanMinutes := firstNonZeroInt(*scanIntervalFlag, spec.ScanIntervalMinutes, 5)
	cleanupMinutes := firstNonZeroInt(*cleanupIntervalFlag, spec.CleanupIntervalMinutes, 60)
	cfg.ScanInterval = time.Duration(scanMinutes) * time.Minute
	cfg.CleanupInterval = time.Duration(cleanupMinutes) * time.Minute

	secret, err := decodeSecret(firstNonEmpty(*jwtSecretFlag, spec.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("invalid jwt secret: %w", err)
	}
	cfg.JWTSecret = secret

	dirs, err := expandDirs(firstNonEmpty(*dirsFlag, spec.LibraryDirectories))
	if err != nil {
		return nil, fmt.Errorf("invalid library directories: %w", err)
	}
	cfg.LibraryDirectories = dirs

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and well-formed.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must decode to at least 32 bytes, got %d", len(c.JWTSecret))
	}

	if len(c.LibraryDirectories) == 0 {
		return fmt.Errorf("at least one library directory is required")
	}
	for _, d := range c.LibraryDirectories {
		if !filepath.IsAbs(d) {
			return fmt.Errorf("library directory must be absolute: %s", d)
		}
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	return nil
}

// decodeSecret decodes a configured secret, trying hex then base64 before
// falling back to treating it as raw bytes. Absence is fatal to the caller
// via Validate's length check.
func decodeSecret(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(raw); err == nil && len(raw)%2 == 0 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	return []byte(raw), nil
}

// expandDirs splits a colon-separated directory list and makes each entry
// absolute and cleaned, resolving relative paths against the current
// working directory at load time.
func expandDirs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !filepath.IsAbs(part) {
			abs, err := filepath.Abs(part)
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", part, err)
			}
			part = abs
		}
		out = append(out, filepath.Clean(part))
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonZeroInt(flagVal, envVal, def int) int {
	if flagVal != 0 {
		return flagVal
	}
	if envVal != 0 {
		return envVal
	}
	return def
}

// mustHomeDir returns the current user's home directory, or "." when it
// cannot be determined.
func mustHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
