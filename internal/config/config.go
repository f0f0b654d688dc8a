package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "swimlane.yml"

// Environment variables that override the file.
const (
	EnvRedisURL  = "SWIMLANE_REDIS_URL"
	EnvNamespace = "SWIMLANE_NAMESPACE"
	EnvLogLevel  = "SWIMLANE_LOG_LEVEL"
)

// SwimlaneConfig represents the top-level swimlane.yml configuration
type SwimlaneConfig struct {
	Version   string          `yaml:"version"`
	Namespace string          `yaml:"namespace"`
	Redis     RedisConfig     `yaml:"redis"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Drag      DragConfig      `yaml:"drag"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// RedisConfig locates the document store.
type RedisConfig struct {
	URL string `yaml:"url"` // redis://[:password@]host:port/db
}

// ReconcileConfig tunes feed coalescing.
type ReconcileConfig struct {
	DebounceMs int `yaml:"debounce_ms"` // Coalescing window for feed deliveries (default 50)
}

// DragConfig tunes gesture handling.
type DragConfig struct {
	ActivationDistance float64 `yaml:"activation_distance"` // Pointer travel before a drag starts (default 8)
}

// StoreConfig tunes the write path.
type StoreConfig struct {
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls when writes start failing fast.
type BreakerConfig struct {
	MaxFailures   uint32 `yaml:"max_failures"`    // Consecutive failures before opening (default 5)
	OpenTimeoutMs int    `yaml:"open_timeout_ms"` // How long the breaker stays open (default 10000)
}

// LogConfig selects level and destination of structured logs.
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error (default info)
	File       string `yaml:"file"`        // Empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotation size when File is set (default 10)
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept (default 3)
}

// Default returns the configuration used when no file exists.
func Default() *SwimlaneConfig {
	c := &SwimlaneConfig{Version: "1.0"}
	c.applyDefaults()
	return c
}

func (c *SwimlaneConfig) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "default"
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Reconcile.DebounceMs == 0 {
		c.Reconcile.DebounceMs = 50
	}
	if c.Drag.ActivationDistance == 0 {
		c.Drag.ActivationDistance = 8
	}
	if c.Store.Breaker.MaxFailures == 0 {
		c.Store.Breaker.MaxFailures = 5
	}
	if c.Store.Breaker.OpenTimeoutMs == 0 {
		c.Store.Breaker.OpenTimeoutMs = 10000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

// Validate applies defaults and performs strict validation on the configuration
func (c *SwimlaneConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if strings.ContainsAny(c.Namespace, ": ") {
		return fmt.Errorf("invalid namespace %q: must not contain ':' or spaces", c.Namespace)
	}

	if _, err := redis.ParseURL(c.Redis.URL); err != nil {
		return fmt.Errorf("invalid redis.url: %w", err)
	}

	if c.Reconcile.DebounceMs < 0 {
		return fmt.Errorf("reconcile.debounce_ms must be >= 0, got %d", c.Reconcile.DebounceMs)
	}

	if c.Drag.ActivationDistance < 0 {
		return fmt.Errorf("drag.activation_distance must be >= 0, got %v", c.Drag.ActivationDistance)
	}

	if c.Store.Breaker.OpenTimeoutMs < 0 {
		return fmt.Errorf("store.breaker.open_timeout_ms must be >= 0, got %d", c.Store.Breaker.OpenTimeoutMs)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_backups must be >= 0")
	}

	return nil
}

// RedisOptions parses the configured Redis URL.
func (c *SwimlaneConfig) RedisOptions() (*redis.Options, error) {
	return redis.ParseURL(c.Redis.URL)
}

// Debounce returns the reconcile window as a duration.
func (c *SwimlaneConfig) Debounce() time.Duration {
	return time.Duration(c.Reconcile.DebounceMs) * time.Millisecond
}

// BreakerOpenTimeout returns the breaker's open period as a duration.
func (c *SwimlaneConfig) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.Store.Breaker.OpenTimeoutMs) * time.Millisecond
}

// Load reads and validates swimlane.yml from the specified path. A missing file
// yields the defaults. Values from the environment, including a .env file in the
// working directory, override the file.
func Load(path string) (*SwimlaneConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &SwimlaneConfig{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		config.Version = "1.0"
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnv(c *SwimlaneConfig) {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}
