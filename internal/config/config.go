package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete toolplane configuration
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Circuit   CircuitConfig   `mapstructure:"circuit"`
	Approval  ApprovalConfig  `mapstructure:"approval"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SchedulerConfig controls the execution pool dimensions
type SchedulerConfig struct {
	// PoolSize is the number of isolated execution slots (default: 4)
	PoolSize int `mapstructure:"pool_size"`
	// MaxQueueSize bounds the pending-job queue; submissions beyond it
	// are rejected immediately (default: 100)
	MaxQueueSize int `mapstructure:"max_queue_size"`
}

// CircuitConfig controls the per-capability failure isolator
type CircuitConfig struct {
	// FailureThreshold is the consecutive-failure count that trips a
	// circuit open (default: 3)
	FailureThreshold int `mapstructure:"failure_threshold"`
	// ResetMs is the cooldown in milliseconds before an open circuit
	// admits a probing call (default: 30000)
	ResetMs int `mapstructure:"reset_ms"`
	// SuccessThreshold is the number of consecutive probe successes
	// needed to close a half-open circuit (default: 2)
	SuccessThreshold int `mapstructure:"success_threshold"`
}

// ApprovalConfig controls the human approval gate.
// These values seed the persisted policy on first run; after that the
// gate's own persisted state wins.
type ApprovalConfig struct {
	// Mode is the initial global gating mode: "autonomous", "full", or
	// "every_n" (default: "autonomous")
	Mode string `mapstructure:"mode"`
	// EveryNSteps is the cadence for every_n mode (default: 5)
	EveryNSteps int `mapstructure:"every_n_steps"`
	// TimeoutSeconds auto-rejects pending requests after this many
	// seconds, 0 = no timeout (default: 300)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StoreConfig controls where gate policy and other durable state live
type StoreConfig struct {
	// Backend selects the store implementation: "memory", "file", or
	// "redis" (default: "file")
	Backend string `mapstructure:"backend"`
	// Dir is the data directory for the file backend.
	// If empty, defaults to the config directory.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
	// RedisAddr is the host:port of the Redis server (redis backend)
	RedisAddr string `mapstructure:"redis_addr"`
	// RedisDB is the Redis database number (redis backend)
	RedisDB int `mapstructure:"redis_db"`
	// RedisPrefix namespaces all keys written by this process
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// ApprovalTimeout returns the approval timeout as a time.Duration (0 means disabled)
func (a *ApprovalConfig) ApprovalTimeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ResetTimeout returns the circuit cooldown as a time.Duration
func (c *CircuitConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetMs) * time.Millisecond
}

// ResolveDir returns the resolved store directory for the file backend.
// If Dir is empty, it returns the config directory. If Dir starts with ~,
// it expands to the user's home directory.
func (s *StoreConfig) ResolveDir() string {
	if s.Dir == "" {
		return ConfigDir()
	}

	path := s.Dir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			PoolSize:     4,
			MaxQueueSize: 100,
		},
		Circuit: CircuitConfig{
			FailureThreshold: 3,
			ResetMs:          30000,
			SuccessThreshold: 2,
		},
		Approval: ApprovalConfig{
			Mode:           "autonomous",
			EveryNSteps:    5,
			TimeoutSeconds: 300,
		},
		Store: StoreConfig{
			Backend:     "file",
			Dir:         "", // Empty means use the config directory
			RedisAddr:   "localhost:6379",
			RedisDB:     0,
			RedisPrefix: "toolplane",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Scheduler defaults
	viper.SetDefault("scheduler.pool_size", defaults.Scheduler.PoolSize)
	viper.SetDefault("scheduler.max_queue_size", defaults.Scheduler.MaxQueueSize)

	// Circuit defaults
	viper.SetDefault("circuit.failure_threshold", defaults.Circuit.FailureThreshold)
	viper.SetDefault("circuit.reset_ms", defaults.Circuit.ResetMs)
	viper.SetDefault("circuit.success_threshold", defaults.Circuit.SuccessThreshold)

	// Approval defaults
	viper.SetDefault("approval.mode", defaults.Approval.Mode)
	viper.SetDefault("approval.every_n_steps", defaults.Approval.EveryNSteps)
	viper.SetDefault("approval.timeout_seconds", defaults.Approval.TimeoutSeconds)

	// Store defaults
	viper.SetDefault("store.backend", defaults.Store.Backend)
	viper.SetDefault("store.dir", defaults.Store.Dir)
	viper.SetDefault("store.redis_addr", defaults.Store.RedisAddr)
	viper.SetDefault("store.redis_db", defaults.Store.RedisDB)
	viper.SetDefault("store.redis_prefix", defaults.Store.RedisPrefix)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "toolplane")
	}
	// Fall back to ~/.config/toolplane
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolplane"
	}
	return filepath.Join(home, ".config", "toolplane")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
