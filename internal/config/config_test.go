package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default scheduler config
	if cfg.Scheduler.PoolSize != 4 {
		t.Errorf("Scheduler.PoolSize = %d, want 4", cfg.Scheduler.PoolSize)
	}
	if cfg.Scheduler.MaxQueueSize != 100 {
		t.Errorf("Scheduler.MaxQueueSize = %d, want 100", cfg.Scheduler.MaxQueueSize)
	}

	// Verify default circuit config
	if cfg.Circuit.FailureThreshold != 3 {
		t.Errorf("Circuit.FailureThreshold = %d, want 3", cfg.Circuit.FailureThreshold)
	}
	if cfg.Circuit.ResetMs != 30000 {
		t.Errorf("Circuit.ResetMs = %d, want 30000", cfg.Circuit.ResetMs)
	}
	if cfg.Circuit.SuccessThreshold != 2 {
		t.Errorf("Circuit.SuccessThreshold = %d, want 2", cfg.Circuit.SuccessThreshold)
	}

	// Verify default approval config
	if cfg.Approval.Mode != "autonomous" {
		t.Errorf("Approval.Mode = %q, want autonomous", cfg.Approval.Mode)
	}
	if cfg.Approval.EveryNSteps != 5 {
		t.Errorf("Approval.EveryNSteps = %d, want 5", cfg.Approval.EveryNSteps)
	}
	if cfg.Approval.TimeoutSeconds != 300 {
		t.Errorf("Approval.TimeoutSeconds = %d, want 300", cfg.Approval.TimeoutSeconds)
	}

	// Verify default store config
	if cfg.Store.Backend != "file" {
		t.Errorf("Store.Backend = %q, want file", cfg.Store.Backend)
	}
	if cfg.Store.RedisAddr != "localhost:6379" {
		t.Errorf("Store.RedisAddr = %q, want localhost:6379", cfg.Store.RedisAddr)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	if errs := Default().Validate(); len(errs) > 0 {
		t.Errorf("default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Circuit.ResetTimeout(); got != 30*time.Second {
		t.Errorf("ResetTimeout = %s, want 30s", got)
	}
	if got := cfg.Approval.ApprovalTimeout(); got != 5*time.Minute {
		t.Errorf("ApprovalTimeout = %s, want 5m", got)
	}

	cfg.Approval.TimeoutSeconds = 0
	if got := cfg.Approval.ApprovalTimeout(); got != 0 {
		t.Errorf("ApprovalTimeout = %s, want 0 (disabled)", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero pool size", func(c *Config) { c.Scheduler.PoolSize = 0 }, "scheduler.pool_size"},
		{"zero queue size", func(c *Config) { c.Scheduler.MaxQueueSize = 0 }, "scheduler.max_queue_size"},
		{"zero failure threshold", func(c *Config) { c.Circuit.FailureThreshold = 0 }, "circuit.failure_threshold"},
		{"negative reset", func(c *Config) { c.Circuit.ResetMs = -1 }, "circuit.reset_ms"},
		{"zero success threshold", func(c *Config) { c.Circuit.SuccessThreshold = 0 }, "circuit.success_threshold"},
		{"unknown approval mode", func(c *Config) { c.Approval.Mode = "chaotic" }, "approval.mode"},
		{"inherit as initial mode", func(c *Config) { c.Approval.Mode = "inherit" }, "approval.mode"},
		{"zero every-N", func(c *Config) { c.Approval.EveryNSteps = 0 }, "approval.every_n_steps"},
		{"negative timeout", func(c *Config) { c.Approval.TimeoutSeconds = -1 }, "approval.timeout_seconds"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddr = "" }, "store.redis_addr"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s, got: %v", tt.field, ValidationErrors(errs))
			}
		})
	}
}

func TestValidationErrorsFormatting(t *testing.T) {
	errs := ValidationErrors{
		{Field: "scheduler.pool_size", Value: 0, Message: "must be at least 1"},
		{Field: "logging.level", Value: "verbose", Message: "must be one of: debug, info, warn, error"},
	}

	msg := errs.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	if len(ValidationErrors{}.Error()) != 0 {
		t.Error("empty ValidationErrors should format to empty string")
	}
	single := ValidationErrors{errs[0]}
	if single.Error() != errs[0].Error() {
		t.Error("single-error collection should format as the error itself")
	}
}

func TestResolveDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"empty uses config dir", "", ConfigDir()},
		{"absolute passes through", "/var/lib/toolplane", "/var/lib/toolplane"},
		{"tilde expands", "~/state", filepath.Join(home, "state")},
		{"bare tilde", "~", home},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StoreConfig{Dir: tt.dir}
			if got := s.ResolveDir(); got != tt.want {
				t.Errorf("ResolveDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	if got := ConfigDir(); got != "/tmp/xdg-test/toolplane" {
		t.Errorf("ConfigDir() = %q, want /tmp/xdg-test/toolplane", got)
	}
}
