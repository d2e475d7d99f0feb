package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "scheduler.pool_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidApprovalModes returns the list of valid initial gate modes
func ValidApprovalModes() []string {
	return []string{"autonomous", "full", "every_n"}
}

// ValidStoreBackends returns the list of valid store backends
func ValidStoreBackends() []string {
	return []string{"memory", "file", "redis"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateCircuit()...)
	errors = append(errors, c.validateApproval()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	if c.Scheduler.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.pool_size",
			Value:   c.Scheduler.PoolSize,
			Message: "must be at least 1",
		})
	}
	if c.Scheduler.MaxQueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.max_queue_size",
			Value:   c.Scheduler.MaxQueueSize,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateCircuit() []ValidationError {
	var errors []ValidationError

	if c.Circuit.FailureThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "circuit.failure_threshold",
			Value:   c.Circuit.FailureThreshold,
			Message: "must be at least 1",
		})
	}
	if c.Circuit.ResetMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "circuit.reset_ms",
			Value:   c.Circuit.ResetMs,
			Message: "must be a positive cooldown in milliseconds",
		})
	}
	if c.Circuit.SuccessThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "circuit.success_threshold",
			Value:   c.Circuit.SuccessThreshold,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateApproval() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidApprovalModes(), c.Approval.Mode) {
		errors = append(errors, ValidationError{
			Field:   "approval.mode",
			Value:   c.Approval.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidApprovalModes(), ", ")),
		})
	}
	if c.Approval.EveryNSteps < 1 {
		errors = append(errors, ValidationError{
			Field:   "approval.every_n_steps",
			Value:   c.Approval.EveryNSteps,
			Message: "must be at least 1",
		})
	}
	if c.Approval.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "approval.timeout_seconds",
			Value:   c.Approval.TimeoutSeconds,
			Message: "must be zero (disabled) or positive",
		})
	}

	return errors
}

func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStoreBackends(), c.Store.Backend) {
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Value:   c.Store.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStoreBackends(), ", ")),
		})
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		errors = append(errors, ValidationError{
			Field:   "store.redis_addr",
			Value:   c.Store.RedisAddr,
			Message: "required when the redis backend is selected",
		})
	}
	if c.Store.RedisDB < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.redis_db",
			Value:   c.Store.RedisDB,
			Message: "must be zero or positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
