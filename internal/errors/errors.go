// Package errors provides centralized error definitions and error handling
// utilities for the toolplane codebase. It defines domain-specific errors for
// the scheduler, circuit, and approval subsystems, semantic error types, and
// classification helpers.
//
// Creating errors:
//
//	err := errors.NewSchedulerError("dispatch failed", errors.ErrQueueFull).WithJobID("job-1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrQueueFull) { ... }
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Scheduler-related sentinel errors
var (
	// ErrQueueFull indicates the job queue is at capacity and the
	// submission was rejected without blocking.
	ErrQueueFull = New("job queue is full")
	// ErrPoolTerminated indicates the pool has been terminated and can
	// accept no further work.
	ErrPoolTerminated = New("pool terminated")
	// ErrSlotFault indicates an execution slot crashed independently of
	// any specific job failure.
	ErrSlotFault = New("execution slot fault")
	// ErrTaskNotRegistered indicates a named task descriptor could not be
	// resolved through the registry.
	ErrTaskNotRegistered = New("task not registered")
	// ErrUnknownShimRequest indicates a job issued a shim request type the
	// host does not resolve.
	ErrUnknownShimRequest = New("unknown shim request type")
)

// Circuit-related sentinel errors
var (
	// ErrCircuitOpen indicates a capability is blocked by an open circuit.
	ErrCircuitOpen = New("circuit open")
)

// Approval-related sentinel errors
var (
	// ErrApprovalNotFound indicates an approval request id is unknown
	// (already settled, timed out, or never issued).
	ErrApprovalNotFound = New("approval request not found")
	// ErrApprovalTimeout indicates an approval request was auto-rejected
	// because no decision arrived before its deadline.
	ErrApprovalTimeout = New("approval request timed out")
	// ErrInvalidMode indicates an unrecognized gate policy mode.
	ErrInvalidMode = New("invalid gate mode")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlaneError is the base interface for all toolplane errors. It extends the
// standard error interface with classification methods.
type PlaneError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the
	// operation may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SchedulerError represents errors from the task scheduler.
//
// Example:
//
//	err := errors.NewSchedulerError("submit failed", errors.ErrQueueFull).WithJobID("job-7")
type SchedulerError struct {
	baseError
	JobID  string
	SlotID int
}

// NewSchedulerError creates a new SchedulerError. SlotID defaults to -1 (not set).
func NewSchedulerError(message string, cause error) *SchedulerError {
	return &SchedulerError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
		SlotID: -1,
	}
}

// WithJobID adds a job ID to the error context.
func (e *SchedulerError) WithJobID(id string) *SchedulerError {
	e.JobID = id
	return e
}

// WithSlotID adds a slot ID to the error context.
func (e *SchedulerError) WithSlotID(id int) *SchedulerError {
	e.SlotID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SchedulerError) WithRetryable(r bool) *SchedulerError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SchedulerError) Error() string {
	var parts []string
	if e.JobID != "" {
		parts = append(parts, fmt.Sprintf("job=%s", e.JobID))
	}
	if e.SlotID >= 0 {
		parts = append(parts, fmt.Sprintf("slot=%d", e.SlotID))
	}

	prefix := "scheduler error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("scheduler error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SchedulerError) Is(target error) bool {
	if _, ok := target.(*SchedulerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CircuitError represents errors surfaced by the failure isolator, most
// commonly a call rejected because the circuit for its key is open.
type CircuitError struct {
	baseError
	Key string
}

// NewCircuitError creates a new CircuitError.
func NewCircuitError(message string, cause error) *CircuitError {
	return &CircuitError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true, // open circuits recover after the cooldown
		},
	}
}

// WithKey adds the circuit key to the error context.
func (e *CircuitError) WithKey(key string) *CircuitError {
	e.Key = key
	return e
}

// Error returns the formatted error message.
func (e *CircuitError) Error() string {
	prefix := "circuit error"
	if e.Key != "" {
		prefix = fmt.Sprintf("circuit error [key=%s]", e.Key)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CircuitError) Is(target error) bool {
	if _, ok := target.(*CircuitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ApprovalError represents errors from the approval gate.
type ApprovalError struct {
	baseError
	RequestID string
	ModuleID  string
}

// NewApprovalError creates a new ApprovalError.
func NewApprovalError(message string, cause error) *ApprovalError {
	return &ApprovalError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityWarning,
		},
	}
}

// WithRequestID adds an approval request ID to the error context.
func (e *ApprovalError) WithRequestID(id string) *ApprovalError {
	e.RequestID = id
	return e
}

// WithModuleID adds a module ID to the error context.
func (e *ApprovalError) WithModuleID(id string) *ApprovalError {
	e.ModuleID = id
	return e
}

// Error returns the formatted error message.
func (e *ApprovalError) Error() string {
	var parts []string
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("request=%s", e.RequestID))
	}
	if e.ModuleID != "" {
		parts = append(parts, fmt.Sprintf("module=%s", e.ModuleID))
	}

	prefix := "approval error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("approval error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ApprovalError) Is(target error) bool {
	if _, ok := target.(*ApprovalError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			severity:  SeverityWarning,
			retryable: true, // timeouts are generally retryable
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// CapacityError represents a bounded resource rejecting new work. The
// scheduler raises it synchronously when the job queue is full.
type CapacityError struct {
	baseError
	Resource string
	Limit    int
}

// NewCapacityError creates a new CapacityError.
func NewCapacityError(resource string, limit int) *CapacityError {
	return &CapacityError{
		baseError: baseError{
			message:   fmt.Sprintf("%s at capacity (limit %d)", resource, limit),
			cause:     ErrQueueFull,
			severity:  SeverityWarning,
			retryable: true, // capacity frees up as jobs settle
		},
		Resource: resource,
		Limit:    limit,
	}
}

// Is checks if this error matches the target.
func (e *CapacityError) Is(target error) bool {
	if _, ok := target.(*CapacityError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var planeErr PlaneError
	if As(err, &planeErr) {
		return planeErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrQueueFull) || Is(err, ErrCircuitOpen)
}

// GetSeverity returns the severity level of the error. Errors that do not
// implement PlaneError default to SeverityError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var planeErr PlaneError
	if As(err, &planeErr) {
		return planeErr.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
