package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "job.dispatched", "circuit.opened").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Job Lifecycle Events
// -----------------------------------------------------------------------------

// JobQueuedEvent is emitted when a job is accepted into the scheduler queue.
type JobQueuedEvent struct {
	baseEvent
	JobID       string // Unique identifier for the job
	QueueLength int    // Queue length after the job was enqueued
}

// NewJobQueuedEvent creates a JobQueuedEvent.
func NewJobQueuedEvent(jobID string, queueLength int) JobQueuedEvent {
	return JobQueuedEvent{
		baseEvent:   newBaseEvent("job.queued"),
		JobID:       jobID,
		QueueLength: queueLength,
	}
}

// JobDispatchedEvent is emitted when a job is assigned to a free slot.
type JobDispatchedEvent struct {
	baseEvent
	JobID  string // Job that was dispatched
	SlotID int    // Slot the job was assigned to
}

// NewJobDispatchedEvent creates a JobDispatchedEvent.
func NewJobDispatchedEvent(jobID string, slotID int) JobDispatchedEvent {
	return JobDispatchedEvent{
		baseEvent: newBaseEvent("job.dispatched"),
		JobID:     jobID,
		SlotID:    slotID,
	}
}

// JobCompletedEvent is emitted when a job settles successfully.
type JobCompletedEvent struct {
	baseEvent
	JobID    string        // Job that completed
	SlotID   int           // Slot the job ran on
	Duration time.Duration // Wall time from dispatch to settlement
}

// NewJobCompletedEvent creates a JobCompletedEvent.
func NewJobCompletedEvent(jobID string, slotID int, duration time.Duration) JobCompletedEvent {
	return JobCompletedEvent{
		baseEvent: newBaseEvent("job.completed"),
		JobID:     jobID,
		SlotID:    slotID,
		Duration:  duration,
	}
}

// JobFailedEvent is emitted when a job settles with an error.
type JobFailedEvent struct {
	baseEvent
	JobID  string // Job that failed
	SlotID int    // Slot the job ran on (-1 if it never dispatched)
	Error  string // Error message from the settlement
}

// NewJobFailedEvent creates a JobFailedEvent.
func NewJobFailedEvent(jobID string, slotID int, errMsg string) JobFailedEvent {
	return JobFailedEvent{
		baseEvent: newBaseEvent("job.failed"),
		JobID:     jobID,
		SlotID:    slotID,
		Error:     errMsg,
	}
}

// SlotRecreatedEvent is emitted when a crashed slot is torn down and
// replaced in the pool.
type SlotRecreatedEvent struct {
	baseEvent
	SlotID int    // Slot that was recreated
	Reason string // Fault that destroyed the previous incarnation
}

// NewSlotRecreatedEvent creates a SlotRecreatedEvent.
func NewSlotRecreatedEvent(slotID int, reason string) SlotRecreatedEvent {
	return SlotRecreatedEvent{
		baseEvent: newBaseEvent("slot.recreated"),
		SlotID:    slotID,
		Reason:    reason,
	}
}

// PoolTerminatedEvent is emitted when the scheduler pool is terminated.
type PoolTerminatedEvent struct {
	baseEvent
	RejectedJobs int // Number of queued or running jobs rejected by termination
}

// NewPoolTerminatedEvent creates a PoolTerminatedEvent.
func NewPoolTerminatedEvent(rejectedJobs int) PoolTerminatedEvent {
	return PoolTerminatedEvent{
		baseEvent:    newBaseEvent("pool.terminated"),
		RejectedJobs: rejectedJobs,
	}
}

// -----------------------------------------------------------------------------
// Circuit Events
// -----------------------------------------------------------------------------

// CircuitStateChangedEvent is emitted on every circuit transition.
type CircuitStateChangedEvent struct {
	baseEvent
	Key          string // Circuit key (tool or service name)
	State        string // New state: "open", "half_open", "closed"
	FailureCount int    // Accumulated failures at transition time
	LastError    string // Most recent recorded error, if any
}

func newCircuitEvent(eventType, key, state string, failureCount int, lastError string) CircuitStateChangedEvent {
	return CircuitStateChangedEvent{
		baseEvent:    newBaseEvent(eventType),
		Key:          key,
		State:        state,
		FailureCount: failureCount,
		LastError:    lastError,
	}
}

// NewCircuitOpenedEvent creates the event for a circuit tripping open.
func NewCircuitOpenedEvent(key string, failureCount int, lastError string) CircuitStateChangedEvent {
	return newCircuitEvent("circuit.opened", key, "open", failureCount, lastError)
}

// NewCircuitHalfOpenEvent creates the event for a circuit entering its
// supervised recovery probe.
func NewCircuitHalfOpenEvent(key string, failureCount int) CircuitStateChangedEvent {
	return newCircuitEvent("circuit.half_open", key, "half_open", failureCount, "")
}

// NewCircuitClosedEvent creates the event for a circuit fully recovering.
func NewCircuitClosedEvent(key string) CircuitStateChangedEvent {
	return newCircuitEvent("circuit.closed", key, "closed", 0, "")
}

// NewCircuitReopenedEvent creates the event for a failed recovery probe.
func NewCircuitReopenedEvent(key string, failureCount int, lastError string) CircuitStateChangedEvent {
	return newCircuitEvent("circuit.reopened", key, "open", failureCount, lastError)
}

// -----------------------------------------------------------------------------
// Approval Events
// -----------------------------------------------------------------------------

// ApprovalPendingEvent is emitted when a request is queued for human review.
type ApprovalPendingEvent struct {
	baseEvent
	RequestID  string // Unique identifier for the approval request
	ModuleID   string // Module requesting the action
	Capability string // Gated capability being exercised
	Action     string // Human-readable action description
}

// NewApprovalPendingEvent creates an ApprovalPendingEvent.
func NewApprovalPendingEvent(requestID, moduleID, capability, action string) ApprovalPendingEvent {
	return ApprovalPendingEvent{
		baseEvent:  newBaseEvent("approval.pending"),
		RequestID:  requestID,
		ModuleID:   moduleID,
		Capability: capability,
		Action:     action,
	}
}

// ApprovalResolvedEvent is emitted when a pending request settles.
type ApprovalResolvedEvent struct {
	baseEvent
	RequestID string // Request that settled
	ModuleID  string // Module that requested the action
	Outcome   string // "granted", "rejected", or "timed_out"
	Reason    string // Rejection reason, if any
}

func newApprovalResolvedEvent(eventType, requestID, moduleID, outcome, reason string) ApprovalResolvedEvent {
	return ApprovalResolvedEvent{
		baseEvent: newBaseEvent(eventType),
		RequestID: requestID,
		ModuleID:  moduleID,
		Outcome:   outcome,
		Reason:    reason,
	}
}

// NewApprovalGrantedEvent creates the event for an approved request.
func NewApprovalGrantedEvent(requestID, moduleID string) ApprovalResolvedEvent {
	return newApprovalResolvedEvent("approval.granted", requestID, moduleID, "granted", "")
}

// NewApprovalRejectedEvent creates the event for a rejected request.
func NewApprovalRejectedEvent(requestID, moduleID, reason string) ApprovalResolvedEvent {
	return newApprovalResolvedEvent("approval.rejected", requestID, moduleID, "rejected", reason)
}

// NewApprovalTimedOutEvent creates the event for a request auto-rejected on
// deadline.
func NewApprovalTimedOutEvent(requestID, moduleID string) ApprovalResolvedEvent {
	return newApprovalResolvedEvent("approval.timed_out", requestID, moduleID, "timed_out", "timeout")
}

// ApprovalAutoApprovedEvent is emitted on the fast path when policy does not
// require gating and the action proceeds immediately.
type ApprovalAutoApprovedEvent struct {
	baseEvent
	ModuleID   string // Module requesting the action
	Capability string // Capability that was exercised ungated
}

// NewApprovalAutoApprovedEvent creates an ApprovalAutoApprovedEvent.
func NewApprovalAutoApprovedEvent(moduleID, capability string) ApprovalAutoApprovedEvent {
	return ApprovalAutoApprovedEvent{
		baseEvent:  newBaseEvent("approval.auto_approved"),
		ModuleID:   moduleID,
		Capability: capability,
	}
}

// PolicyModeChangedEvent is emitted when the gate policy configuration changes.
type PolicyModeChangedEvent struct {
	baseEvent
	Scope    string // "global" or "module"
	ModuleID string // Module the override applies to (empty for global)
	Mode     string // New mode value
}

// NewPolicyModeChangedEvent creates a PolicyModeChangedEvent.
func NewPolicyModeChangedEvent(scope, moduleID, mode string) PolicyModeChangedEvent {
	return PolicyModeChangedEvent{
		baseEvent: newBaseEvent("policy.mode_changed"),
		Scope:     scope,
		ModuleID:  moduleID,
		Mode:      mode,
	}
}
