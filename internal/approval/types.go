package approval

import (
	"time"
)

// Mode is a gate policy mode.
type Mode string

const (
	// ModeAutonomous never gates: every action is auto-approved.
	ModeAutonomous Mode = "autonomous"

	// ModeFull gates every registered capability.
	ModeFull Mode = "full"

	// ModeEveryN gates every Nth qualifying call regardless of
	// registration, via a shared step counter.
	ModeEveryN Mode = "every_n"

	// ModeInherit defers to the global mode. Only meaningful as a
	// per-module override value.
	ModeInherit Mode = "inherit"
)

// Valid reports whether m is a recognized mode. ModeInherit is valid only
// where an override is expected; use ValidGlobal for the global slot.
func (m Mode) Valid() bool {
	switch m {
	case ModeAutonomous, ModeFull, ModeEveryN, ModeInherit:
		return true
	}
	return false
}

// ValidGlobal reports whether m may be set as the global mode.
func (m Mode) ValidGlobal() bool {
	return m.Valid() && m != ModeInherit
}

// ModuleRegistration describes a gate-aware module and its declared
// capabilities.
type ModuleRegistration struct {
	ModuleID     string   `json:"module_id"`
	Capabilities []string `json:"capabilities"`
	Description  string   `json:"description"`

	// OverrideMode is the per-module policy override, or ModeInherit
	// when the module follows the global mode.
	OverrideMode Mode `json:"override_mode"`
}

// ApproveFunc is invoked exactly once when a request is approved.
// It receives the request payload (or the data passed to Approve).
type ApproveFunc func(payload any)

// RejectFunc is invoked exactly once when a request is rejected or
// times out. It receives the rejection reason.
type RejectFunc func(reason string)

// RequestSpec describes one action submitted for gating.
type RequestSpec struct {
	ModuleID   string
	Capability string

	// Action is a human-readable description shown to the approver.
	Action string

	// Payload is the plain-data argument forwarded to OnApprove.
	Payload any

	OnApprove ApproveFunc
	OnReject  RejectFunc

	// Timeout, when positive, auto-rejects the request if no decision
	// arrives in time.
	Timeout time.Duration
}

// Request is a snapshot of one pending approval request. Copies returned
// by the gate carry no callbacks or timer state.
type Request struct {
	ID         string    `json:"id"`
	ModuleID   string    `json:"module_id"`
	Capability string    `json:"capability"`
	Action     string    `json:"action"`
	Payload    any       `json:"payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// pendingRequest is the gate's internal record of a queued request,
// pairing the snapshot with its callbacks and cancellable timeout token.
type pendingRequest struct {
	Request
	onApprove ApproveFunc
	onReject  RejectFunc
	timer     *time.Timer
}

// Outcome classifies how a request settled.
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimedOut Outcome = "timed_out"
)

// HistoryEntry records one settled request. The gate keeps a bounded
// window of the most recent entries.
type HistoryEntry struct {
	RequestID  string    `json:"request_id"`
	ModuleID   string    `json:"module_id"`
	Capability string    `json:"capability"`
	Action     string    `json:"action"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Stats holds the gate's running counters.
type Stats struct {
	TotalRequests int `json:"total_requests"`
	AutoApproved  int `json:"auto_approved"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	TimedOut      int `json:"timed_out"`
	Pending       int `json:"pending"`
}

// GateState is a copy of the gate's observable state. Mutating it has no
// effect on the gate.
type GateState struct {
	GlobalMode  Mode                          `json:"global_mode"`
	EveryNSteps int                           `json:"every_n_steps"`
	StepCounter int                           `json:"step_counter"`
	Modules     map[string]ModuleRegistration `json:"modules"`
	Pending     []Request                     `json:"pending"`
	History     []HistoryEntry                `json:"history"`
}
