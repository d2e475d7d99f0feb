package approval

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick/toolplane/internal/errors"
	"github.com/fenwick/toolplane/internal/event"
	"github.com/fenwick/toolplane/internal/logging"
	"github.com/fenwick/toolplane/internal/store"
)

// historyLimit bounds the retained settlement history.
const historyLimit = 50

// moduleEntry pairs a registration with its capability set for O(1) lookup.
type moduleEntry struct {
	reg  ModuleRegistration
	caps map[string]struct{}
}

// Gate decides, per policy mode, whether an action must wait for explicit
// human approval, and manages the pending-approval queue with
// timeout-based resolution. All methods are safe for concurrent use.
//
// Under ModeFull an unregistered module is treated as NOT requiring
// approval. This fail-open behavior is preserved deliberately and is
// flagged for product review; do not change it to fail-closed here.
type Gate struct {
	mu      sync.Mutex
	store   store.Store
	bus     *event.Bus
	log     *logging.Logger
	policy  policyConfig
	modules map[string]*moduleEntry
	pending map[string]*pendingRequest
	stats   Stats
	history []HistoryEntry
}

// New creates a Gate backed by the given store. Persisted policy is
// loaded immediately; a missing or malformed blob falls back to safe
// defaults (autonomous, no overrides, N=5, counter 0). A nil bus
// disables event publishing.
func New(st store.Store, bus *event.Bus, log *logging.Logger) *Gate {
	if log == nil {
		log = logging.NopLogger()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	g := &Gate{
		store:   st,
		bus:     bus,
		log:     log.WithComponent("approval"),
		modules: make(map[string]*moduleEntry),
		pending: make(map[string]*pendingRequest),
	}
	g.policy = g.loadPolicy()
	return g
}

// RegisterModule registers a gate-aware module and its capabilities.
// Re-registration updates capabilities and description but preserves any
// existing per-module mode override.
func (g *Gate) RegisterModule(moduleID string, capabilities []string, description string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	caps := make(map[string]struct{}, len(capabilities))
	sorted := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if _, ok := caps[c]; ok {
			continue
		}
		caps[c] = struct{}{}
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	override := ModeInherit
	if existing, ok := g.modules[moduleID]; ok {
		override = existing.reg.OverrideMode
	} else if persisted, ok := g.policy.Overrides[moduleID]; ok {
		override = persisted
	}

	g.modules[moduleID] = &moduleEntry{
		reg: ModuleRegistration{
			ModuleID:     moduleID,
			Capabilities: sorted,
			Description:  description,
			OverrideMode: override,
		},
		caps: caps,
	}
}

// GetModuleMode returns the effective mode for a module: its override if
// set and not inherit, else the global mode.
func (g *Gate) GetModuleMode(moduleID string) Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moduleModeLocked(moduleID)
}

func (g *Gate) moduleModeLocked(moduleID string) Mode {
	if override, ok := g.policy.Overrides[moduleID]; ok && override != ModeInherit {
		return override
	}
	return g.policy.GlobalMode
}

// SetGlobalMode changes the global policy mode and persists it. An
// invalid mode is rejected with a warning, retaining the prior value.
func (g *Gate) SetGlobalMode(mode Mode) error {
	g.mu.Lock()
	if !mode.ValidGlobal() {
		g.mu.Unlock()
		g.log.Warn("rejecting invalid global mode", "mode", string(mode))
		return errors.NewValidationError("global mode must be autonomous, full, or every_n").
			WithField("mode").WithValue(string(mode))
	}
	g.policy.GlobalMode = mode
	g.savePolicy()
	g.mu.Unlock()

	g.log.Info("global mode changed", "mode", string(mode))
	g.publish(event.NewPolicyModeChangedEvent("global", "", string(mode)))
	return nil
}

// SetModuleOverride sets (or, with ModeInherit, clears) a per-module mode
// override and persists it.
func (g *Gate) SetModuleOverride(moduleID string, mode Mode) error {
	g.mu.Lock()
	if !mode.Valid() {
		g.mu.Unlock()
		g.log.Warn("rejecting invalid module override",
			"module_id", moduleID, "mode", string(mode))
		return errors.NewValidationError("override must be a known gate mode").
			WithField("mode").WithValue(string(mode))
	}

	if mode == ModeInherit {
		delete(g.policy.Overrides, moduleID)
	} else {
		g.policy.Overrides[moduleID] = mode
	}
	if entry, ok := g.modules[moduleID]; ok {
		entry.reg.OverrideMode = mode
	}
	g.savePolicy()
	g.mu.Unlock()

	g.publish(event.NewPolicyModeChangedEvent("module", moduleID, string(mode)))
	return nil
}

// SetEveryN changes the every-N cadence and persists it, resetting the
// step counter. Values below 1 are rejected with a warning, retaining the
// prior value.
func (g *Gate) SetEveryN(n int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n < 1 {
		g.log.Warn("rejecting invalid every-N cadence", "n", n)
		return errors.NewValidationError("every-N cadence must be at least 1").
			WithField("every_n_steps").WithValue(n)
	}
	g.policy.EveryNSteps = n
	g.policy.StepCounter = 0
	g.savePolicy()
	return nil
}

// RequiresApproval reports whether an action by moduleID exercising
// capability must wait for human approval under the current policy.
//
// Under every_n this is a mutating call: it advances the shared step
// counter and returns true exactly when the counter reaches the cadence,
// resetting it to zero.
func (g *Gate) RequiresApproval(moduleID, capability string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.moduleModeLocked(moduleID) {
	case ModeEveryN:
		g.policy.StepCounter++
		required := g.policy.StepCounter >= g.policy.EveryNSteps
		if required {
			g.policy.StepCounter = 0
		}
		g.savePolicy()
		return required
	case ModeFull:
		entry, ok := g.modules[moduleID]
		if !ok {
			// Unregistered modules pass ungated. See the Gate doc
			// comment; flagged for product review.
			return false
		}
		_, declared := entry.caps[capability]
		return declared
	default:
		return false
	}
}

// RequestApproval submits an action for gating. When policy does not
// require approval, OnApprove is invoked synchronously with the payload
// and the empty string is returned. Otherwise the request is queued, the
// timeout (if any) is armed, and the request id is returned.
func (g *Gate) RequestApproval(spec RequestSpec) string {
	required := g.RequiresApproval(spec.ModuleID, spec.Capability)

	g.mu.Lock()
	g.stats.TotalRequests++

	if !required {
		g.stats.AutoApproved++
		g.mu.Unlock()

		if spec.OnApprove != nil {
			spec.OnApprove(spec.Payload)
		}
		g.publish(event.NewApprovalAutoApprovedEvent(spec.ModuleID, spec.Capability))
		return ""
	}

	id := uuid.NewString()
	req := &pendingRequest{
		Request: Request{
			ID:         id,
			ModuleID:   spec.ModuleID,
			Capability: spec.Capability,
			Action:     spec.Action,
			Payload:    spec.Payload,
			CreatedAt:  time.Now(),
		},
		onApprove: spec.OnApprove,
		onReject:  spec.OnReject,
	}
	if spec.Timeout > 0 {
		// Cancellable token: settled requests stop the timer so a
		// late firing cannot double-resolve.
		req.timer = time.AfterFunc(spec.Timeout, func() { g.timeout(id) })
	}
	g.pending[id] = req
	g.mu.Unlock()

	g.log.Info("approval pending",
		"request_id", id, "module_id", spec.ModuleID, "capability", spec.Capability)
	g.publish(event.NewApprovalPendingEvent(id, spec.ModuleID, spec.Capability, spec.Action))
	return id
}

// Approve resolves a pending request as granted, invoking its OnApprove
// callback with data (or the original payload when data is nil). Returns
// false if the id is unknown, making duplicate resolution harmless.
func (g *Gate) Approve(id string, data any) bool {
	return g.resolve(id, OutcomeGranted, data, "")
}

// Reject resolves a pending request as rejected with the given reason.
// Returns false if the id is unknown.
func (g *Gate) Reject(id, reason string) bool {
	return g.resolve(id, OutcomeRejected, nil, reason)
}

// timeout auto-rejects a request whose deadline elapsed. A request
// settled before the timer fired is already gone from the queue, so the
// resolve is a no-op.
func (g *Gate) timeout(id string) {
	g.resolve(id, OutcomeTimedOut, nil, "timeout")
}

// resolve removes a pending request and settles it through the shared
// removal/callback/stats path. Exactly one resolution wins; later
// attempts find nothing and return false.
func (g *Gate) resolve(id string, outcome Outcome, data any, reason string) bool {
	g.mu.Lock()

	req, ok := g.pending[id]
	if !ok {
		g.mu.Unlock()
		return false
	}
	delete(g.pending, id)
	if req.timer != nil {
		req.timer.Stop()
	}

	switch outcome {
	case OutcomeGranted:
		g.stats.Approved++
	case OutcomeRejected:
		g.stats.Rejected++
	case OutcomeTimedOut:
		g.stats.TimedOut++
	}

	g.history = append(g.history, HistoryEntry{
		RequestID:  id,
		ModuleID:   req.ModuleID,
		Capability: req.Capability,
		Action:     req.Action,
		Outcome:    outcome,
		Reason:     reason,
		ResolvedAt: time.Now(),
	})
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}
	g.mu.Unlock()

	// Callbacks and events run outside the mutex to avoid deadlock with
	// handlers that call back into the gate.
	switch outcome {
	case OutcomeGranted:
		if req.onApprove != nil {
			payload := req.Payload
			if data != nil {
				payload = data
			}
			req.onApprove(payload)
		}
		g.publish(event.NewApprovalGrantedEvent(id, req.ModuleID))
	case OutcomeRejected:
		if req.onReject != nil {
			req.onReject(reason)
		}
		g.publish(event.NewApprovalRejectedEvent(id, req.ModuleID, reason))
	case OutcomeTimedOut:
		if req.onReject != nil {
			req.onReject(reason)
		}
		g.log.Warn("approval timed out", "request_id", id, "module_id", req.ModuleID)
		g.publish(event.NewApprovalTimedOutEvent(id, req.ModuleID))
	}
	return true
}

// PendingRequests returns copies of the queued requests, oldest first.
func (g *Gate) PendingRequests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	reqs := make([]Request, 0, len(g.pending))
	for _, req := range g.pending {
		reqs = append(reqs, req.Request)
	}
	sort.Slice(reqs, func(a, b int) bool {
		return reqs[a].CreatedAt.Before(reqs[b].CreatedAt)
	})
	return reqs
}

// State returns a copy of the gate's observable state. Callers cannot
// mutate internal state through it.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	modules := make(map[string]ModuleRegistration, len(g.modules))
	for id, entry := range g.modules {
		reg := entry.reg
		reg.Capabilities = append([]string(nil), entry.reg.Capabilities...)
		modules[id] = reg
	}

	pending := make([]Request, 0, len(g.pending))
	for _, req := range g.pending {
		pending = append(pending, req.Request)
	}
	sort.Slice(pending, func(a, b int) bool {
		return pending[a].CreatedAt.Before(pending[b].CreatedAt)
	})

	return GateState{
		GlobalMode:  g.policy.GlobalMode,
		EveryNSteps: g.policy.EveryNSteps,
		StepCounter: g.policy.StepCounter,
		Modules:     modules,
		Pending:     pending,
		History:     append([]HistoryEntry(nil), g.history...),
	}
}

// GetStats returns a copy of the running statistics.
func (g *Gate) GetStats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := g.stats
	stats.Pending = len(g.pending)
	return stats
}

// publish sends an event if a bus is attached.
func (g *Gate) publish(ev event.Event) {
	if g.bus != nil {
		g.bus.Publish(ev)
	}
}
