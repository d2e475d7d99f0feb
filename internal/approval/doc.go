// Package approval implements the policy-driven gate that decides whether a
// side-effecting agent action needs explicit human sign-off before it runs.
//
// Modules register the capabilities they expose; the gate's policy mode
// decides per call whether to queue an approval request for a human or let
// the action through immediately. Pending requests resolve exactly once by
// approval, rejection, or timeout.
//
// Policy configuration (global mode, per-module overrides, the every-N
// cadence, and the shared step counter) is written to a persistent
// key-value store on every change and reloaded at construction, so gating
// behavior survives process restarts. A missing or malformed persisted
// blob falls back to safe defaults rather than failing initialization.
package approval
