// Package scheduler runs registered tasks on a fixed-size pool of isolated
// execution slots fed by a bounded FIFO queue.
//
// Submission is non-blocking: a full queue rejects immediately with a
// capacity error, and an accepted job returns a future that settles exactly
// once. Assignment order is strictly FIFO; completion order across slots is
// unconstrained. A slot that faults (its job body panics) rejects the
// in-flight job, is torn down, and is recreated in place, so pool capacity
// never degrades.
//
// Job bodies run with no direct access to host-side privileged state.
// Read-only artifact queries cross the boundary through the shim protocol:
// typed request messages over a channel, answered by a host goroutine that
// resolves them against the artifact accessor and replies with serialized
// data or an error.
package scheduler
