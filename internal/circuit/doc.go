// Package circuit implements per-key failure isolation for agent
// capabilities. Each key (a tool or service name) gets an independent
// three-state circuit: closed while healthy, open after repeated failures,
// and half-open while recovery is probed under supervision.
//
// There are no background timers. The open-to-half-open transition is
// evaluated lazily inside IsOpen, exactly at the moment a caller would
// otherwise be blocked, so IsOpen is an evaluate-and-transition operation
// rather than a pure query.
package circuit
