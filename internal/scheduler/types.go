package scheduler

import (
	"context"
	"time"
)

// TaskFunc is a job body. It runs inside a slot with no shared mutable
// state; the only bridge back to host state is the read-only shim. The
// context is cancelled when the job's deadline (if any) elapses.
type TaskFunc func(ctx context.Context, shim *Shim, args []any) (any, error)

// SubmitOptions carries per-job execution options.
type SubmitOptions struct {
	// Timeout bounds the job body's context. Zero means no deadline.
	Timeout time.Duration
}

// Job is one unit of queued work. The pool owns a job exclusively from
// submission until its future settles.
type Job struct {
	ID        string
	Task      string
	Args      []any
	Options   SubmitOptions
	CreatedAt time.Time

	fn     TaskFunc
	future *Future
}

// JobSpec describes one job for batch submission.
type JobSpec struct {
	Task    string
	Args    []any
	Options SubmitOptions
}

// Settled is the outcome of one job in a batch. Exactly one of Value and
// Err is meaningful.
type Settled struct {
	JobID string
	Value any
	Err   error
}

// OK reports whether the job succeeded.
func (s Settled) OK() bool {
	return s.Err == nil
}

// PoolStats is a point-in-time snapshot of pool occupancy.
type PoolStats struct {
	PoolSize    int `json:"pool_size"`
	FreeSlots   int `json:"free_slots"`
	BusySlots   int `json:"busy_slots"`
	QueueLength int `json:"queue_length"`
	InFlight    int `json:"in_flight"`
}
