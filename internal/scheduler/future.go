package scheduler

import (
	"context"
	"sync"
)

// Future is the caller's handle on a submitted job. It settles exactly
// once, with either a value or an error; later settlement attempts are
// silently ignored.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(value any) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

func (f *Future) reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Value returns the settled value, or nil while the future is pending.
func (f *Future) Value() any {
	select {
	case <-f.done:
		return f.value
	default:
		return nil
	}
}

// Err returns the settlement error, or nil while pending or on success.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or the context is cancelled.
// Cancellation abandons the wait, not the job.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
