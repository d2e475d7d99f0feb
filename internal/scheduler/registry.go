package scheduler

import (
	"sort"
	"sync"

	"github.com/fenwick/toolplane/internal/errors"
)

// Registry maps task names to their bodies. Jobs are submitted by name so
// the pool never transports closures across the slot boundary, only plain
// arguments.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewRegistry returns an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskFunc)}
}

// Register binds a task name to its body, replacing any previous binding.
func (r *Registry) Register(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// Lookup returns the body registered under name.
func (r *Registry) Lookup(name string) (TaskFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.tasks[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrTaskNotRegistered, "task %q", name)
	}
	return fn, nil
}

// Names returns the registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
