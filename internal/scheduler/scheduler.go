package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick/toolplane/internal/artifact"
	"github.com/fenwick/toolplane/internal/errors"
	"github.com/fenwick/toolplane/internal/event"
	"github.com/fenwick/toolplane/internal/logging"
)

// Config holds the pool dimensions.
type Config struct {
	// PoolSize is the number of execution slots.
	PoolSize int

	// MaxQueueSize bounds the pending-job queue. Submissions beyond it
	// fail fast with a capacity error.
	MaxQueueSize int
}

// DefaultConfig returns the standard pool dimensions.
func DefaultConfig() Config {
	return Config{
		PoolSize:     4,
		MaxQueueSize: 100,
	}
}

// slot is one isolated execution lane. Its goroutine pulls jobs from a
// single-slot channel, so a free slot always accepts a handoff without
// blocking the dispatcher.
type slot struct {
	id   int
	jobs chan *Job
	quit chan struct{}
}

func newSlot(id int) *slot {
	return &slot{
		id:   id,
		jobs: make(chan *Job, 1),
		quit: make(chan struct{}),
	}
}

// Pool schedules registered tasks across a fixed set of slots. Queue and
// slot bookkeeping is coordinated under one mutex; only job bodies run in
// parallel.
type Pool struct {
	mu         sync.Mutex
	cfg        Config
	registry   *Registry
	bus        *event.Bus
	log        *logging.Logger
	host       *shimHost
	slots      map[int]*slot
	free       map[int]bool
	busy       map[int]*Job
	queue      []*Job
	terminated bool
}

// New creates a pool with cfg.PoolSize running slots. Zero config fields
// take defaults. The accessor backs the shim protocol and may be nil when
// jobs make no privileged queries. A nil bus disables event publishing.
func New(cfg Config, registry *Registry, accessor artifact.Accessor, bus *event.Bus, log *logging.Logger) *Pool {
	def := DefaultConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if log == nil {
		log = logging.NopLogger()
	}

	p := &Pool{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		log:      log.WithComponent("scheduler"),
		host:     newShimHost(accessor),
		slots:    make(map[int]*slot, cfg.PoolSize),
		free:     make(map[int]bool, cfg.PoolSize),
		busy:     make(map[int]*Job),
	}

	go p.host.run()
	for id := 0; id < cfg.PoolSize; id++ {
		s := newSlot(id)
		p.slots[id] = s
		p.free[id] = true
		go p.runSlot(s)
	}
	return p
}

// Registry returns the pool's task registry.
func (p *Pool) Registry() *Registry {
	return p.registry
}

// Submit enqueues one job by task name and returns its future. It never
// blocks: a full queue fails with a capacity error and a terminated pool
// with ErrPoolTerminated, both synchronously.
func (p *Pool) Submit(task string, args []any, opts SubmitOptions) (*Future, error) {
	fn, err := p.registry.Lookup(task)
	if err != nil {
		return nil, err
	}
	return p.submit(task, fn, args, opts)
}

// SubmitFunc enqueues one job with an explicit body, bypassing the
// registry. Same non-blocking contract as Submit.
func (p *Pool) SubmitFunc(fn TaskFunc, args []any, opts SubmitOptions) (*Future, error) {
	if fn == nil {
		return nil, errors.NewValidationError("job body must not be nil")
	}
	return p.submit("", fn, args, opts)
}

func (p *Pool) submit(task string, fn TaskFunc, args []any, opts SubmitOptions) (*Future, error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil, errors.ErrPoolTerminated
	}
	if len(p.queue) >= p.cfg.MaxQueueSize {
		p.mu.Unlock()
		return nil, errors.NewCapacityError("job queue", p.cfg.MaxQueueSize)
	}

	job := &Job{
		ID:        uuid.NewString(),
		Task:      task,
		Args:      args,
		Options:   opts,
		CreatedAt: time.Now(),
		fn:        fn,
		future:    newFuture(),
	}
	p.queue = append(p.queue, job)
	queueLen := len(p.queue)
	dispatched := p.dispatchLocked()
	p.mu.Unlock()

	p.publish(event.NewJobQueuedEvent(job.ID, queueLen))
	for _, ev := range dispatched {
		p.publish(ev)
	}
	return job.future, nil
}

// dispatchLocked assigns queued jobs to free slots, oldest job first,
// until one side runs out. Caller holds the mutex and publishes the
// returned events after unlocking.
func (p *Pool) dispatchLocked() []event.Event {
	var evs []event.Event
	for len(p.queue) > 0 && len(p.free) > 0 {
		job := p.queue[0]
		p.queue = p.queue[1:]

		slotID := -1
		for id := range p.free {
			if slotID < 0 || id < slotID {
				slotID = id
			}
		}
		delete(p.free, slotID)
		p.busy[slotID] = job

		// A free slot's channel is empty, so this never blocks.
		p.slots[slotID].jobs <- job
		evs = append(evs, event.NewJobDispatchedEvent(job.ID, slotID))
	}
	return evs
}

// runSlot is one slot's goroutine. It exits on pool termination or on a
// slot fault, in which case a replacement goroutine takes over the id.
func (p *Pool) runSlot(s *slot) {
	for {
		select {
		case <-s.quit:
			return
		case job := <-s.jobs:
			if p.execute(s, job) {
				return
			}
		}
	}
}

// execute runs one job body and settles its future. It reports true when
// the slot faulted and must be recreated.
func (p *Pool) execute(s *slot, job *Job) (faulted bool) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			faulted = true
			fault := errors.NewSchedulerError(fmt.Sprintf("slot fault: %v", r), errors.ErrSlotFault).
				WithJobID(job.ID).
				WithSlotID(s.id)
			job.future.reject(fault)
			p.onSlotFault(s, job, fault)
		}
	}()

	ctx := context.Background()
	if job.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Options.Timeout)
		defer cancel()
	}

	shim := &Shim{requests: p.host.requests, quit: p.host.quit}
	value, err := job.fn(ctx, shim, job.Args)
	if err != nil {
		job.future.reject(err)
	} else {
		job.future.resolve(value)
	}
	p.onJobSettled(s, job, err, time.Since(started))
	return false
}

// onJobSettled returns the slot to the free pool and re-runs dispatch.
func (p *Pool) onJobSettled(s *slot, job *Job, jobErr error, took time.Duration) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	delete(p.busy, s.id)
	p.free[s.id] = true
	dispatched := p.dispatchLocked()
	p.mu.Unlock()

	if jobErr != nil {
		p.log.Warn("job failed", "job_id", job.ID, "task", job.Task,
			"slot_id", s.id, "error", jobErr)
		p.publish(event.NewJobFailedEvent(job.ID, s.id, jobErr.Error()))
	} else {
		p.publish(event.NewJobCompletedEvent(job.ID, s.id, took))
	}
	for _, ev := range dispatched {
		p.publish(ev)
	}
}

// onSlotFault tears the faulted slot down and stands up a replacement
// under the same id, so capacity never degrades. The faulted goroutine
// has already settled the in-flight job and is exiting.
func (p *Pool) onSlotFault(s *slot, job *Job, fault error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	close(s.quit)
	replacement := newSlot(s.id)
	p.slots[s.id] = replacement
	delete(p.busy, s.id)
	p.free[s.id] = true
	go p.runSlot(replacement)
	dispatched := p.dispatchLocked()
	p.mu.Unlock()

	p.log.Error("slot faulted, recreated", "slot_id", s.id, "job_id", job.ID, "error", fault)
	p.publish(event.NewJobFailedEvent(job.ID, s.id, fault.Error()))
	p.publish(event.NewSlotRecreatedEvent(s.id, fault.Error()))
	for _, ev := range dispatched {
		p.publish(ev)
	}
}

// GetStats returns a snapshot of pool occupancy. Pure read.
func (p *Pool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		PoolSize:    p.cfg.PoolSize,
		FreeSlots:   len(p.free),
		BusySlots:   len(p.busy),
		QueueLength: len(p.queue),
		InFlight:    len(p.busy),
	}
}

// Terminate destroys every slot, clears the queue, and rejects every
// queued or in-flight job exactly once with ErrPoolTerminated. Running
// job bodies are not interrupted, but their settlements are discarded.
// Terminate is idempotent.
func (p *Pool) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true

	rejected := make([]*Job, 0, len(p.queue)+len(p.busy))
	rejected = append(rejected, p.queue...)
	for _, job := range p.busy {
		rejected = append(rejected, job)
	}
	p.queue = nil
	p.busy = make(map[int]*Job)
	p.free = make(map[int]bool)
	for _, s := range p.slots {
		close(s.quit)
	}
	p.slots = make(map[int]*slot)
	p.mu.Unlock()

	p.host.stop()
	for _, job := range rejected {
		job.future.reject(errors.ErrPoolTerminated)
	}

	p.log.Info("pool terminated", "rejected_jobs", len(rejected))
	p.publish(event.NewPoolTerminatedEvent(len(rejected)))
}

// publish sends an event if a bus is attached.
func (p *Pool) publish(ev event.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}
