package circuit

import (
	"sort"
	"sync"
	"time"

	"github.com/fenwick/toolplane/internal/event"
	"github.com/fenwick/toolplane/internal/logging"
)

// State represents the state of one tracked circuit.
type State string

const (
	// StateClosed is the healthy state. Untracked keys are closed.
	StateClosed State = "closed"

	// StateOpen blocks invocation of a capability shown to be
	// persistently failing.
	StateOpen State = "open"

	// StateHalfOpen allows supervised recovery probing after the
	// cooldown has elapsed.
	StateHalfOpen State = "half_open"
)

// Config holds the thresholds governing every circuit in an Isolator.
type Config struct {
	// FailureThreshold is the failure count that trips a circuit open.
	FailureThreshold int

	// ResetTimeout is how long an open circuit blocks before the next
	// IsOpen read flips it to half-open.
	ResetTimeout time.Duration

	// SuccessThreshold is the number of consecutive half-open successes
	// required to fully close (and forget) a circuit.
	SuccessThreshold int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

// Record is a snapshot of one tracked circuit.
type Record struct {
	Key           string    `json:"key"`
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	TrippedAt     time.Time `json:"tripped_at,omitempty"`
	TestSuccesses int       `json:"test_successes"`
	LastError     string    `json:"last_error,omitempty"`
}

// Isolator tracks a circuit per key. Records are created lazily on first
// failure and deleted on full recovery, so a healthy system tracks nothing.
// All methods are safe for concurrent use via an internal mutex.
type Isolator struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*Record
	bus     *event.Bus
	log     *logging.Logger
}

// New creates an Isolator. Zero or negative config fields fall back to
// the defaults. A nil bus disables event publishing.
func New(cfg Config, bus *event.Bus, log *logging.Logger) *Isolator {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if log == nil {
		log = logging.NopLogger()
	}

	return &Isolator{
		cfg:     cfg,
		records: make(map[string]*Record),
		bus:     bus,
		log:     log.WithComponent("circuit"),
	}
}

// IsOpen reports whether calls for key should be rejected. For an open
// circuit whose cooldown has elapsed, it transitions the record to
// half-open as a side effect and returns false, admitting exactly one
// probing call per read.
func (i *Isolator) IsOpen(key string) bool {
	i.mu.Lock()

	rec, ok := i.records[key]
	if !ok {
		i.mu.Unlock()
		return false
	}

	switch rec.State {
	case StateOpen:
		if time.Since(rec.TrippedAt) < i.cfg.ResetTimeout {
			i.mu.Unlock()
			return true
		}
		// Cooldown elapsed: admit a supervised probe.
		rec.State = StateHalfOpen
		rec.TestSuccesses = 0
		failures := rec.FailureCount
		i.mu.Unlock()

		i.log.WithKey(key).Info("circuit half-open, probing recovery")
		i.publish(event.NewCircuitHalfOpenEvent(key, failures))
		return false
	case StateHalfOpen:
		i.mu.Unlock()
		return false
	default:
		i.mu.Unlock()
		return false
	}
}

// RecordFailure records a failed call for key. A closed (or untracked) key
// accumulates failures until the threshold trips the circuit open; a
// half-open key reopens immediately without re-accumulating from zero.
func (i *Isolator) RecordFailure(key string, callErr error) {
	i.mu.Lock()

	rec, ok := i.records[key]
	if !ok {
		rec = &Record{Key: key, State: StateClosed}
		i.records[key] = rec
	}
	if callErr != nil {
		rec.LastError = callErr.Error()
	}

	switch rec.State {
	case StateHalfOpen:
		// Failed probe: straight back to open, probe counter reset.
		rec.State = StateOpen
		rec.TrippedAt = time.Now()
		rec.TestSuccesses = 0
		failures, lastErr := rec.FailureCount, rec.LastError
		i.mu.Unlock()

		i.log.WithKey(key).Warn("recovery probe failed, circuit reopened")
		i.publish(event.NewCircuitReopenedEvent(key, failures, lastErr))
	case StateClosed:
		rec.FailureCount++
		if rec.FailureCount >= i.cfg.FailureThreshold {
			rec.State = StateOpen
			rec.TrippedAt = time.Now()
			failures, lastErr := rec.FailureCount, rec.LastError
			i.mu.Unlock()

			i.log.WithKey(key).Warn("circuit opened", "failures", failures)
			i.publish(event.NewCircuitOpenedEvent(key, failures, lastErr))
			return
		}
		i.mu.Unlock()
	default:
		// Already open: nothing further to trip.
		i.mu.Unlock()
	}
}

// RecordSuccess records a successful call for key. While half-open,
// consecutive successes count toward full recovery; once the threshold is
// reached the record is deleted and the key is healthy again. A success on
// a closed key deletes any stale partial-failure record.
func (i *Isolator) RecordSuccess(key string) {
	i.mu.Lock()

	rec, ok := i.records[key]
	if !ok {
		i.mu.Unlock()
		return
	}

	switch rec.State {
	case StateHalfOpen:
		rec.TestSuccesses++
		if rec.TestSuccesses >= i.cfg.SuccessThreshold {
			delete(i.records, key)
			i.mu.Unlock()

			i.log.WithKey(key).Info("circuit closed, capability recovered")
			i.publish(event.NewCircuitClosedEvent(key))
			return
		}
		i.mu.Unlock()
	case StateClosed:
		delete(i.records, key)
		i.mu.Unlock()
	default:
		// Success reported while open; keep blocking until the
		// cooldown admits a probe.
		i.mu.Unlock()
	}
}

// GetState returns a snapshot of the circuit for key. An untracked key
// reports a closed record with zero counters.
func (i *Isolator) GetState(key string) Record {
	i.mu.Lock()
	defer i.mu.Unlock()

	rec, ok := i.records[key]
	if !ok {
		return Record{Key: key, State: StateClosed}
	}
	return *rec
}

// TrackedKeys returns the keys with live records, sorted for
// deterministic output.
func (i *Isolator) TrackedKeys() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := make([]string, 0, len(i.records))
	for key := range i.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all records, returning every key to healthy.
func (i *Isolator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]*Record)
}

// publish sends an event if a bus is attached. Always called outside the
// mutex to avoid deadlock with bus handlers.
func (i *Isolator) publish(ev event.Event) {
	if i.bus != nil {
		i.bus.Publish(ev)
	}
}
