package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwick/toolplane/internal/approval"
	"github.com/fenwick/toolplane/internal/artifact"
	"github.com/fenwick/toolplane/internal/circuit"
	"github.com/fenwick/toolplane/internal/config"
	"github.com/fenwick/toolplane/internal/event"
	"github.com/fenwick/toolplane/internal/scheduler"
	"github.com/fenwick/toolplane/internal/store"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a self-contained control-plane walkthrough",
	Long: `Run a short demonstration of the full control flow: each action asks
the approval gate, consults the failure isolator, executes through the
scheduler pool, and reports its outcome back to the isolator.

The demo uses an in-memory store and a seeded artifact accessor, so it
has no effect on persisted state.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	bus := event.NewBus()
	bus.SubscribeAll(func(e event.Event) {
		fmt.Printf("  event: %s\n", e.EventType())
	})

	gate, err := newGate(cfg, store.NewMemoryStore(), bus, nil)
	if err != nil {
		return err
	}
	gate.RegisterModule("web_search", []string{"fetch"}, "external search")
	gate.RegisterModule("artifacts", []string{"read"}, "artifact reads")

	iso := circuit.New(circuit.Config{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		ResetTimeout:     500 * time.Millisecond, // short cooldown for the demo
		SuccessThreshold: cfg.Circuit.SuccessThreshold,
	}, bus, nil)

	accessor := artifact.NewMemoryAccessor()
	accessor.Put("report", "report.md", "text/markdown", "quarterly numbers")

	registry := scheduler.NewRegistry()
	attempts := 0
	registry.Register("search", func(_ context.Context, _ *scheduler.Shim, args []any) (any, error) {
		attempts++
		if attempts <= cfg.Circuit.FailureThreshold {
			return nil, fmt.Errorf("upstream 503 (attempt %d)", attempts)
		}
		return fmt.Sprintf("results for %v", args[0]), nil
	})
	registry.Register("read-report", func(_ context.Context, shim *scheduler.Shim, _ []any) (any, error) {
		return shim.ArtifactContent("report", -1, "")
	})

	pool := scheduler.New(scheduler.Config{
		PoolSize:     cfg.Scheduler.PoolSize,
		MaxQueueSize: cfg.Scheduler.MaxQueueSize,
	}, registry, accessor, bus, nil)
	defer pool.Terminate()

	// Flaky capability: failures accumulate until the circuit opens,
	// then the cooldown admits a probe and successes close it again.
	fmt.Println("— web_search: flaky upstream —")
	for i := 0; i < 8; i++ {
		runGated(gate, iso, pool, "web_search", "fetch", "search", []any{"golang"})
		if iso.GetState("web_search").State == circuit.StateOpen {
			time.Sleep(600 * time.Millisecond) // wait out the cooldown
		}
	}

	// Privileged read through the shim.
	fmt.Println("— artifacts: shim read —")
	runGated(gate, iso, pool, "artifacts", "read", "read-report", nil)

	stats := pool.GetStats()
	fmt.Printf("pool: %d slots, %d free, queue %d\n",
		stats.PoolSize, stats.FreeSlots, stats.QueueLength)
	return nil
}

// runGated walks one action through the full control flow: gate, then
// circuit, then pool, then outcome reporting.
func runGated(gate *approval.Gate, iso *circuit.Isolator, pool *scheduler.Pool, moduleID, capability, task string, taskArgs []any) {
	if gate.RequiresApproval(moduleID, capability) {
		fmt.Printf("  %s/%s: waiting for approval\n", moduleID, capability)
		return
	}
	if iso.IsOpen(moduleID) {
		fmt.Printf("  %s: circuit open, skipped\n", moduleID)
		return
	}

	fut, err := pool.Submit(task, taskArgs, scheduler.SubmitOptions{})
	if err != nil {
		fmt.Printf("  %s: submit failed: %v\n", task, err)
		return
	}
	value, err := fut.Wait(context.Background())
	if err != nil {
		iso.RecordFailure(moduleID, err)
		fmt.Printf("  %s: failed: %v\n", task, err)
		return
	}
	iso.RecordSuccess(moduleID)
	fmt.Printf("  %s: %v\n", task, value)
}
