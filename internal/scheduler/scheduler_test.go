package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fenwick/toolplane/internal/errors"
	"github.com/fenwick/toolplane/internal/event"
)

func testPool(t *testing.T, poolSize, queueSize int) *Pool {
	t.Helper()
	p := New(Config{PoolSize: poolSize, MaxQueueSize: queueSize}, NewRegistry(), nil, nil, nil)
	t.Cleanup(p.Terminate)
	return p
}

// waitIdle polls until every slot is free and the queue is empty. Slot
// bookkeeping settles shortly after futures do, so tests that assert on
// stats wait here first.
func waitIdle(t *testing.T, p *Pool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := p.GetStats()
		if stats.BusySlots == 0 && stats.QueueLength == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pool never went idle: %+v", p.GetStats())
}

func TestSubmitResolvesFuture(t *testing.T) {
	p := testPool(t, 2, 10)
	p.Registry().Register("echo", func(_ context.Context, _ *Shim, args []any) (any, error) {
		return args[0], nil
	})

	fut, err := p.Submit("echo", []any{"hello"}, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	value, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "hello" {
		t.Errorf("value = %v, want hello", value)
	}
}

func TestSubmitFuncBypassesRegistry(t *testing.T) {
	p := testPool(t, 1, 10)

	fut, err := p.SubmitFunc(func(_ context.Context, _ *Shim, args []any) (any, error) {
		return len(args), nil
	}, []any{"a", "b", "c"}, SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitFunc: %v", err)
	}
	value, err := fut.Wait(context.Background())
	if err != nil || value != 3 {
		t.Errorf("result = (%v, %v), want (3, nil)", value, err)
	}

	if _, err := p.SubmitFunc(nil, nil, SubmitOptions{}); err == nil {
		t.Error("nil body should be rejected")
	}
}

func TestSubmitUnregisteredTask(t *testing.T) {
	p := testPool(t, 1, 10)

	_, err := p.Submit("nope", nil, SubmitOptions{})
	if !errors.Is(err, errors.ErrTaskNotRegistered) {
		t.Errorf("err = %v, want ErrTaskNotRegistered", err)
	}
}

func TestQueueFullFailsFast(t *testing.T) {
	p := testPool(t, 1, 2)
	release := make(chan struct{})
	p.Registry().Register("block", func(_ context.Context, _ *Shim, _ []any) (any, error) {
		<-release
		return nil, nil
	})

	// First job occupies the only slot; the next two fill the queue.
	var futs []*Future
	for i := 0; i < 3; i++ {
		fut, err := p.Submit("block", nil, SubmitOptions{})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		futs = append(futs, fut)
	}

	start := time.Now()
	_, err := p.Submit("block", nil, SubmitOptions{})
	if !errors.Is(err, errors.ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if took := time.Since(start); took > 100*time.Millisecond {
		t.Errorf("capacity rejection took %s, want synchronous", took)
	}

	close(release)
	for _, fut := range futs {
		if _, err := fut.Wait(context.Background()); err != nil {
			t.Errorf("queued job failed after release: %v", err)
		}
	}
}

func TestAssignmentOrderIsFIFO(t *testing.T) {
	p := testPool(t, 1, 20)
	var order []int
	release := make(chan struct{})
	p.Registry().Register("track", func(_ context.Context, _ *Shim, args []any) (any, error) {
		<-release
		order = append(order, args[0].(int))
		return nil, nil
	})

	var futs []*Future
	for i := 0; i < 5; i++ {
		fut, err := p.Submit("track", []any{i}, SubmitOptions{})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		futs = append(futs, fut)
	}

	close(release)
	for _, fut := range futs {
		fut.Wait(context.Background())
	}

	// Single slot, so execution order equals assignment order.
	for i, got := range order {
		if got != i {
			t.Fatalf("execution order = %v, want FIFO", order)
		}
	}
}

func TestJobsRunInParallel(t *testing.T) {
	p := testPool(t, 2, 10)

	// Each job blocks until the other has started. This only completes
	// if both bodies run concurrently.
	rendezvous := make(chan struct{}, 2)
	p.Registry().Register("meet", func(ctx context.Context, _ *Shim, _ []any) (any, error) {
		rendezvous <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for len(rendezvous) < 2 {
			time.Sleep(time.Millisecond)
		}
		return nil, nil
	})

	results := p.ExecuteParallel(context.Background(), []JobSpec{
		{Task: "meet"}, {Task: "meet"},
	})
	for i, r := range results {
		if !r.OK() {
			t.Errorf("job %d failed: %v", i, r.Err)
		}
	}
}

func TestExecuteParallelSettledResults(t *testing.T) {
	p := testPool(t, 2, 10)
	p.Registry().Register("work", func(_ context.Context, _ *Shim, args []any) (any, error) {
		n := args[0].(int)
		if n == 3 {
			return nil, errors.New("job 3 exploded")
		}
		return n * 10, nil
	})

	specs := make([]JobSpec, 5)
	for i := range specs {
		specs[i] = JobSpec{Task: "work", Args: []any{i + 1}}
	}

	results := p.ExecuteParallel(context.Background(), specs)

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for i, r := range results {
		n := i + 1
		if n == 3 {
			if r.OK() {
				t.Error("job 3 should have failed")
			}
			continue
		}
		if !r.OK() {
			t.Errorf("job %d failed: %v", n, r.Err)
			continue
		}
		if r.Value != n*10 {
			t.Errorf("job %d value = %v, want %d", n, r.Value, n*10)
		}
	}

	// One job's failure never destabilizes the pool.
	waitIdle(t, p)
	stats := p.GetStats()
	if stats.FreeSlots != 2 || stats.InFlight != 0 {
		t.Errorf("stats after batch = %+v, want idle pool", stats)
	}
}

func TestSlotFaultRecreatesWithoutCapacityLoss(t *testing.T) {
	bus := event.NewBus()
	recreated := make(chan event.Event, 1)
	bus.Subscribe("slot.recreated", func(e event.Event) {
		recreated <- e
	})

	p := New(Config{PoolSize: 2, MaxQueueSize: 10}, NewRegistry(), nil, bus, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("panic", func(_ context.Context, _ *Shim, _ []any) (any, error) {
		panic("slot crashed")
	})
	p.Registry().Register("echo", func(_ context.Context, _ *Shim, args []any) (any, error) {
		return args[0], nil
	})

	fut, err := p.Submit("panic", nil, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = fut.Wait(context.Background())
	if !errors.Is(err, errors.ErrSlotFault) {
		t.Errorf("err = %v, want ErrSlotFault", err)
	}

	select {
	case <-recreated:
	case <-time.After(time.Second):
		t.Fatal("no slot.recreated event")
	}

	waitIdle(t, p)
	if stats := p.GetStats(); stats.FreeSlots != 2 {
		t.Errorf("FreeSlots = %d after fault, want 2 (no capacity loss)", stats.FreeSlots)
	}

	// The recreated slot keeps working.
	fut, err = p.Submit("echo", []any{"alive"}, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit after fault: %v", err)
	}
	if value, err := fut.Wait(context.Background()); err != nil || value != "alive" {
		t.Errorf("post-fault job = (%v, %v), want (alive, nil)", value, err)
	}
}

func TestTerminateRejectsEveryJobOnce(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), nil, nil, nil)
	release := make(chan struct{})
	defer close(release)
	p.Registry().Register("block", func(_ context.Context, _ *Shim, _ []any) (any, error) {
		<-release
		return "late", nil
	})

	var futs []*Future
	for i := 0; i < 3; i++ {
		fut, err := p.Submit("block", nil, SubmitOptions{})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		futs = append(futs, fut)
	}

	p.Terminate()

	for i, fut := range futs {
		_, err := fut.Wait(context.Background())
		if !errors.Is(err, errors.ErrPoolTerminated) {
			t.Errorf("job %d err = %v, want ErrPoolTerminated", i, err)
		}
	}

	// New submissions are refused, and Terminate is idempotent.
	if _, err := p.Submit("block", nil, SubmitOptions{}); !errors.Is(err, errors.ErrPoolTerminated) {
		t.Errorf("post-terminate Submit err = %v, want ErrPoolTerminated", err)
	}
	p.Terminate()
}

func TestInFlightSettlementAfterTerminateIsDiscarded(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), nil, nil, nil)
	release := make(chan struct{})
	p.Registry().Register("block", func(_ context.Context, _ *Shim, _ []any) (any, error) {
		<-release
		return "late", nil
	})

	fut, err := p.Submit("block", nil, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	p.Terminate()
	close(release) // let the abandoned body finish

	value, err := fut.Wait(context.Background())
	if !errors.Is(err, errors.ErrPoolTerminated) || value != nil {
		t.Errorf("future = (%v, %v), want the terminate rejection to stick", value, err)
	}
}

func TestJobTimeoutCancelsContext(t *testing.T) {
	p := testPool(t, 1, 10)
	p.Registry().Register("slow", func(ctx context.Context, _ *Shim, _ []any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})

	fut, err := p.Submit("slow", nil, SubmitOptions{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := fut.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestMapDropsFailedItems(t *testing.T) {
	p := testPool(t, 2, 20)
	p.Registry().Register("odd-only", func(_ context.Context, _ *Shim, args []any) (any, error) {
		n := args[0].(int)
		if n%2 == 0 {
			return nil, errors.New("even")
		}
		return n, nil
	})

	out := p.Map(context.Background(), "odd-only", []any{1, 2, 3, 4, 5})

	want := []int{1, 3, 5}
	if len(out) != len(want) {
		t.Fatalf("Map returned %v, want %v", out, want)
	}
	for i, v := range out {
		if v != want[i] {
			t.Errorf("Map[%d] = %v, want %d", i, v, want[i])
		}
	}
}

func TestReducePartitionsAndFolds(t *testing.T) {
	p := testPool(t, 3, 20)
	p.Registry().Register("sum-partition", func(_ context.Context, _ *Shim, args []any) (any, error) {
		part := args[0].([]any)
		total := 0
		for _, v := range part {
			total += v.(int)
		}
		return total, nil
	})

	items := make([]any, 10)
	for i := range items {
		items[i] = i + 1 // 1..10
	}

	got, err := p.Reduce(context.Background(), "sum-partition", items, 100,
		func(acc, partial any) (any, error) {
			return acc.(int) + partial.(int), nil
		})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got != 155 {
		t.Errorf("Reduce = %v, want 155", got)
	}
}

func TestReducePropagatesPartitionFailure(t *testing.T) {
	p := testPool(t, 2, 20)
	p.Registry().Register("fail", func(_ context.Context, _ *Shim, _ []any) (any, error) {
		return nil, errors.New("partition broke")
	})

	_, err := p.Reduce(context.Background(), "fail", []any{1, 2, 3}, 0,
		func(acc, partial any) (any, error) { return acc, nil })
	if err == nil {
		t.Error("Reduce should fail when a partition fails")
	}
}

func TestReduceEmptyItemsReturnsInitial(t *testing.T) {
	p := testPool(t, 2, 20)

	got, err := p.Reduce(context.Background(), "unused", nil, 42,
		func(acc, partial any) (any, error) { return acc, nil })
	if err != nil || got != 42 {
		t.Errorf("Reduce = (%v, %v), want (42, nil)", got, err)
	}
}

func TestPartitionShapes(t *testing.T) {
	tests := []struct {
		name  string
		items int
		n     int
		want  []int
	}{
		{"even split", 6, 3, []int{2, 2, 2}},
		{"remainder spread", 10, 3, []int{4, 3, 3}},
		{"fewer items than slots", 2, 4, []int{1, 1}},
		{"single slot", 5, 1, []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]any, tt.items)
			for i := range items {
				items[i] = i
			}
			chunks := partition(items, tt.n)
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}
			next := 0
			for i, chunk := range chunks {
				if len(chunk) != tt.want[i] {
					t.Errorf("chunk %d size = %d, want %d", i, len(chunk), tt.want[i])
				}
				for _, v := range chunk {
					if v != next {
						t.Fatalf("partition reordered items")
					}
					next++
				}
			}
		})
	}
}

func TestGetStatsIsPureRead(t *testing.T) {
	p := testPool(t, 3, 10)

	before := p.GetStats()
	after := p.GetStats()
	if before != after {
		t.Errorf("back-to-back stats differ: %+v vs %+v", before, after)
	}
	if before.PoolSize != 3 || before.FreeSlots != 3 || before.QueueLength != 0 {
		t.Errorf("idle stats = %+v", before)
	}
}

func TestEventSequenceForOneJob(t *testing.T) {
	bus := event.NewBus()
	var mu sync.Mutex
	var types []string
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		types = append(types, e.EventType())
		mu.Unlock()
	})
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), types...)
	}

	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), nil, bus, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("echo", func(_ context.Context, _ *Shim, args []any) (any, error) {
		return args[0], nil
	})

	fut, err := p.Submit("echo", []any{1}, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	fut.Wait(context.Background())
	waitIdle(t, p)

	deadline := time.Now().Add(time.Second)
	for {
		seen := snapshot()
		if contains(seen, "job.completed") {
			if !contains(seen, "job.queued") || !contains(seen, "job.dispatched") {
				t.Errorf("event types = %v, want queued+dispatched+completed", seen)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job.completed never published, saw %v", seen)
		}
		time.Sleep(time.Millisecond)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
