package scheduler

import (
	"context"
)

// ExecuteParallel submits every spec and waits for all of them to settle.
// The result slice preserves input order; individual failures (including
// submission failures) become rejected entries, never an error from this
// method. Context cancellation abandons the remaining waits, marking the
// unsettled entries with the context error.
func (p *Pool) ExecuteParallel(ctx context.Context, specs []JobSpec) []Settled {
	results := make([]Settled, len(specs))
	futures := make([]*Future, len(specs))

	for i, spec := range specs {
		fut, err := p.Submit(spec.Task, spec.Args, spec.Options)
		if err != nil {
			results[i] = Settled{Err: err}
			continue
		}
		futures[i] = fut
	}

	for i, fut := range futures {
		if fut == nil {
			continue
		}
		value, err := fut.Wait(ctx)
		results[i] = Settled{Value: value, Err: err}
	}
	return results
}

// Map runs the named task once per item in parallel and returns the
// successful results. Failed items are dropped; relative order of the
// survivors follows input order.
func (p *Pool) Map(ctx context.Context, task string, items []any) []any {
	specs := make([]JobSpec, len(items))
	for i, item := range items {
		specs[i] = JobSpec{Task: task, Args: []any{item}}
	}

	var out []any
	for _, settled := range p.ExecuteParallel(ctx, specs) {
		if settled.OK() {
			out = append(out, settled.Value)
		}
	}
	return out
}

// Reduce partitions items across the pool, runs the named task once per
// partition (receiving its partition as the single argument and returning
// a partial result), then folds the partials into initial on the caller
// side. Partition order is preserved in the fold. Any partition failure
// fails the whole reduce.
func (p *Pool) Reduce(ctx context.Context, task string, items []any, initial any, fold func(acc, partial any) (any, error)) (any, error) {
	if len(items) == 0 {
		return initial, nil
	}

	partitions := partition(items, p.cfg.PoolSize)
	specs := make([]JobSpec, len(partitions))
	for i, part := range partitions {
		specs[i] = JobSpec{Task: task, Args: []any{part}}
	}

	acc := initial
	for _, settled := range p.ExecuteParallel(ctx, specs) {
		if settled.Err != nil {
			return nil, settled.Err
		}
		var err error
		acc, err = fold(acc, settled.Value)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// partition splits items into at most n contiguous chunks of near-equal
// size, preserving order.
func partition(items []any, n int) [][]any {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	chunks := make([][]any, 0, n)
	size := len(items) / n
	rem := len(items) % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		chunks = append(chunks, items[start:end])
		start = end
	}
	return chunks
}
