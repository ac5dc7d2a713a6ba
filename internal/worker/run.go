package worker

import (
	"context"
	"fmt"
)

// RunAll executes tasks on a temporary pool of at most workers goroutines
// and returns their results in the order the tasks were given. Task IDs
// must be unique.
//
// A task failure is reported in its Result; RunAll itself only fails when
// the pool cannot be driven (duplicate IDs or ctx ending before every
// result arrives).
func RunAll(ctx context.Context, workers int, tasks []Task) ([]Result, error) {
	if len(tasks) == 0 {
		return []Result{}, nil
	}

	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if _, dup := index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		index[t.ID] = i
	}

	if workers > len(tasks) {
		workers = len(tasks)
	}

	pool := NewPool(len(tasks))
	if err := pool.Start(ctx, workers); err != nil {
		return nil, err
	}
	defer pool.Stop()

	for _, t := range tasks {
		if err := pool.Submit(t); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(tasks))
	for received := 0; received < len(tasks); received++ {
		r, err := pool.ReceiveResult(ctx)
		if err != nil {
			return nil, err
		}
		results[index[r.TaskID]] = r
	}
	return results, nil
}
