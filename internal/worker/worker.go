// ============================================================================
// schedsim worker - task execution unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Purpose: one goroutine that pulls tasks off the shared channel, runs them
//          under a per-task deadline and reports the Result
//
// Loop:
//   for task := range taskCh
//     ├─ derive ctx from the pool context (+ task.Timeout)
//     ├─ run the task, converting a panic into ErrTaskPanicked
//     └─ send Result to resultCh (dropped once the pool is stopping)
//
// ============================================================================

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTaskPanicked wraps a panic recovered from Task.Run.
var ErrTaskPanicked = errors.New("task panicked")

// Worker runs tasks from the pool's task channel.
type Worker struct {
	id       int
	ctx      context.Context
	taskCh   <-chan Task
	resultCh chan<- Result
	stopCh   <-chan struct{}
}

func newWorker(id int, ctx context.Context, taskCh <-chan Task, resultCh chan<- Result, stopCh <-chan struct{}) *Worker {
	return &Worker{
		id:       id,
		ctx:      ctx,
		taskCh:   taskCh,
		resultCh: resultCh,
		stopCh:   stopCh,
	}
}

// Run is the worker main loop. It returns once taskCh is closed.
func (w *Worker) Run() {
	for task := range w.taskCh {
		start := time.Now()
		value, err := w.execute(task)

		result := Result{
			TaskID:   task.ID,
			Value:    value,
			Err:      err,
			Duration: time.Since(start),
		}

		select {
		case w.resultCh <- result:
		case <-w.stopCh:
			// pool is shutting down and nobody is reading
		}
	}
}

func (w *Worker) execute(task Task) (value any, err error) {
	ctx := w.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if task.Run == nil {
		return nil, fmt.Errorf("task %s has no function", task.ID)
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: worker %d, task %s: %v", ErrTaskPanicked, w.id, task.ID, r)
		}
	}()

	return task.Run(ctx)
}
