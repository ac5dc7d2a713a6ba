package worker

import (
	"context"
	"time"
)

// Func is the unit of work executed by a Worker.
type Func func(ctx context.Context) (any, error)

// Task is a piece of work submitted to the Pool.
type Task struct {
	ID      string        // echoed back in Result
	Run     Func          // work to execute
	Timeout time.Duration // zero means no deadline beyond the pool context
}

// Result is the outcome of one Task.
type Result struct {
	TaskID   string
	Value    any           // whatever Run returned
	Err      error         // Run error, ctx error, or ErrTaskPanicked
	Duration time.Duration // wall time spent in Run
}

// Success reports whether the task completed without error.
func (r Result) Success() bool { return r.Err == nil }
