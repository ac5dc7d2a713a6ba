package worker

// ============================================================================
// Worker Pool Test File
// Purpose: Verify concurrent execution, timeout mechanism, graceful shutdown
// ============================================================================

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(v any) Func {
	return func(ctx context.Context) (any, error) { return v, nil }
}

// ============================================================================
// Basic Functionality Tests
// ============================================================================

func TestNewPool(t *testing.T) {
	pool := NewPool(10)
	assert.NotNil(t, pool)
	assert.Equal(t, 0, pool.GetWorkerCount())
	assert.False(t, pool.IsStarted())
}

func TestPoolStart(t *testing.T) {
	pool := NewPool(10)

	require.NoError(t, pool.Start(context.Background(), 8))
	assert.Equal(t, 8, pool.GetWorkerCount())
	assert.True(t, pool.IsStarted())

	assert.ErrorIs(t, pool.Start(context.Background(), 4), ErrPoolAlreadyStarted)

	pool.Stop()
}

func TestWorkerExecution(t *testing.T) {
	pool := NewPool(10)
	require.NoError(t, pool.Start(context.Background(), 1))
	defer pool.Stop()

	taskCount := 10
	for i := 0; i < taskCount; i++ {
		require.NoError(t, pool.Submit(Task{ID: fmt.Sprintf("task-%d", i), Run: echo(i)}))
	}

	results := make(map[string]Result)
	for i := 0; i < taskCount; i++ {
		result, err := pool.ReceiveResult(context.Background())
		require.NoError(t, err)
		results[result.TaskID] = result
	}

	require.Len(t, results, taskCount)
	assert.True(t, results["task-3"].Success())
	assert.Equal(t, 3, results["task-3"].Value)
}

// ============================================================================
// Error Paths
// ============================================================================

func TestSubmitBeforeStartAndAfterStop(t *testing.T) {
	pool := NewPool(1)
	assert.ErrorIs(t, pool.Submit(Task{ID: "x", Run: echo(1)}), ErrPoolNotStarted)

	require.NoError(t, pool.Start(context.Background(), 2))
	pool.Stop()
	pool.Stop() // idempotent

	assert.ErrorIs(t, pool.Submit(Task{ID: "x", Run: echo(1)}), ErrPoolClosed)

	_, err := pool.ReceiveResult(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestTaskErrorAndPanic(t *testing.T) {
	boom := errors.New("boom")
	results, err := RunAll(context.Background(), 2, []Task{
		{ID: "err", Run: func(ctx context.Context) (any, error) { return nil, boom }},
		{ID: "panic", Run: func(ctx context.Context) (any, error) { panic("bad input") }},
		{ID: "nil"},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, results[0].Err, boom)
	assert.ErrorIs(t, results[1].Err, ErrTaskPanicked)
	assert.Error(t, results[2].Err)
}

func TestTaskTimeout(t *testing.T) {
	results, err := RunAll(context.Background(), 1, []Task{{
		ID:      "slow",
		Timeout: 20 * time.Millisecond,
		Run: func(ctx context.Context) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		},
	}})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

// ============================================================================
// RunAll
// ============================================================================

func TestRunAllPreservesOrder(t *testing.T) {
	tasks := make([]Task, 20)
	for i := range tasks {
		i := i
		tasks[i] = Task{
			ID: fmt.Sprintf("t%d", i),
			Run: func(ctx context.Context) (any, error) {
				// later tasks finish first
				time.Sleep(time.Duration(20-i) * time.Millisecond)
				return i * i, nil
			},
		}
	}

	results, err := RunAll(context.Background(), 4, tasks)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("t%d", i), r.TaskID)
		assert.Equal(t, i*i, r.Value)
	}
}

func TestRunAllRunsConcurrently(t *testing.T) {
	var running, peak int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{ID: fmt.Sprint(i), Run: func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}}
	}

	_, err := RunAll(context.Background(), 4, tasks)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestRunAllEdgeCases(t *testing.T) {
	results, err := RunAll(context.Background(), 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = RunAll(context.Background(), 3, []Task{{ID: "a", Run: echo(1)}, {ID: "a", Run: echo(2)}})
	assert.Error(t, err)
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunAll(ctx, 2, []Task{{ID: "a", Run: echo(1)}})
	// either the task reports the cancellation or RunAll does
	if err == nil {
		assert.ErrorIs(t, results[0].Err, context.Canceled)
	} else {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// ============================================================================
// Shutdown
// ============================================================================

func TestStopReleasesBlockedSubmit(t *testing.T) {
	pool := NewPool(0)
	block := make(chan struct{})
	require.NoError(t, pool.Start(context.Background(), 1))

	// occupy the only worker
	require.NoError(t, pool.Submit(Task{ID: "hold", Run: func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}}))

	var wg sync.WaitGroup
	wg.Add(1)
	var submitErr error
	go func() {
		defer wg.Done()
		submitErr = pool.Submit(Task{ID: "blocked", Run: echo(1)})
	}()

	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	pool.Stop()
	wg.Wait()

	assert.ErrorIs(t, submitErr, ErrPoolClosed)
}
