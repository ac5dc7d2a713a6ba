// ============================================================================
// schedsim worker pool - concurrent task executor
// ============================================================================
//
// Package: internal/worker
// File: worker_pool.go
// Purpose: run a fixed number of Worker goroutines fed by a shared channel;
//          used to simulate several scheduler configurations at once
//
// Layout:
//
//   caller --Submit()--> taskCh --> Worker 1..n --> resultCh --ReceiveResult()--> caller
//
// Lifecycle:
//   1. NewPool(bufferSize)     channels sized to bufferSize
//   2. Start(ctx, n)           n workers; ctx is the parent of every task ctx
//   3. Submit / ReceiveResult
//   4. Stop()                  no new tasks, wait for workers, close resultCh
//
// Shutdown ordering:
//   Stop closes stopCh first, which releases any Submit blocked on a full
//   taskCh. Submit holds the read lock for the whole send, so taskCh is
//   closed under the write lock only once no sender can touch it.
//
// ============================================================================

package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPoolClosed is returned once Stop has been called.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolNotStarted is returned when submitting before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")
	// ErrPoolAlreadyStarted is returned by a second Start.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")
)

// Pool manages a set of Workers.
type Pool struct {
	workers  []*Worker
	taskCh   chan Task
	resultCh chan Result
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu       sync.RWMutex
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// NewPool creates a pool whose task and result channels hold bufferSize
// entries.
func NewPool(bufferSize int) *Pool {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Pool{
		workers:  make([]*Worker, 0),
		taskCh:   make(chan Task, bufferSize),
		resultCh: make(chan Result, bufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches workerCount workers. Tasks run under contexts derived
// from ctx.
func (p *Pool) Start(ctx context.Context, workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	if workerCount < 1 {
		workerCount = 1
	}

	for i := 0; i < workerCount; i++ {
		w := newWorker(i, ctx, p.taskCh, p.resultCh, p.stopCh)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run()
		}(w)
	}

	p.started = true
	return nil
}

// Submit queues a task. It blocks while the task channel is full and
// returns ErrPoolClosed if the pool stops meanwhile.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolClosed
	}

	select {
	case <-p.stopCh:
		return ErrPoolClosed
	default:
	}

	select {
	case p.taskCh <- task:
		return nil
	case <-p.stopCh:
		return ErrPoolClosed
	}
}

// ReceiveResult waits for the next result. It returns ErrPoolClosed after
// Stop has drained the workers, or ctx.Err() if ctx ends first.
func (p *Pool) ReceiveResult(ctx context.Context) (Result, error) {
	select {
	case result, ok := <-p.resultCh:
		if !ok {
			return Result{}, ErrPoolClosed
		}
		return result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop shuts the pool down and waits for running tasks to return.
// Results not yet received are discarded. Calling Stop more than once, or
// on a pool that never started, is a no-op.
func (p *Pool) Stop() {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return
	}

	p.stopOnce.Do(func() {
		// releases any Submit blocked on a full taskCh, and with it the read lock
		close(p.stopCh)

		p.mu.Lock()
		p.stopped = true
		close(p.taskCh)
		p.mu.Unlock()

		p.wg.Wait()
		close(p.resultCh)
	})
}

// GetWorkerCount returns the number of workers started.
func (p *Pool) GetWorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// IsStarted reports whether Start has been called.
func (p *Pool) IsStarted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}
