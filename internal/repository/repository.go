// ============================================================================
// schedsim process repository
// ============================================================================
//
// Package: internal/repository
// File: repository.go
// Purpose: hold the user's process set between simulations
//
// Layout:
//   procs map[ProcessID]Process - lookup by id, single source of truth
//   order []ProcessID           - insertion order, which is also the ready
//                                 queue order handed to the schedulers
//
// Concurrency:
//   sync.RWMutex guards both structures; reads take RLock.
//
// Persistence lives in store.go: a Repository is loaded from and saved to a
// Store (JSON/CSV/YAML file or SQLite database).
//
// ============================================================================

package repository

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChuLiYu/schedsim/pkg/types"
)

var (
	// ErrDuplicateProcess is returned when adding an id that already exists.
	ErrDuplicateProcess = errors.New("process already exists")
	// ErrProcessNotFound is returned when the id is unknown.
	ErrProcessNotFound = errors.New("process not found")
)

// Repository is an ordered, concurrency-safe set of processes.
type Repository struct {
	mu    sync.RWMutex
	procs map[types.ProcessID]types.Process
	order []types.ProcessID
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{
		procs: make(map[types.ProcessID]types.Process),
		order: make([]types.ProcessID, 0),
	}
}

// Add validates p and appends it to the repository.
func (r *Repository) Add(p types.Process) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProcess, p.ID)
	}
	r.procs[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Remove deletes the process with the given id.
func (r *Repository) Remove(id types.ProcessID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrProcessNotFound, id)
	}
	delete(r.procs, id)
	for i, queued := range r.order {
		if queued == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the process with the given id.
func (r *Repository) Get(id types.ProcessID) (types.Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.procs[id]
	if !ok {
		return types.Process{}, fmt.Errorf("%w: %s", ErrProcessNotFound, id)
	}
	return p, nil
}

// List returns a copy of all processes in insertion order.
func (r *Repository) List() []types.Process {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Process, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.procs[id])
	}
	return out
}

// Len returns the number of processes.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes every process.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.procs = make(map[types.ProcessID]types.Process)
	r.order = make([]types.ProcessID, 0)
}

// Replace swaps the whole content for procs. Either every process is
// accepted or the repository is left untouched.
func (r *Repository) Replace(procs []types.Process) error {
	next := make(map[types.ProcessID]types.Process, len(procs))
	order := make([]types.ProcessID, 0, len(procs))
	for i, p := range procs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("process at index %d: %w", i, err)
		}
		if _, exists := next[p.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateProcess, p.ID)
		}
		next[p.ID] = p
		order = append(order, p.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = next
	r.order = order
	return nil
}
