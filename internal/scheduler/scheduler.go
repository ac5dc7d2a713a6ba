// ============================================================================
// schedsim scheduling engine
// ============================================================================
//
// Package: internal/scheduler
// File: scheduler.go
// Purpose: single-CPU scheduling policies over a fixed process set
//
// Every run is a pure function of (processes, config):
//   1. validate the input (process invariants, unique ids)
//   2. build one fresh types.Record per process (the run's scratch state)
//   3. let the policy dispatch records onto the simulated CPU
//   4. return the timeline plus the records in input order
//
// Caller-owned types.Process values are never mutated, so the same slice
// can be scheduled any number of times and always yields the same timeline.
//
// ============================================================================

package scheduler

import (
	"fmt"
	"strings"

	"github.com/ChuLiYu/schedsim/pkg/types"
)

// Algorithm names a scheduling policy.
type Algorithm string

const (
	FCFS       Algorithm = "fcfs" // First-Come, First-Served
	RoundRobin Algorithm = "rr"   // Round-Robin with a fixed quantum
)

// DefaultQuantum is the Round-Robin time slice used when none is configured.
const DefaultQuantum = 4

// ParseAlgorithm accepts the short names and a few common spellings.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fcfs", "fifo", "first-come-first-served":
		return FCFS, nil
	case "rr", "round-robin", "roundrobin":
		return RoundRobin, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, s)
	}
}

// Config selects a policy. Quantum is only read for RoundRobin.
type Config struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Quantum   int       `json:"quantum,omitempty" yaml:"quantum"`
}

func (c Config) String() string {
	if c.Algorithm == RoundRobin {
		return fmt.Sprintf("%s(q=%d)", c.Algorithm, c.Quantum)
	}
	return string(c.Algorithm)
}

// Result is the outcome of one scheduling run.
type Result struct {
	Timeline types.Timeline  `json:"timeline"`
	Records  []*types.Record `json:"records"` // same order as the input
}

// Scheduler is implemented by every scheduling policy.
type Scheduler interface {
	Name() Algorithm
	Schedule(processes []types.Process) (*Result, error)
}

// New returns the scheduler described by cfg.
func New(cfg Config) (Scheduler, error) {
	switch cfg.Algorithm {
	case FCFS:
		return NewFCFS(), nil
	case RoundRobin:
		return NewRoundRobin(cfg.Quantum)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, cfg.Algorithm)
	}
}

// Schedule runs processes through the policy selected by cfg.
func Schedule(processes []types.Process, cfg Config) (*Result, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Schedule(processes)
}

// prepare validates the input and returns one fresh record per process.
func prepare(processes []types.Process) ([]*types.Record, error) {
	seen := make(map[types.ProcessID]struct{}, len(processes))
	records := make([]*types.Record, 0, len(processes))

	for i, p := range processes {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("process at index %d: %w", i, err)
		}
		if _, exists := seen[p.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProcessID, p.ID)
		}
		seen[p.ID] = struct{}{}
		records = append(records, types.NewRecord(p))
	}

	return records, nil
}
