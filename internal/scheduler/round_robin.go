package scheduler

import (
	"fmt"

	"github.com/ChuLiYu/schedsim/pkg/types"
)

// RoundRobinScheduler time-slices the CPU between ready processes with a
// fixed quantum.
type RoundRobinScheduler struct {
	quantum int
}

// NewRoundRobin returns a Round-Robin scheduler. The quantum must be
// positive.
func NewRoundRobin(quantum int) (*RoundRobinScheduler, error) {
	if quantum <= 0 {
		return nil, fmt.Errorf("%w: quantum must be positive, got %d", ErrInvalidConfiguration, quantum)
	}
	return &RoundRobinScheduler{quantum: quantum}, nil
}

// Name implements Scheduler.
func (s *RoundRobinScheduler) Name() Algorithm {
	return RoundRobin
}

// Quantum returns the configured time slice.
func (s *RoundRobinScheduler) Quantum() int {
	return s.quantum
}

// Schedule implements Scheduler.
//
// The ready queue starts in input order. Each dispatch runs the head for
// min(quantum, remaining) time units; an unfinished process goes back to
// the tail, behind everything already waiting.
func (s *RoundRobinScheduler) Schedule(processes []types.Process) (*Result, error) {
	records, err := prepare(processes)
	if err != nil {
		return nil, err
	}

	queue := make([]*types.Record, len(records))
	copy(queue, records)

	timeline := make(types.Timeline, 0, len(records))
	clock := types.ArrivalTime
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]

		slice := min(s.quantum, r.Remaining)
		iv := r.Dispatch(clock, slice)
		timeline = append(timeline, iv)
		clock = iv.End

		if !r.Done() {
			queue = append(queue, r)
		}
	}

	return &Result{Timeline: timeline, Records: records}, nil
}
