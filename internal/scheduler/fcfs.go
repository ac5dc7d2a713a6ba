package scheduler

import (
	"github.com/ChuLiYu/schedsim/pkg/types"
)

// FCFSScheduler runs each process to completion in arrival order.
type FCFSScheduler struct{}

// NewFCFS returns a First-Come, First-Served scheduler.
func NewFCFS() *FCFSScheduler {
	return &FCFSScheduler{}
}

// Name implements Scheduler.
func (s *FCFSScheduler) Name() Algorithm {
	return FCFS
}

// Schedule implements Scheduler. Process k starts when processes 0..k-1
// have finished and produces exactly one interval.
func (s *FCFSScheduler) Schedule(processes []types.Process) (*Result, error) {
	records, err := prepare(processes)
	if err != nil {
		return nil, err
	}

	// All processes arrive at types.ArrivalTime, so arrival order is input
	// order. Do not re-sort by any other key.
	timeline := make(types.Timeline, 0, len(records))
	clock := types.ArrivalTime
	for _, r := range records {
		iv := r.Dispatch(clock, r.Remaining)
		timeline = append(timeline, iv)
		clock = iv.End
	}

	return &Result{Timeline: timeline, Records: records}, nil
}
