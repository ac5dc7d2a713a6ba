package analytics

import "github.com/ChuLiYu/schedsim/pkg/types"

// Summary describes CPU usage over a whole timeline.
type Summary struct {
	Makespan        int     `json:"makespan"`         // end of the last interval
	BusyTime        int     `json:"busy_time"`        // sum of interval lengths
	IdleTime        int     `json:"idle_time"`        // Makespan - BusyTime
	Utilization     float64 `json:"utilization"`      // BusyTime / Makespan
	Throughput      float64 `json:"throughput"`       // completed processes per time unit
	Dispatches      int     `json:"dispatches"`       // number of intervals
	ContextSwitches int     `json:"context_switches"` // adjacent intervals of different processes
}

// Summarize computes CPU usage statistics for a timeline. An empty timeline
// yields a zero Summary.
func Summarize(timeline types.Timeline) Summary {
	var s Summary
	if len(timeline) == 0 {
		return s
	}

	completed := make(map[types.ProcessID]struct{})
	for i, iv := range timeline {
		s.BusyTime += iv.Length()
		completed[iv.ProcessID] = struct{}{}
		if i > 0 && timeline[i-1].ProcessID != iv.ProcessID {
			s.ContextSwitches++
		}
	}

	s.Makespan = timeline.End() - types.ArrivalTime
	s.IdleTime = s.Makespan - s.BusyTime
	s.Dispatches = len(timeline)
	if s.Makespan > 0 {
		s.Utilization = float64(s.BusyTime) / float64(s.Makespan)
		s.Throughput = float64(len(completed)) / float64(s.Makespan)
	}

	return s
}
