// Package analytics derives timing statistics from a completed scheduling
// run.
//
// Per process:
//
//	response   = start  - arrival
//	turnaround = finish - arrival
//	wait       = turnaround - duration
//
// Arrival is always types.ArrivalTime. Aggregates are unweighted means over
// the process set.
package analytics

import (
	"errors"
	"fmt"

	"github.com/ChuLiYu/schedsim/pkg/types"
)

var (
	// ErrEmptyProcessSet is returned when metrics are requested for no
	// processes.
	ErrEmptyProcessSet = errors.New("empty process set")
	// ErrIncompleteSchedule is returned when a record has no start or
	// finish time or CPU time left, i.e. scheduling did not run to completion.
	ErrIncompleteSchedule = errors.New("incomplete schedule")
)

// ProcessMetrics holds the timing statistics of one process.
type ProcessMetrics struct {
	ProcessID  types.ProcessID `json:"process_id"`
	Duration   int             `json:"duration"`
	Response   int             `json:"response"`
	Turnaround int             `json:"turnaround"`
	Wait       int             `json:"wait"`
}

// Aggregate holds the means of each per-process statistic.
type Aggregate struct {
	MeanResponse   float64 `json:"mean_response"`
	MeanTurnaround float64 `json:"mean_turnaround"`
	MeanWait       float64 `json:"mean_wait"`
}

// Report is the result of Compute.
type Report struct {
	PerProcess map[types.ProcessID]ProcessMetrics `json:"per_process"`
	Ordered    []ProcessMetrics                   `json:"ordered"` // input order
	Aggregate  Aggregate                          `json:"aggregate"`
}

// Compute derives per-process and aggregate metrics from the records of a
// finished run.
func Compute(records []*types.Record) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrEmptyProcessSet
	}

	report := &Report{
		PerProcess: make(map[types.ProcessID]ProcessMetrics, len(records)),
		Ordered:    make([]ProcessMetrics, 0, len(records)),
	}

	var sumResponse, sumTurnaround, sumWait int
	for _, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: nil record", ErrIncompleteSchedule)
		}
		if r.StartTime == nil || r.FinishTime == nil {
			return nil, fmt.Errorf("%w: process %q has not been scheduled", ErrIncompleteSchedule, r.Process.ID)
		}
		if !r.Done() {
			return nil, fmt.Errorf("%w: process %q has %d time units left", ErrIncompleteSchedule, r.Process.ID, r.Remaining)
		}

		turnaround := *r.FinishTime - types.ArrivalTime
		m := ProcessMetrics{
			ProcessID:  r.Process.ID,
			Duration:   r.Process.Duration,
			Response:   *r.StartTime - types.ArrivalTime,
			Turnaround: turnaround,
			Wait:       turnaround - r.Process.Duration,
		}

		report.PerProcess[m.ProcessID] = m
		report.Ordered = append(report.Ordered, m)

		sumResponse += m.Response
		sumTurnaround += m.Turnaround
		sumWait += m.Wait
	}

	n := float64(len(records))
	report.Aggregate = Aggregate{
		MeanResponse:   float64(sumResponse) / n,
		MeanTurnaround: float64(sumTurnaround) / n,
		MeanWait:       float64(sumWait) / n,
	}

	return report, nil
}
