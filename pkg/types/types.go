// Package types defines the domain model shared by the schedsim scheduler,
// analytics and persistence layers.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ArrivalTime is the arrival time of every process. All processes are ready
// when the simulation starts.
const ArrivalTime = 0

// ErrInvalidProcess is returned when a process has an empty id or a
// non-positive duration.
var ErrInvalidProcess = errors.New("invalid process")

// ProcessID identifies a process within a process set.
type ProcessID string

// Process is a unit of CPU work submitted to a scheduler.
// It carries no scheduling state; see Record.
type Process struct {
	ID       ProcessID `json:"id" yaml:"id"`             // unique, non-empty
	Duration int       `json:"duration" yaml:"duration"` // CPU time required, > 0
	Priority int       `json:"priority" yaml:"priority"` // lower is more urgent; informational
}

// NewProcess builds a validated Process.
func NewProcess(id string, duration, priority int) (Process, error) {
	p := Process{ID: ProcessID(id), Duration: duration, Priority: priority}
	if err := p.Validate(); err != nil {
		return Process{}, err
	}
	return p, nil
}

// Validate reports whether p satisfies the process invariants.
func (p Process) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidProcess)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("%w: process %q duration must be positive, got %d", ErrInvalidProcess, p.ID, p.Duration)
	}
	return nil
}

func (p Process) String() string {
	return fmt.Sprintf("%s(duration=%d, priority=%d)", p.ID, p.Duration, p.Priority)
}

// Interval is one contiguous span during which a single process occupies
// the CPU. End is exclusive and always greater than Start.
type Interval struct {
	ProcessID ProcessID `json:"process_id"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
}

// Length returns the CPU time covered by the interval.
func (iv Interval) Length() int {
	return iv.End - iv.Start
}

// Timeline is the ordered execution record (Gantt chart) of a run.
type Timeline []Interval

// End returns the time at which the last interval finishes, or 0 for an
// empty timeline.
func (t Timeline) End() int {
	end := 0
	for _, iv := range t {
		if iv.End > end {
			end = iv.End
		}
	}
	return end
}

// ByProcess returns the intervals of the given process, in timeline order.
func (t Timeline) ByProcess(id ProcessID) []Interval {
	var out []Interval
	for _, iv := range t {
		if iv.ProcessID == id {
			out = append(out, iv)
		}
	}
	return out
}

// Record is the per-run execution state of a process. Schedulers build a
// fresh Record for every process on every run, so the caller's Process
// values are never mutated.
type Record struct {
	Process    Process `json:"process"`
	Remaining  int     `json:"remaining"`             // CPU time not yet consumed
	StartTime  *int    `json:"start_time,omitempty"`  // first dispatch, set once
	FinishTime *int    `json:"finish_time,omitempty"` // end of the latest dispatch
}

// NewRecord returns the initial execution state for p.
func NewRecord(p Process) *Record {
	return &Record{Process: p, Remaining: p.Duration}
}

// Dispatch accounts for the process running on [start, start+length).
// The first dispatch fixes StartTime; every dispatch moves FinishTime.
func (r *Record) Dispatch(start, length int) Interval {
	if r.StartTime == nil {
		s := start
		r.StartTime = &s
	}
	end := start + length
	r.FinishTime = &end
	r.Remaining -= length
	return Interval{ProcessID: r.Process.ID, Start: start, End: end}
}

// Done reports whether the process has consumed its whole duration.
func (r *Record) Done() bool {
	return r.Remaining == 0
}
