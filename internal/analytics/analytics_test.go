package analytics

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioProcesses() []types.Process {
	return []types.Process{
		{ID: "A", Duration: 5, Priority: 1},
		{ID: "B", Duration: 3, Priority: 1},
		{ID: "C", Duration: 1, Priority: 1},
	}
}

func run(t *testing.T, procs []types.Process, cfg scheduler.Config) *scheduler.Result {
	t.Helper()
	res, err := scheduler.Schedule(procs, cfg)
	require.NoError(t, err)
	return res
}

func TestComputeFCFSScenario(t *testing.T) {
	res := run(t, scenarioProcesses(), scheduler.Config{Algorithm: scheduler.FCFS})

	report, err := Compute(res.Records)
	require.NoError(t, err)

	assert.Equal(t, ProcessMetrics{ProcessID: "A", Duration: 5, Response: 0, Turnaround: 5, Wait: 0}, report.PerProcess["A"])
	assert.Equal(t, ProcessMetrics{ProcessID: "B", Duration: 3, Response: 5, Turnaround: 8, Wait: 5}, report.PerProcess["B"])
	assert.Equal(t, ProcessMetrics{ProcessID: "C", Duration: 1, Response: 8, Turnaround: 9, Wait: 8}, report.PerProcess["C"])

	assert.InDelta(t, 13.0/3.0, report.Aggregate.MeanWait, 1e-9)
	assert.InDelta(t, 13.0/3.0, report.Aggregate.MeanResponse, 1e-9)
	assert.InDelta(t, 22.0/3.0, report.Aggregate.MeanTurnaround, 1e-9)

	require.Len(t, report.Ordered, 3)
	assert.Equal(t, types.ProcessID("A"), report.Ordered[0].ProcessID)
	assert.Equal(t, types.ProcessID("C"), report.Ordered[2].ProcessID)
}

func TestComputeRoundRobinScenario(t *testing.T) {
	res := run(t, scenarioProcesses(), scheduler.Config{Algorithm: scheduler.RoundRobin, Quantum: 2})

	report, err := Compute(res.Records)
	require.NoError(t, err)

	assert.Equal(t, 9, report.PerProcess["A"].Turnaround)
	assert.Equal(t, 4, report.PerProcess["A"].Wait)
	assert.Equal(t, 8, report.PerProcess["B"].Turnaround)
	assert.Equal(t, 5, report.PerProcess["B"].Wait)
	assert.Equal(t, 5, report.PerProcess["C"].Turnaround)
	assert.Equal(t, 4, report.PerProcess["C"].Wait)
	assert.Equal(t, 4, report.PerProcess["C"].Response)

	assert.InDelta(t, 2.0, report.Aggregate.MeanResponse, 1e-9)
	assert.InDelta(t, 13.0/3.0, report.Aggregate.MeanWait, 1e-9)
}

func TestComputeWaitIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 30; i++ {
		procs := make([]types.Process, 1+rng.Intn(10))
		for k := range procs {
			procs[k] = types.Process{ID: types.ProcessID(fmt.Sprintf("p%d", k)), Duration: 1 + rng.Intn(9)}
		}

		for _, cfg := range []scheduler.Config{
			{Algorithm: scheduler.FCFS},
			{Algorithm: scheduler.RoundRobin, Quantum: 1 + rng.Intn(4)},
		} {
			report, err := Compute(run(t, procs, cfg).Records)
			require.NoError(t, err)
			for _, p := range procs {
				m := report.PerProcess[p.ID]
				assert.Equal(t, m.Turnaround-p.Duration, m.Wait, "%s %s", cfg, p.ID)
				assert.GreaterOrEqual(t, m.Wait, 0)
			}
		}
	}
}

func TestComputeErrors(t *testing.T) {
	t.Run("empty process set", func(t *testing.T) {
		report, err := Compute(nil)
		assert.ErrorIs(t, err, ErrEmptyProcessSet)
		assert.Nil(t, report)
	})

	t.Run("never scheduled", func(t *testing.T) {
		records := []*types.Record{types.NewRecord(types.Process{ID: "A", Duration: 2})}
		_, err := Compute(records)
		assert.ErrorIs(t, err, ErrIncompleteSchedule)
	})

	t.Run("missing finish time", func(t *testing.T) {
		start := 0
		r := types.NewRecord(types.Process{ID: "A", Duration: 2})
		r.StartTime = &start
		_, err := Compute([]*types.Record{r})
		assert.ErrorIs(t, err, ErrIncompleteSchedule)
	})

	t.Run("partially run", func(t *testing.T) {
		r := types.NewRecord(types.Process{ID: "A", Duration: 5})
		r.Dispatch(0, 2)
		_, err := Compute([]*types.Record{r})
		assert.ErrorIs(t, err, ErrIncompleteSchedule)
	})

	t.Run("nil record", func(t *testing.T) {
		_, err := Compute([]*types.Record{nil})
		assert.ErrorIs(t, err, ErrIncompleteSchedule)
	})
}

func TestSummarize(t *testing.T) {
	res := run(t, scenarioProcesses(), scheduler.Config{Algorithm: scheduler.RoundRobin, Quantum: 2})

	s := Summarize(res.Timeline)
	assert.Equal(t, 9, s.Makespan)
	assert.Equal(t, 9, s.BusyTime)
	assert.Equal(t, 0, s.IdleTime)
	assert.InDelta(t, 1.0, s.Utilization, 1e-9)
	assert.InDelta(t, 3.0/9.0, s.Throughput, 1e-9)
	assert.Equal(t, 6, s.Dispatches)
	assert.Equal(t, 5, s.ContextSwitches)

	fcfs := Summarize(run(t, scenarioProcesses(), scheduler.Config{Algorithm: scheduler.FCFS}).Timeline)
	assert.Equal(t, 2, fcfs.ContextSwitches)
	assert.Equal(t, 3, fcfs.Dispatches)

	assert.Equal(t, Summary{}, Summarize(nil))
}
