// Package report renders simulation results as plain-text tables and
// charts for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChuLiYu/schedsim/internal/analytics"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/internal/simulation"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/olekukonko/tablewriter"
)

const (
	labelWidth   = 10
	unitsPerTick = 2 // columns per time unit in the Gantt chart
	maxTicks     = 10
	maxColumns   = 120 // longer timelines are scaled down to this width
	barRune      = "█"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader(header)
	return table
}

// WriteTitle prints title framed by dashed rules.
func WriteTitle(w io.Writer, title string) {
	rule := strings.Repeat("-", len(title)*2)
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintln(w, strings.Repeat(" ", len(title)/2), title)
	_, _ = fmt.Fprintln(w, rule)
}

// WriteProcesses prints the process set in repository order.
func WriteProcesses(w io.Writer, procs []types.Process) {
	if len(procs) == 0 {
		_, _ = fmt.Fprintln(w, "No processes registered.")
		return
	}

	table := newTable(w, []string{"ID", "Duration", "Priority"})
	for _, p := range procs {
		table.Append([]string{string(p.ID), strconv.Itoa(p.Duration), strconv.Itoa(p.Priority)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(len(procs)), ""})
	table.Render()
}

// WriteTimeline prints one row per execution interval.
func WriteTimeline(w io.Writer, timeline types.Timeline) {
	if len(timeline) == 0 {
		_, _ = fmt.Fprintln(w, "Empty timeline.")
		return
	}

	rows := make([][]string, 0, len(timeline))
	for _, iv := range timeline {
		rows = append(rows, []string{
			string(iv.ProcessID),
			strconv.Itoa(iv.Start),
			strconv.Itoa(iv.End),
			strconv.Itoa(iv.Length()),
		})
	}

	_, _ = fmt.Fprintln(w, "Gantt schedule")
	table := newTable(w, []string{"Process", "Start", "End", "Length"})
	table.AppendBulk(rows)
	table.Render()
}

// WriteGanttChart draws each interval as a bar on a shared time axis, two
// columns per time unit, followed by a scale with at most ten ticks.
// Timelines wider than maxColumns are scaled to fit; every interval then
// keeps at least one column.
func WriteGanttChart(w io.Writer, timeline types.Timeline) {
	if len(timeline) == 0 {
		_, _ = fmt.Fprintln(w, "Nothing was executed.")
		return
	}

	end := timeline.End()
	margin := strings.Repeat(" ", labelWidth+1)
	col := chartColumn(end)
	width := col(end)

	for _, iv := range timeline {
		start := col(iv.Start)
		_, _ = fmt.Fprintf(w, "%-*s |%s%s\n",
			labelWidth, iv.ProcessID,
			strings.Repeat(" ", start),
			strings.Repeat(barRune, max(1, col(iv.End)-start)))
	}
	_, _ = fmt.Fprintf(w, "%s|%s\n", margin, strings.Repeat("-", width))

	step := max(1, end/maxTicks)
	scale := []byte(margin + "|" + strings.Repeat(" ", width+len(strconv.Itoa(end))))
	next := 0 // first column a label may use
	for t := 0; t <= end; t += step {
		pos := col(t)
		if pos < next {
			continue
		}
		label := strconv.Itoa(t)
		copy(scale[len(margin)+pos:], label)
		next = pos + len(label)
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(string(scale), " "))
}

// chartColumn maps a time to its chart column for a timeline ending at end.
func chartColumn(end int) func(int) int {
	if end <= maxColumns/unitsPerTick {
		return func(t int) int { return t * unitsPerTick }
	}
	return func(t int) int { return int(float64(t) * maxColumns / float64(end)) }
}

// WriteMetrics prints per-process statistics with the means in the footer,
// then the CPU summary.
func WriteMetrics(w io.Writer, report *analytics.Report, summary analytics.Summary) {
	if report == nil {
		_, _ = fmt.Fprintln(w, "No metrics.")
		return
	}

	_, _ = fmt.Fprintln(w, "Schedule table")
	table := newTable(w, []string{"ID", "Duration", "Response", "Wait", "Turnaround"})
	for _, m := range report.Ordered {
		table.Append([]string{
			string(m.ProcessID),
			strconv.Itoa(m.Duration),
			strconv.Itoa(m.Response),
			strconv.Itoa(m.Wait),
			strconv.Itoa(m.Turnaround),
		})
	}
	table.SetFooter([]string{"", "Average",
		fmt.Sprintf("%.2f", report.Aggregate.MeanResponse),
		fmt.Sprintf("%.2f", report.Aggregate.MeanWait),
		fmt.Sprintf("%.2f", report.Aggregate.MeanTurnaround),
	})
	table.Render()

	_, _ = fmt.Fprintf(w, "Makespan: %d  Busy: %d  Idle: %d  Utilization: %.2f%%  Throughput: %.2f/t  Context switches: %d\n",
		summary.Makespan, summary.BusyTime, summary.IdleTime,
		summary.Utilization*100, summary.Throughput, summary.ContextSwitches)
}

// WriteOutcome prints the full report of one simulation.
func WriteOutcome(w io.Writer, out *simulation.Outcome) {
	WriteTitle(w, "Simulation "+out.Config.String())
	WriteTimeline(w, out.Timeline)
	_, _ = fmt.Fprintln(w)
	WriteGanttChart(w, out.Timeline)
	_, _ = fmt.Fprintln(w)
	WriteMetrics(w, out.Report, out.Summary)
}

// WriteComparison prints one row per configuration. A nil outcome marks a
// configuration that failed.
func WriteComparison(w io.Writer, configs []scheduler.Config, outcomes []*simulation.Outcome) {
	table := newTable(w, []string{"Config", "Mean Response", "Mean Wait", "Mean Turnaround", "Makespan", "Switches", "Dispatches"})

	for i, out := range outcomes {
		if out == nil {
			name := "?"
			if i < len(configs) {
				name = configs[i].String()
			}
			table.Append([]string{name, "failed", "", "", "", "", ""})
			continue
		}
		agg := out.Report.Aggregate
		table.Append([]string{
			out.Config.String(),
			fmt.Sprintf("%.2f", agg.MeanResponse),
			fmt.Sprintf("%.2f", agg.MeanWait),
			fmt.Sprintf("%.2f", agg.MeanTurnaround),
			strconv.Itoa(out.Summary.Makespan),
			strconv.Itoa(out.Summary.ContextSwitches),
			strconv.Itoa(out.Summary.Dispatches),
		})
	}
	table.Render()
}
