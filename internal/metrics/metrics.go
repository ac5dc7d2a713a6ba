// ============================================================================
// schedsim metrics - Prometheus instrumentation
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: count simulation runs and expose the latest per-algorithm
//          averages for scraping
//
// Metrics:
//
//   Counters (labelled by algorithm):
//     schedsim_simulations_total           completed simulations
//     schedsim_simulation_failures_total   rejected or failed simulations
//     schedsim_intervals_dispatched_total  Gantt intervals produced
//     schedsim_processes_scheduled_total   processes run to completion
//
//   Histogram:
//     schedsim_simulation_seconds          wall time of schedule + analytics
//
//   Gauges:
//     schedsim_last_mean_wait_time{algorithm}
//     schedsim_last_mean_turnaround_time{algorithm}
//     schedsim_last_mean_response_time{algorithm}
//     schedsim_repository_processes        size of the process repository
//
// Example queries:
//
//   # failure ratio over five minutes
//   rate(schedsim_simulation_failures_total[5m])
//     / rate(schedsim_simulations_total[5m])
//
//   # p95 simulation time
//   histogram_quantile(0.95, rate(schedsim_simulation_seconds_bucket[5m]))
//
// The collector registers on the Registerer it is given so tests and
// embedded uses can keep a private registry.
//
// ============================================================================

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schedsim"

// Collector holds every schedsim metric.
type Collector struct {
	simulations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	scheduled   *prometheus.CounterVec

	duration prometheus.Histogram

	meanWait       *prometheus.GaugeVec
	meanTurnaround *prometheus.GaugeVec
	meanResponse   *prometheus.GaugeVec
	repository     prometheus.Gauge
}

// NewCollector creates the metrics and registers them on reg. A nil reg
// falls back to prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	algorithm := []string{"algorithm"}
	c := &Collector{
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Total number of completed simulations",
		}, algorithm),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_failures_total",
			Help:      "Total number of simulations rejected or failed",
		}, algorithm),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intervals_dispatched_total",
			Help:      "Total number of execution intervals produced",
		}, algorithm),
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_scheduled_total",
			Help:      "Total number of processes run to completion",
		}, algorithm),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_seconds",
			Help:      "Wall time spent scheduling and computing metrics",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		meanWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_mean_wait_time",
			Help:      "Mean wait time of the most recent simulation",
		}, algorithm),
		meanTurnaround: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_mean_turnaround_time",
			Help:      "Mean turnaround time of the most recent simulation",
		}, algorithm),
		meanResponse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_mean_response_time",
			Help:      "Mean response time of the most recent simulation",
		}, algorithm),
		repository: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repository_processes",
			Help:      "Current number of processes in the repository",
		}),
	}

	reg.MustRegister(
		c.simulations,
		c.failures,
		c.dispatched,
		c.scheduled,
		c.duration,
		c.meanWait,
		c.meanTurnaround,
		c.meanResponse,
		c.repository,
	)

	return c
}

// Run describes one finished simulation.
type Run struct {
	Algorithm      string
	Intervals      int
	Processes      int
	Seconds        float64
	MeanWait       float64
	MeanTurnaround float64
	MeanResponse   float64
}

// RecordRun records a successful simulation.
func (c *Collector) RecordRun(r Run) {
	c.simulations.WithLabelValues(r.Algorithm).Inc()
	c.dispatched.WithLabelValues(r.Algorithm).Add(float64(r.Intervals))
	c.scheduled.WithLabelValues(r.Algorithm).Add(float64(r.Processes))
	c.duration.Observe(r.Seconds)

	c.meanWait.WithLabelValues(r.Algorithm).Set(r.MeanWait)
	c.meanTurnaround.WithLabelValues(r.Algorithm).Set(r.MeanTurnaround)
	c.meanResponse.WithLabelValues(r.Algorithm).Set(r.MeanResponse)
}

// RecordFailure records a simulation that returned an error.
func (c *Collector) RecordFailure(algorithm string) {
	c.failures.WithLabelValues(algorithm).Inc()
}

// SetRepositorySize updates the repository gauge.
func (c *Collector) SetRepositorySize(n int) {
	c.repository.Set(float64(n))
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
