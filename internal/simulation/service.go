// ============================================================================
// schedsim simulation service
// ============================================================================
//
// Package: internal/simulation
// File: service.go
// Purpose: drive one complete simulation and fan several out in parallel
//
// Run pipeline:
//   scheduler.Schedule  -> timeline + records
//   analytics.Compute   -> per-process and mean metrics
//   analytics.Summarize -> makespan, utilisation, context switches
//   metrics.Collector   -> Prometheus counters and gauges (optional)
//   slog                -> one structured line per run
//
// Compare runs the same process set under several configurations on a
// worker.Pool and returns outcomes in configuration order.
//
// ============================================================================

package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChuLiYu/schedsim/internal/analytics"
	"github.com/ChuLiYu/schedsim/internal/metrics"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/internal/worker"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/google/uuid"
)

// ErrNoProcesses is returned when a simulation is requested for an empty
// process set.
var ErrNoProcesses = fmt.Errorf("no processes to simulate: %w", analytics.ErrEmptyProcessSet)

// DefaultWorkers is the Compare concurrency when none is configured.
const DefaultWorkers = 4

// Outcome is everything produced by one simulation.
type Outcome struct {
	RunID    string            `json:"run_id"`
	Config   scheduler.Config  `json:"config"`
	Timeline types.Timeline    `json:"timeline"`
	Records  []*types.Record   `json:"-"`
	Report   *analytics.Report `json:"report"`
	Summary  analytics.Summary `json:"summary"`
	Elapsed  time.Duration     `json:"elapsed_ns"`
}

// Service runs simulations.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	workers int
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every run on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithWorkers sets the number of goroutines Compare may use.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout bounds each simulation run by Compare.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a Service logging to logger.
func NewService(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		logger:  logger.With("component", "simulation"),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run simulates processes under cfg.
func (s *Service) Run(ctx context.Context, processes []types.Process, cfg scheduler.Config) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.run(processes, cfg)
	if err != nil {
		s.logger.Warn("simulation rejected", "config", cfg.String(), "processes", len(processes), "error", err)
		if s.metrics != nil {
			s.metrics.RecordFailure(algorithmLabel(cfg.Algorithm))
		}
		return nil, err
	}

	s.logger.Info("simulation complete",
		"run_id", out.RunID,
		"config", cfg.String(),
		"processes", len(processes),
		"intervals", len(out.Timeline),
		"makespan", out.Summary.Makespan,
		"mean_wait", out.Report.Aggregate.MeanWait,
		"mean_turnaround", out.Report.Aggregate.MeanTurnaround,
		"mean_response", out.Report.Aggregate.MeanResponse,
		"elapsed", out.Elapsed,
	)

	if s.metrics != nil {
		s.metrics.RecordRun(metrics.Run{
			Algorithm:      algorithmLabel(cfg.Algorithm),
			Intervals:      len(out.Timeline),
			Processes:      len(out.Records),
			Seconds:        out.Elapsed.Seconds(),
			MeanWait:       out.Report.Aggregate.MeanWait,
			MeanTurnaround: out.Report.Aggregate.MeanTurnaround,
			MeanResponse:   out.Report.Aggregate.MeanResponse,
		})
	}

	return out, nil
}

func (s *Service) run(processes []types.Process, cfg scheduler.Config) (*Outcome, error) {
	start := time.Now()

	sched, err := scheduler.New(cfg)
	if err != nil {
		return nil, err
	}
	if len(processes) == 0 {
		return nil, ErrNoProcesses
	}

	res, err := sched.Schedule(processes)
	if err != nil {
		return nil, err
	}

	report, err := analytics.Compute(res.Records)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		RunID:    uuid.NewString(),
		Config:   cfg,
		Timeline: res.Timeline,
		Records:  res.Records,
		Report:   report,
		Summary:  analytics.Summarize(res.Timeline),
		Elapsed:  time.Since(start),
	}, nil
}

// Compare simulates processes under every configuration concurrently.
// Outcomes are returned in the order of configs. If any run fails, the
// successful outcomes are still returned (failed slots are nil) together
// with the joined errors.
func (s *Service) Compare(ctx context.Context, processes []types.Process, configs []scheduler.Config) ([]*Outcome, error) {
	if len(configs) == 0 {
		return []*Outcome{}, nil
	}

	tasks := make([]worker.Task, len(configs))
	for i, cfg := range configs {
		cfg := cfg
		tasks[i] = worker.Task{
			ID:      fmt.Sprintf("%d:%s", i, cfg),
			Timeout: s.timeout,
			Run: func(ctx context.Context) (any, error) {
				return s.Run(ctx, processes, cfg)
			},
		}
	}

	s.logger.Debug("comparing configurations", "configs", len(configs), "workers", s.workers)

	results, err := worker.RunAll(ctx, s.workers, tasks)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, len(results))
	var errs []error
	for i, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", configs[i], r.Err))
			continue
		}
		outcomes[i] = r.Value.(*Outcome)
	}
	return outcomes, errors.Join(errs...)
}

// SweepConfigs returns FCFS followed by one Round-Robin configuration per
// quantum, the usual set for a side-by-side comparison.
func SweepConfigs(quanta []int) []scheduler.Config {
	configs := []scheduler.Config{{Algorithm: scheduler.FCFS}}
	for _, q := range quanta {
		configs = append(configs, scheduler.Config{Algorithm: scheduler.RoundRobin, Quantum: q})
	}
	return configs
}

// algorithmLabel keeps the metric label set bounded.
func algorithmLabel(a scheduler.Algorithm) string {
	switch a {
	case scheduler.FCFS, scheduler.RoundRobin:
		return string(a)
	default:
		return "unknown"
	}
}
