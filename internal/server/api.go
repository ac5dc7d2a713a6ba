// ============================================================================
// schedsim API - transport-independent request handling
// ============================================================================
//
// Package: internal/server
// File: api.go
// Purpose: the JSON request/response shapes shared by the HTTP and gRPC
//          transports, and the single place that turns them into
//          simulation.Service calls
//
// A request without processes simulates the server's repository.
//
// ============================================================================

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChuLiYu/schedsim/internal/analytics"
	"github.com/ChuLiYu/schedsim/internal/repository"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/internal/simulation"
	"github.com/ChuLiYu/schedsim/pkg/types"
)

// SimulateRequest asks for one simulation. A nil Quantum selects
// scheduler.DefaultQuantum for Round-Robin.
type SimulateRequest struct {
	Processes []types.Process `json:"processes,omitempty"`
	Algorithm string          `json:"algorithm"`
	Quantum   *int            `json:"quantum,omitempty"`
}

// Config resolves the scheduler configuration of the request.
func (r SimulateRequest) Config() (scheduler.Config, error) {
	alg, err := scheduler.ParseAlgorithm(r.Algorithm)
	if err != nil {
		return scheduler.Config{}, err
	}
	cfg := scheduler.Config{Algorithm: alg}
	if alg == scheduler.RoundRobin {
		cfg.Quantum = scheduler.DefaultQuantum
		if r.Quantum != nil {
			cfg.Quantum = *r.Quantum
		}
	}
	return cfg, nil
}

// SimulateResponse is the result of one simulation.
type SimulateResponse struct {
	RunID     string                     `json:"run_id"`
	Config    scheduler.Config           `json:"config"`
	Timeline  types.Timeline             `json:"timeline"`
	Metrics   []analytics.ProcessMetrics `json:"metrics"`
	Aggregate analytics.Aggregate        `json:"aggregate"`
	Summary   analytics.Summary          `json:"summary"`
}

// NewSimulateResponse flattens an Outcome for the wire.
func NewSimulateResponse(out *simulation.Outcome) *SimulateResponse {
	return &SimulateResponse{
		RunID:     out.RunID,
		Config:    out.Config,
		Timeline:  out.Timeline,
		Metrics:   out.Report.Ordered,
		Aggregate: out.Report.Aggregate,
		Summary:   out.Summary,
	}
}

// CompareRequest runs FCFS plus Round-Robin with each quantum.
type CompareRequest struct {
	Processes []types.Process `json:"processes,omitempty"`
	Quanta    []int           `json:"quanta,omitempty"`
}

// CompareResult is one row of a comparison; exactly one of Result and
// Error is set.
type CompareResult struct {
	Config scheduler.Config  `json:"config"`
	Result *SimulateResponse `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// CompareResponse lists results in configuration order.
type CompareResponse struct {
	Results []CompareResult `json:"results"`
}

// API executes requests against a simulation service and a repository.
type API struct {
	sim    *simulation.Service
	repo   *repository.Repository
	quanta []int
	logger *slog.Logger
}

// NewAPI creates an API. quanta is used by Compare requests that name none.
func NewAPI(sim *simulation.Service, repo *repository.Repository, quanta []int, logger *slog.Logger) *API {
	if repo == nil {
		repo = repository.New()
	}
	return &API{sim: sim, repo: repo, quanta: quanta, logger: logger}
}

// Repository returns the process repository served by the API.
func (a *API) Repository() *repository.Repository { return a.repo }

func (a *API) processes(in []types.Process) []types.Process {
	if len(in) > 0 {
		return in
	}
	return a.repo.List()
}

// Simulate runs one simulation.
func (a *API) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error) {
	cfg, err := req.Config()
	if err != nil {
		return nil, err
	}
	out, err := a.sim.Run(ctx, a.processes(req.Processes), cfg)
	if err != nil {
		return nil, err
	}
	return NewSimulateResponse(out), nil
}

// Compare runs a quantum sweep. Individual configuration failures are
// reported per row; only a failure of the sweep itself is returned.
func (a *API) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	quanta := req.Quanta
	if len(quanta) == 0 {
		quanta = a.quanta
	}
	procs := a.processes(req.Processes)
	if len(procs) == 0 {
		return nil, simulation.ErrNoProcesses
	}

	configs := simulation.SweepConfigs(quanta)
	outcomes, err := a.sim.Compare(ctx, procs, configs)
	if outcomes == nil {
		return nil, err
	}

	resp := NewCompareResponse(configs, outcomes, err)
	if err != nil {
		a.logger.Warn("comparison partially failed", "error", err)
	}
	return resp, nil
}

// NewCompareResponse builds the rows of a comparison from the outcomes and
// the joined error of simulation.Service.Compare. Failed rows carry the
// message of their own error.
func NewCompareResponse(configs []scheduler.Config, outcomes []*simulation.Outcome, err error) *CompareResponse {
	// one joined error per failed slot, in slot order
	var failures []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	}

	resp := &CompareResponse{Results: make([]CompareResult, len(configs))}
	for i, cfg := range configs {
		resp.Results[i].Config = cfg
		switch {
		case i < len(outcomes) && outcomes[i] != nil:
			resp.Results[i].Result = NewSimulateResponse(outcomes[i])
		case len(failures) > 0:
			resp.Results[i].Error = failures[0].Error()
			failures = failures[1:]
		default:
			resp.Results[i].Error = fmt.Sprintf("%s failed", cfg)
		}
	}
	return resp
}
