package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ChuLiYu/schedsim/internal/analytics"
	"github.com/ChuLiYu/schedsim/internal/report"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/internal/server"
	"github.com/ChuLiYu/schedsim/internal/simulation"
	"github.com/spf13/cobra"
)

// schedulerFlags resolves --algorithm/--quantum against the config.
type schedulerFlags struct {
	algorithm string
	quantum   int
}

func (f *schedulerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.algorithm, "algorithm", "a", "", "scheduling algorithm: fcfs, rr (default from config)")
	cmd.Flags().IntVarP(&f.quantum, "quantum", "q", 0, "Round-Robin time quantum (default from config)")
}

func (f *schedulerFlags) resolve(cmd *cobra.Command, e *env) (scheduler.Config, error) {
	name := e.cfg.Scheduler.Algorithm
	if f.algorithm != "" {
		name = f.algorithm
	}
	alg, err := scheduler.ParseAlgorithm(name)
	if err != nil {
		return scheduler.Config{}, err
	}

	cfg := scheduler.Config{Algorithm: alg}
	if alg == scheduler.RoundRobin {
		cfg.Quantum = e.cfg.Scheduler.Quantum
		if cmd.Flags().Changed("quantum") {
			cfg.Quantum = f.quantum
		}
	}
	return cfg, nil
}

func buildRunCommand(opts *globalOptions) *cobra.Command {
	var (
		sf     schedulerFlags
		file   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the process set and print the timeline and metrics",
		Long: `Simulate the stored process set (or the one in --file) with a single
scheduling policy and print the Gantt timeline, a text chart and the
per-process metrics.`,
		Example: `  schedsim run
  schedsim run -a rr -q 2
  schedsim run -a fcfs --file procs.csv --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			cfg, err := sf.resolve(cmd, e)
			if err != nil {
				return err
			}
			procs, err := e.processesFrom(cmd.Context(), file)
			if err != nil {
				return err
			}

			out, err := simulation.NewService(e.logger).Run(cmd.Context(), procs, cfg)
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(e.out, server.NewSimulateResponse(out))
			}
			report.WriteOutcome(e.out, out)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "read processes from this file instead of the store")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json")
	return cmd
}

func buildCompareCommand(opts *globalOptions) *cobra.Command {
	var (
		quanta  []int
		file    string
		workers int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare FCFS with Round-Robin over several quanta",
		Example: `  schedsim compare
  schedsim compare --quanta 1,2,4,8 --workers 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("quanta") {
				quanta = e.cfg.Compare.Quanta
			}
			if !cmd.Flags().Changed("workers") {
				workers = e.cfg.Compare.Workers
			}

			procs, err := e.processesFrom(cmd.Context(), file)
			if err != nil {
				return err
			}
			if len(procs) == 0 {
				return simulation.ErrNoProcesses
			}

			svc := simulation.NewService(e.logger, simulation.WithWorkers(workers))
			configs := simulation.SweepConfigs(quanta)
			outcomes, err := svc.Compare(cmd.Context(), procs, configs)
			if outcomes == nil {
				return err
			}
			if err != nil {
				e.logger.Warn("some configurations failed", "error", err)
			}

			if output == "json" {
				return writeJSON(e.out, server.NewCompareResponse(configs, outcomes, err))
			}
			report.WriteComparison(e.out, configs, outcomes)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&quanta, "quanta", nil, "Round-Robin quanta to compare (default from config)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read processes from this file instead of the store")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent simulations (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json")
	return cmd
}

func buildSubmitCommand(opts *globalOptions) *cobra.Command {
	var (
		sf      schedulerFlags
		addr    string
		file    string
		quanta  []int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run a simulation on a remote schedsim server over gRPC",
		Long: `Send a simulation request to "schedsim serve". Without --file the server
simulates its own stored processes. With --quanta a comparison is requested
instead of a single run.`,
		Example: `  schedsim submit --server localhost:50051 -a rr -q 3 --file procs.json
  schedsim submit --server localhost:50051 --quanta 1,2,4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = e.cfg.Server.GRPCAddr
			}

			req := server.SimulateRequest{}
			if file != "" {
				if req.Processes, err = readProcessFile(file); err != nil {
					return err
				}
			}

			client, err := server.Dial(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if len(quanta) > 0 {
				resp, err := client.Compare(ctx, server.CompareRequest{Processes: req.Processes, Quanta: quanta})
				if err != nil {
					return fmt.Errorf("remote compare failed: %w", err)
				}
				writeRemoteComparison(e.out, resp)
				return nil
			}

			cfg, err := sf.resolve(cmd, e)
			if err != nil {
				return err
			}
			req.Algorithm = string(cfg.Algorithm)
			if cfg.Algorithm == scheduler.RoundRobin {
				req.Quantum = &cfg.Quantum
			}

			resp, err := client.Simulate(ctx, req)
			if err != nil {
				return fmt.Errorf("remote simulation failed: %w", err)
			}
			writeRemoteOutcome(e.out, resp)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&addr, "server", "s", "", "gRPC server address (default server.grpc_addr)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "send the processes in this file")
	cmd.Flags().IntSliceVar(&quanta, "quanta", nil, "request a comparison over these quanta")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func writeRemoteOutcome(w io.Writer, resp *server.SimulateResponse) {
	report.WriteTitle(w, fmt.Sprintf("Simulation %s (run %s)", resp.Config, resp.RunID))
	report.WriteTimeline(w, resp.Timeline)
	fmt.Fprintln(w)
	report.WriteGanttChart(w, resp.Timeline)
	fmt.Fprintln(w)
	report.WriteMetrics(w, &analytics.Report{Ordered: resp.Metrics, Aggregate: resp.Aggregate}, resp.Summary)
}

func writeRemoteComparison(w io.Writer, resp *server.CompareResponse) {
	configs := make([]scheduler.Config, len(resp.Results))
	outcomes := make([]*simulation.Outcome, len(resp.Results))
	for i, r := range resp.Results {
		configs[i] = r.Config
		if r.Result == nil {
			continue
		}
		outcomes[i] = &simulation.Outcome{
			RunID:    r.Result.RunID,
			Config:   r.Result.Config,
			Timeline: r.Result.Timeline,
			Report:   &analytics.Report{Ordered: r.Result.Metrics, Aggregate: r.Result.Aggregate},
			Summary:  r.Result.Summary,
		}
	}
	report.WriteComparison(w, configs, outcomes)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
