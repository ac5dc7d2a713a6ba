package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ChuLiYu/schedsim/internal/config"
	"github.com/ChuLiYu/schedsim/internal/logging"
	"github.com/ChuLiYu/schedsim/internal/report"
	"github.com/ChuLiYu/schedsim/internal/simulation"
	"github.com/ChuLiYu/schedsim/pkg/types"
)

// Walks through the textbook workload: one long job ahead of two short ones.
// FCFS makes the short jobs wait behind A, Round-Robin lets them finish early.
//
//	go run ./cmd/demo [config.yaml]
func main() {
	path := "configs/default.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	procs := []types.Process{
		{ID: "A", Duration: 5, Priority: 1},
		{ID: "B", Duration: 3, Priority: 1},
		{ID: "C", Duration: 1, Priority: 1},
	}

	svc := simulation.NewService(logger, simulation.WithWorkers(cfg.Compare.Workers))
	configs := simulation.SweepConfigs(cfg.Compare.Quanta)

	outcomes, err := svc.Compare(context.Background(), procs, configs)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	report.WriteProcesses(os.Stdout, procs)
	for _, out := range outcomes {
		fmt.Println()
		report.WriteOutcome(os.Stdout, out)
	}
	fmt.Println()
	report.WriteComparison(os.Stdout, configs, outcomes)
}
