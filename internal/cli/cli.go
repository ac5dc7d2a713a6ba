// ============================================================================
// schedsim CLI - command line interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: cobra command tree over the repository, the simulation service
//          and the network servers
//
// Command structure:
//   schedsim                              # root
//   ├── process add <id> <duration> [priority]
//   ├── process list
//   ├── process remove <id>
//   ├── process clear
//   ├── import <file> [--append]          # .json/.csv/.yaml into the store
//   ├── export <file>                     # store into .json/.csv/.yaml
//   ├── run     [--algorithm] [--quantum] [--file] [--output text|json]
//   ├── compare [--quanta 1,2,4] [--file] [--workers]
//   ├── serve                             # HTTP + gRPC + /metrics
//   └── submit  --server host:port [--algorithm] [--quantum] [--file] [--quanta]
//
// Persistent flags:
//   --config, -c    YAML config file (default configs/default.yaml)
//   --store         override store.path (.json/.csv/.yaml or .db/.sqlite)
//   --log-level     debug|info|warn|error
//   --log-format    text|json
//
// Reports go to stdout, logs to stderr.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ChuLiYu/schedsim/internal/config"
	"github.com/ChuLiYu/schedsim/internal/logging"
	"github.com/ChuLiYu/schedsim/internal/repository"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/spf13/cobra"
)

// Version is reported by --version.
const Version = "1.0.0"

// globalOptions holds the persistent flags.
type globalOptions struct {
	configFile string
	storePath  string
	logLevel   string
	logFormat  string
}

// env is what every command needs after flag parsing.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "schedsim",
		Short: "schedsim: a single-CPU process scheduling simulator",
		Long: `schedsim simulates First-Come-First-Served and Round-Robin scheduling
over a set of processes and reports:
- the Gantt timeline of the run
- response, wait and turnaround time per process and on average
- makespan, utilisation and context switches`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "configs/default.yaml", "config file path")
	pf.StringVar(&opts.storePath, "store", "", "process store path (overrides store.path)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text, json")

	rootCmd.AddCommand(buildProcessCommand(opts))
	rootCmd.AddCommand(buildImportCommand(opts))
	rootCmd.AddCommand(buildExportCommand(opts))
	rootCmd.AddCommand(buildRunCommand(opts))
	rootCmd.AddCommand(buildCompareCommand(opts))
	rootCmd.AddCommand(buildServeCommand(opts))
	rootCmd.AddCommand(buildSubmitCommand(opts))

	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func setup(cmd *cobra.Command, opts *globalOptions) (*env, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	logger := logging.NewLoggerWithWriter(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
	logger.Debug("configuration loaded", "config", opts.configFile, "store", cfg.Store.Path)

	return &env{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}, nil
}

// openRepository opens the configured store and loads it into a fresh
// repository. The caller closes the store.
func (e *env) openRepository(ctx context.Context) (*repository.Repository, repository.Store, error) {
	st, err := repository.OpenStore(ctx, e.cfg.Store.Path, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store %s: %w", e.cfg.Store.Path, err)
	}

	repo := repository.New()
	if err := repository.Load(ctx, repo, st); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to load processes: %w", err)
	}
	return repo, st, nil
}

// processesFrom returns the processes in file, or the store content when
// file is empty.
func (e *env) processesFrom(ctx context.Context, file string) ([]types.Process, error) {
	if file != "" {
		return readProcessFile(file)
	}

	repo, st, err := e.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return repo.List(), nil
}

// readProcessFile decodes a process file; unlike a store, a missing file is
// an error.
func readProcessFile(path string) ([]types.Process, error) {
	format, err := repository.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read process file: %w", err)
	}
	defer f.Close()

	procs, err := repository.Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return procs, nil
}
