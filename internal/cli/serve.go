package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChuLiYu/schedsim/internal/metrics"
	"github.com/ChuLiYu/schedsim/internal/server"
	"github.com/ChuLiYu/schedsim/internal/simulation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func buildServeCommand(opts *globalOptions) *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and gRPC APIs",
		Long: `Start the HTTP API (with /metrics when metrics are enabled) and the gRPC
SimulationService. Both share the configured process store. SIGINT or
SIGTERM shuts both down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if httpAddr == "" {
				httpAddr = e.cfg.Server.HTTPAddr
			}
			if grpcAddr == "" {
				grpcAddr = e.cfg.Server.GRPCAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e, httpAddr, grpcAddr)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default server.http_addr)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default server.grpc_addr)")
	return cmd
}

func serve(ctx context.Context, e *env, httpAddr, grpcAddr string) error {
	ctx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	repo, st, err := e.openRepository(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	simOpts := []simulation.Option{simulation.WithWorkers(e.cfg.Compare.Workers)}
	var httpOpts []server.Option
	httpOpts = append(httpOpts, server.WithStore(st))

	if e.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector := metrics.NewCollector(reg)
		simOpts = append(simOpts, simulation.WithMetrics(collector))
		httpOpts = append(httpOpts, server.WithMetrics(collector, reg))
	}

	sim := simulation.NewService(e.logger, simOpts...)
	api := server.NewAPI(sim, repo, e.cfg.Compare.Quanta, e.logger)

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           server.New(api, e.logger, httpOpts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		e.logger.Info("grpc server listening", "addr", grpcLis.Addr().String())
		errCh <- server.Serve(ctx, grpcLis, server.NewGRPCServer(api, e.logger))
	}()
	go func() {
		e.logger.Info("http server listening", "addr", httpAddr, "metrics", e.cfg.Metrics.Enabled)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		e.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			e.logger.Error("server stopped unexpectedly", "error", serveErr)
		} else {
			e.logger.Info("server stopped")
		}
	}
	stopAll() // stops the grpc server

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		e.logger.Warn("http shutdown", "error", err)
	}

	e.logger.Info("servers stopped", "processes", repo.Len())
	return serveErr
}
