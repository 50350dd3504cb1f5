package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campaneros/TQGenLevelAnalysis/internal/engine"
)

var runFlags struct {
	pipeline    string
	grpcPort    int
	metricsPort int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline until its source drains or a signal arrives",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.pipeline, "pipeline", "pipeline.yml", "Pipeline file")
	f.IntVar(&runFlags.grpcPort, "grpc-port", 7070, "gRPC health port (0 picks a free port)")
	f.IntVar(&runFlags.metricsPort, "metrics-port", 9100, "Prometheus /metrics port (0 disables)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(engine.Config{
		GRPCPort:    runFlags.grpcPort,
		MetricsPort: runFlags.metricsPort,
		PipelineYml: runFlags.pipeline,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("run %s: %w", e.RunID(), err)
	}
	return nil
}
