package engine

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/internal/pipeline"
	"github.com/campaneros/TQGenLevelAnalysis/internal/telemetry"
	"github.com/campaneros/TQGenLevelAnalysis/internal/transport"
)

type Config struct {
	GRPCPort    int
	MetricsPort int // 0 disables /metrics
	PipelineYml string
}

func Bootstrap(cfg Config) (*Engine, error) {
	runID := uuid.NewString()
	log := logging.L().With("run_id", runID)

	// 1. pipeline runner
	runner, err := pipeline.Compile(cfg.PipelineYml)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	runner.SetRunID(runID)
	runner.SetLogger(log)

	// 2. transport server
	srv, err := transport.StartServer(cfg.GRPCPort)
	if err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. metrics
	var metrics *http.Server
	if cfg.MetricsPort > 0 {
		metrics = telemetry.Expose(cfg.MetricsPort, log)
	}

	log.Info("engine ready",
		"grpc", srv.Addr(),
		"pipeline", cfg.PipelineYml,
		"layout", runner.Stage().Layout().String(),
	)
	return &Engine{
		runID:     runID,
		transport: srv,
		runner:    runner,
		metrics:   metrics,
		log:       log,
	}, nil
}

func (e *Engine) RunID() string { return e.runID }
