package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/campaneros/TQGenLevelAnalysis/internal/pipeline"
	"github.com/campaneros/TQGenLevelAnalysis/internal/transport"
)

type Engine struct {
	runID     string
	transport *transport.Server
	runner    *pipeline.Runner
	metrics   *http.Server
	log       *slog.Logger
}

// Run serves health and drives the pipeline until the source drains, the
// runner fails or ctx ends. Everything is torn down before it returns.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		if err := e.transport.Serve(); err != nil {
			e.log.Error("grpc serve", "err", err)
		}
	}()
	e.transport.SetServing(true)

	err := e.runner.Run(ctx)
	e.transport.SetServing(false)
	e.shutdown()
	return err
}

func (e *Engine) shutdown() {
	e.transport.Stop()
	if e.metrics != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.metrics.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics shutdown", "err", err)
		}
	}
	if err := e.runner.Close(); err != nil {
		e.log.Error("close pipeline", "err", err)
	}
	e.log.Info("engine stopped")
}
